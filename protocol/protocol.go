// Package protocol implements the Avea command/notification wire format.
//
// Every exchange with the bulb travels over a single GATT characteristic as a
// short binary payload: a one byte command tag followed by the value bytes.
// The same tag is used for setting a value, querying it (tag alone), and in
// the notification the bulb sends back, which is what the session layer keys
// its reply correlation on.
//
// This package is pure and stateless, all I/O lives in the device package.
package protocol

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/k0rventen/avea/common"
)

// Command tags, shared by commands and notifications
const (
	CmdBrightness byte = 0x57
	CmdColor      byte = 0x35
	CmdName       byte = 0x58
)

// Channel marker bits OR-ed into each 16-bit color word to identify the
// channel it carries
const (
	markerWhite uint16 = 0x8000
	markerRed   uint16 = 0x3000
	markerGreen uint16 = 0x2000
	markerBlue  uint16 = 0x1000
)

// Fixed framing emitted after the color tag: fade flag and a reserved word
var colorFraming = []byte{0x11, 0x01, 0x0a, 0x00}

// UnknownName is substituted when a name notification does not decode as
// valid UTF-8
const UnknownName = `Unknown`

// Notification is a decoded payload pushed by the bulb
type Notification interface {
	// Tag returns the command tag the notification was matched on
	Tag() byte
}

// BrightnessReport carries the bulb's current brightness
type BrightnessReport struct {
	Level uint16
}

// Tag returns the command tag the notification was matched on
func (BrightnessReport) Tag() byte { return CmdBrightness }

// ColorReport carries the bulb's current color channels
type ColorReport struct {
	White uint16
	Red   uint16
	Green uint16
	Blue  uint16
}

// Tag returns the command tag the notification was matched on
func (ColorReport) Tag() byte { return CmdColor }

// NameReport carries the bulb's current name
type NameReport struct {
	Name string
}

// Tag returns the command tag the notification was matched on
func (NameReport) Tag() byte { return CmdName }

// EncodeBrightness returns the command payload setting the bulb brightness.
// The level is emitted as a 16-bit little-endian word after the tag.
func EncodeBrightness(level uint16) []byte {
	payload := make([]byte, 3)
	payload[0] = CmdBrightness
	binary.LittleEndian.PutUint16(payload[1:], level)
	return payload
}

// EncodeColor returns the command payload setting all four color channels.
// Each channel is a 16-bit little-endian word with its marker bits set,
// preceded by the fixed fade/reserved framing.
func EncodeColor(white, red, green, blue uint16) []byte {
	payload := make([]byte, 0, 13)
	payload = append(payload, CmdColor)
	payload = append(payload, colorFraming...)
	payload = binary.LittleEndian.AppendUint16(payload, white|markerWhite)
	payload = binary.LittleEndian.AppendUint16(payload, red|markerRed)
	payload = binary.LittleEndian.AppendUint16(payload, green|markerGreen)
	payload = binary.LittleEndian.AppendUint16(payload, blue|markerBlue)
	return payload
}

// EncodeName returns the command payload renaming the bulb.  The name is sent
// unbounded, the bulb truncates what it cannot store.
func EncodeName(name string) []byte {
	return append([]byte{CmdName}, name...)
}

// QueryBrightness returns the command payload requesting a BrightnessReport
func QueryBrightness() []byte {
	return []byte{CmdBrightness}
}

// QueryColor returns the command payload requesting a ColorReport
func QueryColor() []byte {
	return []byte{CmdColor}
}

// QueryName returns the command payload requesting a NameReport
func QueryName() []byte {
	return []byte{CmdName}
}

// DecodeNotification parses a payload received from the bulb.  The first byte
// selects the notification type:
//
//   - CmdBrightness: the remaining bytes are the level, little-endian.
//   - CmdColor: the final eight bytes are four little-endian words in
//     white/red/green/blue order, channel markers stripped by XOR.  Reading
//     from the tail skips whatever framing the bulb echoes ahead of the
//     channel words.
//   - CmdName: the remaining bytes are the UTF-8 name.  A payload that is not
//     valid UTF-8 decodes to UnknownName rather than failing.
func DecodeNotification(data []byte) (Notification, error) {
	if len(data) == 0 {
		return nil, common.ErrShortPayload
	}

	tag, values := data[0], data[1:]
	switch tag {
	case CmdBrightness:
		if len(values) == 0 {
			return nil, common.ErrShortPayload
		}
		var level uint64
		for i := len(values) - 1; i >= 0; i-- {
			level = level<<8 | uint64(values[i])
		}
		if level > MaxValue {
			level = MaxValue
		}
		return BrightnessReport{Level: uint16(level)}, nil

	case CmdColor:
		if len(values) < 8 {
			return nil, common.ErrShortPayload
		}
		tail := values[len(values)-8:]
		return ColorReport{
			White: binary.LittleEndian.Uint16(tail[0:2]) ^ markerWhite,
			Red:   binary.LittleEndian.Uint16(tail[2:4]) ^ markerRed,
			Green: binary.LittleEndian.Uint16(tail[4:6]) ^ markerGreen,
			Blue:  binary.LittleEndian.Uint16(tail[6:8]) ^ markerBlue,
		}, nil

	case CmdName:
		if !utf8.Valid(values) {
			common.Log.Warnf(`name notification is not valid UTF-8, substituting %q`, UnknownName)
			return NameReport{Name: UnknownName}, nil
		}
		return NameReport{Name: string(values)}, nil
	}

	return nil, common.ErrUnknownCommand
}
