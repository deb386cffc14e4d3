// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file

// Package avea provides a simple Go interface to Elgato Avea bulbs over
// Bluetooth Low Energy.
//
// Also included in cmd/avea is a small CLI utility that allows interacting
// with nearby bulbs.
package avea

import (
	"time"

	"github.com/k0rventen/avea/common"
	"github.com/k0rventen/avea/device"
	"github.com/k0rventen/avea/protocol"
	"github.com/k0rventen/avea/transport/bluez"
)

const (
	// VERSION of this library
	VERSION = `1.0.0`

	// DefaultScanTimeout is the scan window used by the package level
	// Discover helper
	DefaultScanTimeout = 4 * time.Second
)

// Client discovers Avea bulbs and binds them to a BLE transport
type Client struct {
	transport common.Transport
}

// NewClient returns a Client using the supplied transport for discovery and
// for every bulb it creates
func NewClient(t common.Transport) *Client {
	return &Client{transport: t}
}

// Discover scans for the supplied duration and returns an unconnected Bulb
// for every Avea bulb observed.  Finding no bulb is not an error, the
// returned slice is simply empty.
func (c *Client) Discover(timeout time.Duration) ([]*device.Bulb, error) {
	descriptors, err := c.transport.Scan(timeout)
	if err != nil {
		return nil, err
	}

	var bulbs []*device.Bulb
	for _, desc := range descriptors {
		if !protocol.MatchesVendor(desc) {
			continue
		}
		common.Log.Debugf(`discovered bulb %v (%v)`, desc.Address, desc.Name)
		bulbs = append(bulbs, device.New(c.transport, desc.Address, desc.Name))
	}
	return bulbs, nil
}

// NewBulb returns an unconnected Bulb bound to a known device address,
// skipping discovery
func (c *Client) NewBulb(address string) *device.Bulb {
	return device.New(c.transport, address, ``)
}

// Discover scans the BLE neighborhood for Avea bulbs using the default BlueZ
// transport
func Discover(timeout time.Duration) ([]*device.Bulb, error) {
	t, err := bluez.New()
	if err != nil {
		return nil, err
	}
	return NewClient(t).Discover(timeout)
}

// SetLogger allows assigning a custom levelled logger that conforms to the
// common.Logger interface.  To capture logs from the library, you must call
// SetLogger before any other interaction.
func SetLogger(logger common.Logger) {
	common.SetLogger(logger)
}
