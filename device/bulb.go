// Package device implements the session layer for a single Avea bulb.
//
// A Bulb owns at most one live transport connection and tracks the last-known
// bulb state.  Operations are best-effort by design: a bulb on a flaky radio
// link that cannot be reached, or that never answers a query, degrades to a
// boolean failure or a stale cached value rather than an error.  All
// interaction should occur via bulbs obtained from the avea package.
package device

import (
	"sync"
	"time"

	"github.com/k0rventen/avea/common"
	"github.com/k0rventen/avea/protocol"
)

// GATT characteristics required from the transport's service model
const (
	// ControlCharacteristic carries every command and notification
	ControlCharacteristic = `f815e811-456c-6761-746f-4d756e696368`
	// FirmwareCharacteristic is the read-only standard firmware revision
	// string
	FirmwareCharacteristic = `00002a26-0000-1000-8000-00805f9b34fb`
)

const (
	// DefaultConnectTimeout bounds one transport connection attempt
	DefaultConnectTimeout = 10 * time.Second
	// DefaultReplyTimeout bounds the wait for a matching notification
	DefaultReplyTimeout = 1 * time.Second
	// DefaultSettleDelay is slept before a query, the bulb returns garbage
	// when queried directly after a state change
	DefaultSettleDelay = 500 * time.Millisecond

	lookupTimeout   = 4 * time.Second
	notifyChanSize  = 32
	rgbChannelScale = 16
)

// awaiter is the single in-flight reply wait a Bulb may carry.  A zero tag
// accepts any notification.
type awaiter struct {
	tag  byte
	done chan struct{}
}

// Bulb represents one Avea bulb.  Public operations on the same Bulb are
// serialized, a second caller queues until the first completes.  Multiple
// bulbs may be operated on concurrently.
type Bulb struct {
	address        string
	advertisedName string

	transport common.Transport
	handle    common.ConnectionHandle

	name            string
	brightness      uint16
	white           uint16
	red             uint16
	green           uint16
	blue            uint16
	firmwareVersion string
	colorKnown      bool

	await       *awaiter
	notifyInput chan []byte
	quitChan    chan struct{}

	connectTimeout time.Duration
	replyTimeout   time.Duration
	settleDelay    time.Duration

	subscriptions map[string]*common.Subscription

	opMu sync.Mutex // serializes public operations
	sync.RWMutex    // guards state, connection and correlation fields
}

// New returns an unconnected Bulb bound to the device at address.  The
// advertised name may be empty when the bulb was not created by discovery.
func New(transport common.Transport, address, advertisedName string) *Bulb {
	return &Bulb{
		address:        address,
		advertisedName: advertisedName,
		transport:      transport,
		name:           protocol.UnknownName,
		connectTimeout: DefaultConnectTimeout,
		replyTimeout:   DefaultReplyTimeout,
		settleDelay:    DefaultSettleDelay,
		subscriptions:  make(map[string]*common.Subscription),
	}
}

// Address returns the device address the Bulb is bound to
func (b *Bulb) Address() string {
	b.RLock()
	defer b.RUnlock()
	return b.address
}

// AdvertisedName returns the name seen during discovery, empty if unknown
func (b *Bulb) AdvertisedName() string {
	return b.advertisedName
}

// SetReplyTimeout sets the time a query waits for its matching notification
// before falling back to cached state
func (b *Bulb) SetReplyTimeout(timeout time.Duration) {
	b.Lock()
	b.replyTimeout = timeout
	b.Unlock()
}

// SetConnectTimeout sets the time allowed for one connection attempt
func (b *Bulb) SetConnectTimeout(timeout time.Duration) {
	b.Lock()
	b.connectTimeout = timeout
	b.Unlock()
}

// SetSettleDelay sets the delay observed before sending a query
func (b *Bulb) SetSettleDelay(delay time.Duration) {
	b.Lock()
	b.settleDelay = delay
	b.Unlock()
}

// Connect establishes the transport connection and subscribes to the bulb's
// notifications.  Connecting an already connected Bulb succeeds immediately.
// Failures are logged and reported as false, never raised.
func (b *Bulb) Connect() bool {
	b.opMu.Lock()
	defer b.opMu.Unlock()
	return b.connect()
}

// Disconnect closes the transport connection.  Disconnecting a disconnected
// Bulb is a no-op, and transport errors during teardown are swallowed.
func (b *Bulb) Disconnect() {
	b.opMu.Lock()
	defer b.opMu.Unlock()
	b.disconnect()
}

// Close disconnects the Bulb and closes all of its event subscriptions
func (b *Bulb) Close() {
	b.Disconnect()

	b.RLock()
	subs := make([]*common.Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.RUnlock()

	for _, sub := range subs {
		if err := sub.Close(); err != nil && err != common.ErrClosed {
			common.Log.Debugf(`error closing subscription %v: %v`, sub.ID(), err)
		}
	}
}

// SetBrightness sets the bulb brightness, clamped to [0, 4095]
func (b *Bulb) SetBrightness(level int) bool {
	v := protocol.Clamp(level)
	ok := b.withConnection(func() bool {
		if err := b.write(protocol.EncodeBrightness(v), false); err != nil {
			common.Log.Warnf(`could not set brightness on %v: %v`, b.address, err)
			return false
		}
		return true
	})
	if ok {
		b.Lock()
		b.brightness = v
		b.Unlock()
		b.publish(common.EventUpdateBrightness{Level: v})
	}
	return ok
}

// GetBrightness queries the bulb for its brightness.  On timeout or
// transport failure the last-known value is returned.
func (b *Bulb) GetBrightness() uint16 {
	b.withConnection(func() bool {
		return b.sendAndWait(protocol.QueryBrightness(), protocol.CmdBrightness)
	})
	return b.CachedBrightness()
}

// CachedBrightness returns the last-known brightness without touching the
// device
func (b *Bulb) CachedBrightness() uint16 {
	b.RLock()
	defer b.RUnlock()
	return b.brightness
}

// SetColor sets all four color channels, each clamped to [0, 4095]
func (b *Bulb) SetColor(white, red, green, blue int) bool {
	w := protocol.Clamp(white)
	r := protocol.Clamp(red)
	g := protocol.Clamp(green)
	bl := protocol.Clamp(blue)
	ok := b.withConnection(func() bool {
		if err := b.write(protocol.EncodeColor(w, r, g, bl), false); err != nil {
			common.Log.Warnf(`could not set color on %v: %v`, b.address, err)
			return false
		}
		return true
	})
	if ok {
		b.setCachedColor(w, r, g, bl)
	}
	return ok
}

// GetColor queries the bulb for its color and returns the white, red, green
// and blue channels.  On timeout or transport failure the last-known values
// are returned.
func (b *Bulb) GetColor() (white, red, green, blue uint16) {
	b.withConnection(func() bool {
		return b.sendAndWait(protocol.QueryColor(), protocol.CmdColor)
	})
	return b.CachedColor()
}

// CachedColor returns the last-known color channels without touching the
// device
func (b *Bulb) CachedColor() (white, red, green, blue uint16) {
	b.RLock()
	defer b.RUnlock()
	return b.white, b.red, b.green, b.blue
}

// ColorKnown reports whether the cached color was confirmed by the device,
// as opposed to an initial default or an optimistic local update
func (b *Bulb) ColorKnown() bool {
	b.RLock()
	defer b.RUnlock()
	return b.colorKnown
}

// SetRGB sets the bulb color from 8-bit RGB values, scaled to the bulb's
// native 12-bit range.  White is always set to 0.
func (b *Bulb) SetRGB(red, green, blue int) bool {
	return b.SetColor(0, red*rgbChannelScale, green*rgbChannelScale, blue*rgbChannelScale)
}

// GetRGB queries the bulb for its color and returns it as 8-bit RGB values
func (b *Bulb) GetRGB() (red, green, blue uint8) {
	_, r, g, bl := b.GetColor()
	return uint8(r / rgbChannelScale), uint8(g / rgbChannelScale), uint8(bl / rgbChannelScale)
}

// SetName renames the bulb.  The bulb truncates names it cannot store.
func (b *Bulb) SetName(name string) bool {
	ok := b.withConnection(func() bool {
		if err := b.write(protocol.EncodeName(name), false); err != nil {
			common.Log.Warnf(`could not set name on %v: %v`, b.address, err)
			return false
		}
		return true
	})
	if ok {
		b.Lock()
		b.name = name
		b.Unlock()
		b.publish(common.EventUpdateName{Name: name})
	}
	return ok
}

// GetName queries the bulb for its name.  On timeout or transport failure
// the last-known name is returned.
func (b *Bulb) GetName() string {
	b.withConnection(func() bool {
		return b.sendAndWait(protocol.QueryName(), protocol.CmdName)
	})
	return b.CachedName()
}

// CachedName returns the last-known name without touching the device
func (b *Bulb) CachedName() string {
	b.RLock()
	defer b.RUnlock()
	return b.name
}

// GetFirmwareVersion reads the bulb's firmware revision.  On failure the
// last-known value is returned, empty if it was never read.
func (b *Bulb) GetFirmwareVersion() string {
	b.withConnection(func() bool {
		b.RLock()
		handle := b.handle
		b.RUnlock()
		if handle == nil {
			return false
		}
		data, err := b.transport.Read(handle, FirmwareCharacteristic)
		if err != nil {
			common.Log.Warnf(`could not read firmware version from %v: %v`, b.address, err)
			return false
		}
		b.Lock()
		b.firmwareVersion = string(data)
		b.Unlock()
		return true
	})
	b.RLock()
	defer b.RUnlock()
	return b.firmwareVersion
}

// NewSubscription returns a new *common.Subscription for receiving events
// from this Bulb.
func (b *Bulb) NewSubscription() (*common.Subscription, error) {
	sub := common.NewSubscription(b)
	b.Lock()
	b.subscriptions[sub.ID()] = sub
	b.Unlock()
	return sub, nil
}

// CloseSubscription is a callback for handling the closing of subscriptions.
func (b *Bulb) CloseSubscription(sub *common.Subscription) error {
	b.RLock()
	_, ok := b.subscriptions[sub.ID()]
	b.RUnlock()
	if !ok {
		return common.ErrNotFound
	}
	b.Lock()
	delete(b.subscriptions, sub.ID())
	b.Unlock()

	return nil
}

// withConnection runs op with a live connection, serialized against every
// other public operation on this Bulb.  When the connection was opened just
// for this call it is closed again afterwards.
func (b *Bulb) withConnection(op func() bool) bool {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	opened := false
	if !b.isConnected() {
		if !b.connect() {
			return false
		}
		opened = true
	}
	ok := op()
	if opened {
		b.disconnect()
	}
	return ok
}

func (b *Bulb) isConnected() bool {
	b.RLock()
	defer b.RUnlock()
	return b.handle != nil
}

// connect performs the actual connection, callers hold opMu
func (b *Bulb) connect() bool {
	if b.isConnected() {
		return true
	}

	addr := b.Address()
	if addr == `` {
		desc, ok := b.lookup()
		if !ok {
			common.Log.Warnf(`could not find a bulb by discovery`)
			return false
		}
		b.Lock()
		b.address = desc.Address
		b.advertisedName = desc.Name
		b.Unlock()
		addr = desc.Address
	}

	b.RLock()
	timeout := b.connectTimeout
	b.RUnlock()
	handle, err := b.transport.Connect(addr, timeout)
	if err != nil {
		common.Log.Warnf(`could not connect to the bulb at %v: %v`, addr, err)
		return false
	}

	input := make(chan []byte, notifyChanSize)
	quit := make(chan struct{})
	b.Lock()
	b.handle = handle
	b.notifyInput = input
	b.quitChan = quit
	b.Unlock()
	go b.pump(input, quit)

	if err := b.transport.Subscribe(handle, ControlCharacteristic, b.handleNotify); err != nil {
		common.Log.Warnf(`could not subscribe to notifications from %v: %v`, addr, err)
		b.disconnect()
		return false
	}

	common.Log.Debugf(`connected to bulb %v`, addr)
	return true
}

// disconnect performs the actual teardown, callers hold opMu
func (b *Bulb) disconnect() {
	b.Lock()
	handle := b.handle
	quit := b.quitChan
	b.handle = nil
	b.notifyInput = nil
	b.quitChan = nil
	b.Unlock()

	if handle == nil {
		return
	}
	if err := b.transport.Disconnect(handle); err != nil {
		common.Log.Debugf(`error disconnecting from bulb %v: %v`, b.address, err)
	}
	if quit != nil {
		close(quit)
	}
	common.Log.Debugf(`disconnected from bulb %v`, b.address)
}

// lookup resolves a bulb with no known address via a bounded discovery scan
func (b *Bulb) lookup() (common.DeviceDescriptor, bool) {
	descriptors, err := b.transport.Scan(lookupTimeout)
	if err != nil {
		common.Log.Warnf(`discovery lookup failed: %v`, err)
		return common.DeviceDescriptor{}, false
	}
	for _, desc := range descriptors {
		if protocol.MatchesVendor(desc) {
			return desc, true
		}
	}
	return common.DeviceDescriptor{}, false
}

// write sends payload over the control characteristic
func (b *Bulb) write(payload []byte, ack bool) error {
	b.RLock()
	handle := b.handle
	b.RUnlock()
	if handle == nil {
		return common.ErrDisconnected
	}
	return b.transport.Write(handle, ControlCharacteristic, payload, ack)
}

// sendAndWait writes a query after the settle delay and blocks until a
// notification bearing the expected tag arrives or the reply timeout lapses.
// A timeout is a soft failure, the caller proceeds on cached state.  Callers
// hold opMu, so at most one wait is in flight per Bulb.
func (b *Bulb) sendAndWait(cmd []byte, tag byte) bool {
	b.RLock()
	delay, timeout := b.settleDelay, b.replyTimeout
	b.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	done := make(chan struct{})
	b.Lock()
	b.await = &awaiter{tag: tag, done: done}
	b.Unlock()

	if err := b.write(cmd, false); err != nil {
		common.Log.Warnf(`could not write query %#x to %v: %v`, tag, b.address, err)
		b.clearAwait(done)
		return false
	}

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		common.Log.Debugf(`no reply for query %#x from %v within %v, using cached state`, tag, b.address, timeout)
		b.clearAwait(done)
		return false
	}
}

// clearAwait abandons the wait identified by done without touching the
// connection
func (b *Bulb) clearAwait(done chan struct{}) {
	b.Lock()
	if b.await != nil && b.await.done == done {
		b.await = nil
	}
	b.Unlock()
}

// handleNotify is invoked by the transport's delivery context and must never
// block, payloads are queued for the pump goroutine
func (b *Bulb) handleNotify(data []byte) {
	b.RLock()
	input, quit := b.notifyInput, b.quitChan
	b.RUnlock()
	if input == nil {
		return
	}
	select {
	case input <- data:
	case <-quit:
	default:
		common.Log.Warnf(`notification queue full on %v, dropping payload`, b.address)
	}
}

// pump is the per-connection background goroutine handling notification
// delivery, it exits when the connection is torn down
func (b *Bulb) pump(input chan []byte, quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case data := <-input:
			b.process(data)
		}
	}
}

// process decodes a notification and merges it into the cached state,
// regardless of whether anyone is waiting on it, then releases a matching
// waiter if one exists
func (b *Bulb) process(data []byte) {
	n, err := protocol.DecodeNotification(data)
	if err != nil {
		common.Log.Warnf(`discarding notification from %v: %v`, b.address, err)
		return
	}

	var event interface{}
	b.Lock()
	switch report := n.(type) {
	case protocol.BrightnessReport:
		if b.brightness != report.Level {
			b.brightness = report.Level
			event = common.EventUpdateBrightness{Level: report.Level}
		}
	case protocol.ColorReport:
		if b.white != report.White || b.red != report.Red || b.green != report.Green || b.blue != report.Blue {
			event = common.EventUpdateColor{White: report.White, Red: report.Red, Green: report.Green, Blue: report.Blue}
		}
		b.white, b.red, b.green, b.blue = report.White, report.Red, report.Green, report.Blue
		b.colorKnown = true
	case protocol.NameReport:
		if b.name != report.Name {
			b.name = report.Name
			event = common.EventUpdateName{Name: report.Name}
		}
	}

	aw := b.await
	if aw != nil && (aw.tag == 0 || aw.tag == n.Tag()) {
		b.await = nil
		close(aw.done)
	}
	b.Unlock()

	if event != nil {
		b.publish(event)
	}
}

// setCachedColor records an optimistic local color update.  The cache no
// longer reflects a device read, so the color is marked unconfirmed.
func (b *Bulb) setCachedColor(white, red, green, blue uint16) {
	b.Lock()
	b.white, b.red, b.green, b.blue = white, red, green, blue
	b.colorKnown = false
	b.Unlock()
	b.publish(common.EventUpdateColor{White: white, Red: red, Green: green, Blue: blue})
}

// publish pushes an event to subscribers
func (b *Bulb) publish(event interface{}) {
	b.RLock()
	subs := make([]*common.Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.RUnlock()

	for _, sub := range subs {
		if err := sub.Write(event); err != nil {
			common.Log.Warnf(`could not publish event to subscription %v: %v`, sub.ID(), err)
		}
	}
}
