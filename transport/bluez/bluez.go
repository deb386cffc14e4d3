// Package bluez implements the BLE transport over the BlueZ D-Bus API.
//
// It is the default transport on Linux.  Alternative stacks can be used by
// implementing common.Transport and handing it to avea.NewClient.
package bluez

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/k0rventen/avea/common"
)

const (
	busName     = `org.bluez`
	adapterPath = `/org/bluez/hci0`

	adapterIface = `org.bluez.Adapter1`
	deviceIface  = `org.bluez.Device1`
	gattIface    = `org.bluez.GattCharacteristic1`
	propsIface   = `org.freedesktop.DBus.Properties`

	resolvePollInterval = 100 * time.Millisecond
	signalChanSize      = 16
)

// Transport is a common.Transport backed by a BlueZ adapter on the system
// bus
type Transport struct {
	conn     *dbus.Conn
	signals  chan *dbus.Signal
	handlers map[dbus.ObjectPath]common.NotifyHandler
	mu       sync.RWMutex
}

// connection is the handle issued for one connected device
type connection struct {
	path            dbus.ObjectPath
	address         string
	characteristics map[string]dbus.ObjectPath
	notifying       []dbus.ObjectPath
}

// Address returns the address of the connected device
func (c *connection) Address() string {
	return c.address
}

// New returns a Transport bound to the default BlueZ adapter, or an error if
// BlueZ is not reachable on the system bus
func New() (*Transport, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call(`org.freedesktop.DBus.ListNames`, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%s not found on system bus, is bluetooth.service running?", busName)
	}

	if err := conn.BusObject().Call(
		`org.freedesktop.DBus.AddMatch`, 0,
		`type='signal',interface='`+propsIface+`',member='PropertiesChanged',path_namespace='/org/bluez'`,
	).Err; err != nil {
		return nil, fmt.Errorf("subscribe to property changes: %w", err)
	}

	t := &Transport{
		conn:     conn,
		signals:  make(chan *dbus.Signal, signalChanSize),
		handlers: make(map[dbus.ObjectPath]common.NotifyHandler),
	}
	conn.Signal(t.signals)
	go t.dispatch()

	return t, nil
}

// Close detaches the transport from the bus signal stream and stops its
// dispatch goroutine.  Connections must be disconnected separately.
func (t *Transport) Close() {
	t.conn.RemoveSignal(t.signals)
	close(t.signals)
}

// Scan discovers nearby devices for the supplied duration
func (t *Transport) Scan(timeout time.Duration) ([]common.DeviceDescriptor, error) {
	adapter := t.conn.Object(busName, adapterPath)
	if err := adapter.Call(adapterIface+`.StartDiscovery`, 0).Err; err != nil {
		return nil, fmt.Errorf("start discovery: %w", err)
	}
	time.Sleep(timeout)
	if err := adapter.Call(adapterIface+`.StopDiscovery`, 0).Err; err != nil {
		common.Log.Debugf(`error stopping discovery: %v`, err)
	}

	objects, err := t.managedObjects()
	if err != nil {
		return nil, err
	}

	var descriptors []common.DeviceDescriptor
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok || !strings.HasPrefix(string(path), adapterPath) {
			continue
		}
		descriptors = append(descriptors, descriptorFromProps(props))
	}
	return descriptors, nil
}

// Connect connects to the device at address and resolves its GATT services
func (t *Transport) Connect(address string, timeout time.Duration) (common.ConnectionHandle, error) {
	path := deviceObjectPath(address)
	dev := t.conn.Object(busName, path)
	if err := dev.Call(deviceIface+`.Connect`, 0).Err; err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		var v dbus.Variant
		err := dev.Call(propsIface+`.Get`, 0, deviceIface, `ServicesResolved`).Store(&v)
		if err == nil {
			if resolved, ok := v.Value().(bool); ok && resolved {
				break
			}
		}
		if time.Now().After(deadline) {
			_ = dev.Call(deviceIface+`.Disconnect`, 0).Err
			return nil, fmt.Errorf("services on %s not resolved within %v", address, timeout)
		}
		time.Sleep(resolvePollInterval)
	}

	characteristics, err := t.characteristicsUnder(path)
	if err != nil {
		_ = dev.Call(deviceIface+`.Disconnect`, 0).Err
		return nil, err
	}

	return &connection{
		path:            path,
		address:         address,
		characteristics: characteristics,
	}, nil
}

// Subscribe enables notifications on the characteristic and routes received
// values to handler
func (t *Transport) Subscribe(handle common.ConnectionHandle, characteristic string, handler common.NotifyHandler) error {
	conn, path, err := t.resolve(handle, characteristic)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.handlers[path] = handler
	t.mu.Unlock()

	if err := t.conn.Object(busName, path).Call(gattIface+`.StartNotify`, 0).Err; err != nil {
		t.mu.Lock()
		delete(t.handlers, path)
		t.mu.Unlock()
		return fmt.Errorf("start notify on %s: %w", characteristic, err)
	}
	conn.notifying = append(conn.notifying, path)
	return nil
}

// Write sends payload to the characteristic, as a write-with-response when
// ack is set
func (t *Transport) Write(handle common.ConnectionHandle, characteristic string, payload []byte, ack bool) error {
	_, path, err := t.resolve(handle, characteristic)
	if err != nil {
		return err
	}
	writeType := `command`
	if ack {
		writeType = `request`
	}
	options := map[string]dbus.Variant{`type`: dbus.MakeVariant(writeType)}
	if err := t.conn.Object(busName, path).Call(gattIface+`.WriteValue`, 0, payload, options).Err; err != nil {
		return fmt.Errorf("write to %s: %w", characteristic, err)
	}
	return nil
}

// Read reads the current value of the characteristic
func (t *Transport) Read(handle common.ConnectionHandle, characteristic string) ([]byte, error) {
	_, path, err := t.resolve(handle, characteristic)
	if err != nil {
		return nil, err
	}
	var value []byte
	options := map[string]dbus.Variant{}
	if err := t.conn.Object(busName, path).Call(gattIface+`.ReadValue`, 0, options).Store(&value); err != nil {
		return nil, fmt.Errorf("read from %s: %w", characteristic, err)
	}
	return value, nil
}

// Disconnect stops notifications and closes the connection
func (t *Transport) Disconnect(handle common.ConnectionHandle) error {
	conn, ok := handle.(*connection)
	if !ok {
		return common.ErrNotFound
	}

	for _, path := range conn.notifying {
		if err := t.conn.Object(busName, path).Call(gattIface+`.StopNotify`, 0).Err; err != nil {
			common.Log.Debugf(`error stopping notifications on %v: %v`, path, err)
		}
		t.mu.Lock()
		delete(t.handlers, path)
		t.mu.Unlock()
	}
	conn.notifying = nil

	if err := t.conn.Object(busName, conn.path).Call(deviceIface+`.Disconnect`, 0).Err; err != nil {
		return fmt.Errorf("disconnect from %s: %w", conn.address, err)
	}
	return nil
}

// dispatch routes characteristic value changes to the registered notify
// handlers
func (t *Transport) dispatch() {
	for signal := range t.signals {
		if len(signal.Body) < 2 {
			continue
		}
		iface, ok := signal.Body[0].(string)
		if !ok || iface != gattIface {
			continue
		}
		changed, ok := signal.Body[1].(map[string]dbus.Variant)
		if !ok {
			continue
		}
		raw, ok := changed[`Value`]
		if !ok {
			continue
		}
		value, ok := raw.Value().([]byte)
		if !ok {
			continue
		}

		t.mu.RLock()
		handler := t.handlers[signal.Path]
		t.mu.RUnlock()
		if handler != nil {
			handler(value)
		}
	}
}

func (t *Transport) resolve(handle common.ConnectionHandle, characteristic string) (*connection, dbus.ObjectPath, error) {
	conn, ok := handle.(*connection)
	if !ok {
		return nil, ``, common.ErrNotFound
	}
	path, ok := conn.characteristics[strings.ToLower(characteristic)]
	if !ok {
		return nil, ``, fmt.Errorf("characteristic %s not found on %s", characteristic, conn.address)
	}
	return conn, path, nil
}

func (t *Transport) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := t.conn.Object(busName, `/`).
		Call(`org.freedesktop.DBus.ObjectManager.GetManagedObjects`, 0).
		Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

// characteristicsUnder maps the UUID of every GATT characteristic below the
// device path to its object path
func (t *Transport) characteristicsUnder(device dbus.ObjectPath) (map[string]dbus.ObjectPath, error) {
	objects, err := t.managedObjects()
	if err != nil {
		return nil, err
	}

	characteristics := make(map[string]dbus.ObjectPath)
	for path, ifaces := range objects {
		props, ok := ifaces[gattIface]
		if !ok || !strings.HasPrefix(string(path), string(device)) {
			continue
		}
		if uuid, ok := props[`UUID`].Value().(string); ok {
			characteristics[strings.ToLower(uuid)] = path
		}
	}
	return characteristics, nil
}

func descriptorFromProps(props map[string]dbus.Variant) common.DeviceDescriptor {
	desc := common.DeviceDescriptor{}
	if address, ok := props[`Address`].Value().(string); ok {
		desc.Address = address
	}
	if name, ok := props[`Name`].Value().(string); ok {
		desc.Name = name
	} else if alias, ok := props[`Alias`].Value().(string); ok {
		desc.Name = alias
	}
	if raw, ok := props[`ManufacturerData`].Value().(map[uint16]dbus.Variant); ok {
		desc.ManufacturerData = make(map[uint16][]byte, len(raw))
		for id, blob := range raw {
			if data, ok := blob.Value().([]byte); ok {
				desc.ManufacturerData[id] = data
			}
		}
	}
	if uuids, ok := props[`UUIDs`].Value().([]string); ok {
		desc.ServiceUUIDs = uuids
	}
	return desc
}

// deviceObjectPath converts an address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"
func deviceObjectPath(address string) dbus.ObjectPath {
	return dbus.ObjectPath(adapterPath + `/dev_` + strings.ReplaceAll(address, `:`, `_`))
}
