package common

import "time"

// DeviceDescriptor describes a device observed during a BLE scan, before any
// connection is made to it.
type DeviceDescriptor struct {
	// Address is the platform specific address of the device, e.g. a MAC on
	// Linux
	Address string
	// Name is the advertised device name, empty if the advertisement did not
	// carry one
	Name string
	// ManufacturerData holds the raw manufacturer specific advertising data,
	// keyed by company identifier
	ManufacturerData map[uint16][]byte
	// ServiceUUIDs lists the advertised service UUIDs in string form
	ServiceUUIDs []string
}

// ConnectionHandle is an opaque reference to one live transport connection,
// issued by Transport.Connect and accepted by the other connection-scoped
// transport operations.
type ConnectionHandle interface {
	// Address returns the address of the connected device
	Address() string
}

// NotifyHandler receives notification payloads pushed by the device over a
// subscribed characteristic.  Handlers are invoked from the transport's
// delivery context and must not block.
type NotifyHandler func(data []byte)

// Transport defines the interface between the bulb session layer and an
// underlying BLE stack.  Implementations own device discovery and the GATT
// primitives, and are expected to perform their own connection retry/backoff
// internally.
type Transport interface {
	// Scan performs BLE discovery for the supplied duration and returns a
	// descriptor for every device observed
	Scan(timeout time.Duration) ([]DeviceDescriptor, error)
	// Connect establishes a connection to the device at address, resolving
	// its GATT services, within the supplied timeout
	Connect(address string, timeout time.Duration) (ConnectionHandle, error)
	// Subscribe enables notifications on the characteristic and delivers
	// every received payload to handler
	Subscribe(handle ConnectionHandle, characteristic string, handler NotifyHandler) error
	// Write sends payload to the characteristic, waiting for a link-layer
	// acknowledgement when ack is true
	Write(handle ConnectionHandle, characteristic string, payload []byte, ack bool) error
	// Read reads the current value of the characteristic
	Read(handle ConnectionHandle, characteristic string) ([]byte, error)
	// Disconnect closes the connection, releasing the handle
	Disconnect(handle ConnectionHandle) error
}
