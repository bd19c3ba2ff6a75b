// Package ble provides the BLE central abstraction used to talk to the
// appliance. It covers scanning, connection management and plain GATT
// reads and writes; the appliance semantics live in package volcano.
package ble

import "context"

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Read returns the current value of the characteristic.
	Read() ([]byte, error)
	// Write sends data to the characteristic (write with response).
	Write(data []byte) error
}

// Service represents a discovered GATT service.
type Service interface {
	// DiscoverCharacteristic finds a characteristic by UUID within this service.
	DiscoverCharacteristic(charUUID string) (Characteristic, error)
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name string
	MAC  string
	RSSI int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverService finds a primary service by UUID.
	DiscoverService(serviceUUID string) (Service, error)
	// Disconnect terminates the connection.
	Disconnect() error
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan reports every advertising peripheral seen until ctx is done.
	// A nil or empty result is not an error.
	Scan(ctx context.Context) ([]Device, error)
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, mac string) (Connection, error)
}
