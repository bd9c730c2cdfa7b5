// Adapter and ScanResult name the wireless peripheral transport library
// contract (deliberately out of scope, named interface
// only). Naming follows UseLizard-nocturned's bluetooth package
// (ScanTimeoutSec, ConnectTimeoutSec conventions) and
// mahesh-augmodo-blueowl-ble's hardware.Controller shape.
package fleet

import "time"

const (
	scanTimeout     = 5 * time.Second
	reconnectPeriod = 10 * time.Second
	reinitPeriod    = 60 * time.Second
	tickInterval    = 1 * time.Second
)

// ScanResult is one discovered wireless endpoint.
type ScanResult struct {
	Address string
}

// Adapter is the local wireless radio contract: scan for endpoints and
// obtain a RemoteWriter bound to one address.
type Adapter interface {
	// Scan blocks for the given duration, returning every endpoint seen.
	Scan(timeout time.Duration) ([]ScanResult, error)
	// Open returns a RemoteWriter for address, not yet connected.
	Open(address string) (RemoteWriter, error)
}

// RemoteWriter is the exclusive handle to one wireless endpoint's
// write-without-response characteristic.
type RemoteWriter interface {
	Connect() error
	IsConnected() bool
	Disconnect() error
	// WriteWithoutResponse sends data to (serviceUUID, characteristicUUID).
	WriteWithoutResponse(serviceUUID, characteristicUUID string, data []byte) error
}
