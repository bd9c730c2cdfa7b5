package fleet

import (
	"time"

	"iot-fabric/internal/errs"
)

// stubAdapter reports no discovered peripherals, standing in for the
// real wireless transport library until one is wired in.
type stubAdapter struct{}

// NewStubAdapter returns an Adapter that finds nothing and refuses to
// open any address, used until a real BLE/wireless transport is wired
// in.
func NewStubAdapter() Adapter {
	return &stubAdapter{}
}

func (a *stubAdapter) Scan(_ time.Duration) ([]ScanResult, error) {
	return nil, nil
}

func (a *stubAdapter) Open(_ string) (RemoteWriter, error) {
	return nil, errs.New(errs.Device, "no wireless transport wired in", nil)
}
