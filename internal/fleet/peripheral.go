package fleet

import "iot-fabric/internal/errs"

// PeripheralState tracks a peripheral's connection lifecycle.
type PeripheralState int

const (
	NotDiscovered PeripheralState = iota
	DiscoveredDisconnected
	Connected
)

// Peripheral owns an exclusive handle to a wireless endpoint, plus its
// three identifiers. It is owned exclusively by the Fleet — no other
// component obtains a reference (replacing the source's
// shared-pointer device with an owned handle indexed by address).
type Peripheral struct {
	Address            string
	ServiceUUID        string
	CharacteristicUUID string

	writer RemoteWriter
	state  PeripheralState
}

func newPeripheral(spec PeripheralSpec, writer RemoteWriter) *Peripheral {
	return &Peripheral{
		Address:            spec.Address,
		ServiceUUID:        spec.ServiceUUID,
		CharacteristicUUID: spec.CharacteristicUUID,
		writer:             writer,
		state:              DiscoveredDisconnected,
	}
}

// EnsureConnected issues an idempotent connect — a no-op if already
// connected.
func (p *Peripheral) EnsureConnected() error {
	if p.writer.IsConnected() {
		p.state = Connected
		return nil
	}
	if err := p.writer.Connect(); err != nil {
		return errs.New(errs.Device, "connecting to "+p.Address, err)
	}
	p.state = Connected
	return nil
}

func (p *Peripheral) State() PeripheralState { return p.state }

// write sends a raw frame to this peripheral's characteristic,
// checking connection state first.
func (p *Peripheral) write(frame []byte) error {
	if !p.writer.IsConnected() {
		return errs.New(errs.Device, "peripheral disconnected: "+p.Address, nil)
	}
	if err := p.writer.WriteWithoutResponse(p.ServiceUUID, p.CharacteristicUUID, frame); err != nil {
		return errs.New(errs.Device, "write failed for "+p.Address+" char "+p.CharacteristicUUID, err)
	}
	return nil
}

// Close disconnects on destruction.
func (p *Peripheral) Close() {
	if p.writer.IsConnected() {
		_ = p.writer.Disconnect()
	}
}
