//go:build !portaudio

package capture

import "time"

// NewDevice returns a Device stub for builds without the portaudio
// hardware backend, selected by the same "portaudio" build tag.
// Unlike brendaboryszanski-smart-home's microphone_stub.go (which
// errors on every call), this stub must satisfy ReadFrame's blocking
// contract with synthetic silence so the pipeline's producer/consumer
// loop runs at a realistic cadence instead of spinning.
func NewDevice(sampleRate int) Device {
	return &stubDevice{frameInterval: time.Duration(FrameSamples) * time.Second / time.Duration(sampleRate)}
}

type stubDevice struct {
	frameInterval time.Duration
}

func (d *stubDevice) Open() error  { return nil }
func (d *stubDevice) Reset() error { return nil }
func (d *stubDevice) Close() error { return nil }

// ReadFrame blocks for one frame interval (~32ms at 16kHz) before
// returning silence, honoring the Device contract's "blocks until
// FrameSamples samples are available" promise.
func (d *stubDevice) ReadFrame() ([]int16, error) {
	time.Sleep(d.frameInterval)
	return make([]int16, FrameSamples), nil
}
