// Package capture defines the microphone PCM driver contract. The
// driver itself is out of scope: this package only names
// the interface the Audio Pipeline's producer depends on, plus a stub
// implementation used by default and in tests, and a portaudio-backed
// implementation behind the "portaudio" build tag.
package capture

import "errors"

// FrameSamples is the short frame length used for wake detection:
// 512 samples at 16kHz mono (~32ms).
const FrameSamples = 512

// SampleRate is fixed at 16kHz mono.
const SampleRate = 16000

// ErrUnderrun signals a transient, broken-pipe-style capture failure
// that the producer resets the device and retries for, without
// propagating.
var ErrUnderrun = errors.New("capture: transient underrun")

// Device is the microphone PCM driver contract.
type Device interface {
	// Open prepares the device for reading. Idempotent.
	Open() error
	// ReadFrame blocks until FrameSamples samples are available and
	// returns them. Returns ErrUnderrun on transient underrun.
	ReadFrame() ([]int16, error)
	// Reset recovers the device after ErrUnderrun.
	Reset() error
	// Close releases the device.
	Close() error
}
