//go:build portaudio

package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// NewDevice returns a real microphone capture device backed by
// portaudio, following brendaboryszanski-smart-home's
// internal/infra/audio/microphone.go stream setup.
func NewDevice(sampleRate int) Device {
	return &portaudioDevice{sampleRate: sampleRate}
}

type portaudioDevice struct {
	sampleRate int
	stream     *portaudio.Stream
	buffer     []int16
}

func (d *portaudioDevice) Open() error {
	if d.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	d.buffer = make([]int16, FrameSamples)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(d.sampleRate), FrameSamples, d.buffer)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	d.stream = stream
	return nil
}

func (d *portaudioDevice) ReadFrame() ([]int16, error) {
	if err := d.stream.Read(); err != nil {
		return nil, ErrUnderrun
	}
	frame := make([]int16, FrameSamples)
	copy(frame, d.buffer)
	return frame, nil
}

func (d *portaudioDevice) Reset() error {
	if d.stream == nil {
		return nil
	}
	_ = d.stream.Stop()
	return d.stream.Start()
}

func (d *portaudioDevice) Close() error {
	if d.stream == nil {
		return nil
	}
	_ = d.stream.Stop()
	err := d.stream.Close()
	portaudio.Terminate()
	d.stream = nil
	return err
}
