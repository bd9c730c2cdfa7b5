package detect

import "iot-fabric/internal/vision/camera"

// stubProcessor reports no detections, standing in for the real model
// until one is wired in.
type stubProcessor struct{}

// NewStubProcessor returns a Processor that never detects anything.
func NewStubProcessor() Processor {
	return &stubProcessor{}
}

func (p *stubProcessor) Detect(_ camera.Frame) ([]Detection, error) {
	return nil, nil
}
