package intent

// stubDetector always reports NoCommand, standing in for the real
// intent-resolution backend until one is wired in.
type stubDetector struct{}

// NewStubDetector returns a Detector that never resolves a command.
func NewStubDetector() Detector {
	return &stubDetector{}
}

func (d *stubDetector) Detect(_ []int16) (Command, error) {
	return NoCommand, nil
}
