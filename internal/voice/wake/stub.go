package wake

// stubDetector never fires, standing in for the real wake-word model
// until one is wired in via PICOVOICE_ACCESS_KEY.
type stubDetector struct{}

// NewStubDetector returns a Detector that never reports a positive.
func NewStubDetector() Detector {
	return &stubDetector{}
}

func (d *stubDetector) Detect(_ []int16) (bool, error) {
	return false, nil
}
