// Package detect names the external-facing contract for the
// object-detection model: the model itself is out of scope, only the
// per-object result shape lives here.
package detect

import "iot-fabric/internal/vision/camera"

// BoundingBox is a normalized (0..1) axis-aligned box.
type BoundingBox struct {
	X, Y, Width, Height float64
}

// Detection is one detected object.
type Detection struct {
	Class      string
	Confidence float64
	Box        BoundingBox
}

// Processor accepts a captured frame and returns every detection found.
type Processor interface {
	Detect(f camera.Frame) ([]Detection, error)
}
