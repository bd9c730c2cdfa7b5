package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
)

// stubDevice synthesizes a solid-gray frame, standing in for the real
// camera driver until one is wired in.
type stubDevice struct {
	width, height int
}

// NewStubDevice returns a Device that captures a solid mid-gray frame
// of the given dimensions, encoded as JPEG quality 80.
func NewStubDevice(width, height int) Device {
	return &stubDevice{width: width, height: height}
}

func (d *stubDevice) CaptureFrame() (Frame, error) {
	img := image.NewGray(image.Rect(0, 0, d.width, d.height))
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			img.SetGray(x, y, color.Gray{Y: 96})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return Frame{}, err
	}
	return Frame{JPEG: buf.Bytes(), Width: d.width, Height: d.height}, nil
}

func (d *stubDevice) AverageLuminance(f Frame) (float64, error) {
	return 96.0, nil
}
