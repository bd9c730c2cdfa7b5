package stream

import (
	"testing"

	"iot-fabric/internal/vision/camera"
)

func TestLatestFrameLoadReturnsEmptyBeforeStore(t *testing.T) {
	var lf LatestFrame
	if !lf.Load().Empty() {
		t.Fatal("expected Empty frame before any Store")
	}
}

func TestLatestFrameStoreThenLoad(t *testing.T) {
	var lf LatestFrame
	lf.Store(camera.Frame{JPEG: []byte{1, 2, 3}, Width: 10, Height: 20})

	f := lf.Load()
	if f.Width != 10 || f.Height != 20 || len(f.JPEG) != 3 {
		t.Fatalf("Load() = %+v, want dims 10x20 with 3 JPEG bytes", f)
	}
}

func TestLatestFrameLoadReturnsIndependentCopy(t *testing.T) {
	var lf LatestFrame
	lf.Store(camera.Frame{JPEG: []byte{1, 2, 3}})

	f := lf.Load()
	f.JPEG[0] = 99

	again := lf.Load()
	if again.JPEG[0] == 99 {
		t.Fatal("mutating a loaded frame's JPEG bytes should not affect the stored frame")
	}
}
