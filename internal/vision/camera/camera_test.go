package camera

import "testing"

func TestFrameEmpty(t *testing.T) {
	if !(Frame{}).Empty() {
		t.Fatal("zero-value Frame should report Empty")
	}
	if (Frame{JPEG: []byte{1, 2, 3}}).Empty() {
		t.Fatal("Frame with JPEG bytes should not report Empty")
	}
}

func TestIsNight(t *testing.T) {
	if !IsNight(30.0, NightThresholdDefault) {
		t.Fatal("expected 30.0 to be below the default night threshold")
	}
	if IsNight(200.0, NightThresholdDefault) {
		t.Fatal("expected 200.0 to be above the default night threshold")
	}
}

func TestStubDeviceCapturesNonEmptyFrame(t *testing.T) {
	dev := NewStubDevice(64, 48)
	f, err := dev.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if f.Empty() {
		t.Fatal("stub device should always produce a non-empty frame")
	}
	if f.Width != 64 || f.Height != 48 {
		t.Fatalf("frame dims = %dx%d, want 64x48", f.Width, f.Height)
	}
}

func TestStubDeviceAverageLuminanceIsDaytime(t *testing.T) {
	dev := NewStubDevice(8, 8)
	f, _ := dev.CaptureFrame()
	avg, err := dev.AverageLuminance(f)
	if err != nil {
		t.Fatalf("AverageLuminance: %v", err)
	}
	if IsNight(avg, NightThresholdDefault) {
		t.Fatalf("stub luminance %v should read as daytime against threshold %v", avg, NightThresholdDefault)
	}
}
