package stream

import (
	"sync"

	"iot-fabric/internal/vision/camera"
)

// LatestFrame is the single-writer, many-reader slot holding the most
// recently captured frame. Reads clone under the mutex and release it
// before encoding, so a slow reader never blocks the writer.
type LatestFrame struct {
	mu    sync.Mutex
	frame camera.Frame
}

// Store replaces the held frame. Called by the capture thread only.
func (l *LatestFrame) Store(f camera.Frame) {
	l.mu.Lock()
	l.frame = f
	l.mu.Unlock()
}

// Load returns a copy of the held frame. Empty if nothing has been
// captured yet.
func (l *LatestFrame) Load() camera.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.frame
	jpeg := make([]byte, len(f.JPEG))
	copy(jpeg, f.JPEG)
	f.JPEG = jpeg
	return f
}
