// Package vision is the vision service's domain Component: capture,
// night-mode enhancement, detection, and the Stream Server's command
// surface (start/stop stream, token issuance, on-demand snapshot).
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"iot-fabric/internal/bus"
	"iot-fabric/internal/errs"
	"iot-fabric/internal/logging"
	"iot-fabric/internal/vision/camera"
	"iot-fabric/internal/vision/detect"
	"iot-fabric/internal/vision/stream"
)

const (
	snapshotTopic   = "home/services/security_camera/snapshot"
	detectionsTopic = "home/services/security_camera/detections"
	streamTopic     = "home/services/security_camera/stream"
	tokenTopic      = "home/services/security_camera/token"
)

// Config carries the capture cadence and night-mode threshold.
type Config struct {
	FPSTarget          int
	NightModeThreshold float64
	HostIP             string
}

// Service is the vision service's domain Component.
type Service struct {
	log       *logging.Logger
	client    *bus.Client
	cfg       Config
	device    camera.Device
	enhancer  camera.Enhancer
	processor detect.Processor
	server    *stream.Server
	frame     *stream.LatestFrame

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs the vision Service. server must already be
// constructed (with its own LatestFrame and TokenStore) but not yet
// started; Start launches it.
func New(log *logging.Logger, client *bus.Client, cfg Config, device camera.Device, enhancer camera.Enhancer, processor detect.Processor, server *stream.Server, frame *stream.LatestFrame) *Service {
	return &Service{
		log:       log.With("component", "vision"),
		client:    client,
		cfg:       cfg,
		device:    device,
		enhancer:  enhancer,
		processor: processor,
		server:    server,
		frame:     frame,
		stopCh:    make(chan struct{}),
	}
}

// Start validates the required collaborators are present and launches
// the capture/detection loop. The Stream Server itself is only started
// on a start_stream command.
func (s *Service) Start(_ context.Context) error {
	if s.device == nil {
		return errs.New(errs.FatalInit, "no camera device present", nil)
	}
	if s.processor == nil {
		return errs.New(errs.FatalInit, "no detection model present", nil)
	}
	s.wg.Add(1)
	go s.captureLoop()
	return nil
}

// Stop signals the capture loop to exit, joins it, and stops the
// Stream Server if it is running.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	if s.server.Running() {
		s.server.Stop()
	}
}

// ProcessCommand parses an inbound command on the vision command topic
// and dispatches it. Malformed or unknown payloads are logged and
// dropped, never propagated as a running-loop error.
func (s *Service) ProcessCommand(_ context.Context, payload []byte) error {
	action, err := parseCommand(payload)
	if err != nil {
		s.log.Warn("dropping malformed vision command", "error", err)
		return nil
	}

	switch action {
	case actionStartStream:
		s.handleStartStream()
	case actionStopStream:
		s.handleStopStream()
	case actionRequestToken:
		s.handleRequestToken()
	case actionSnapshot:
		s.publishSnapshot(s.frame.Load())
	}
	return nil
}

func (s *Service) handleStartStream() {
	if s.server.Running() {
		return
	}
	if err := s.server.Start(); err != nil {
		s.log.Warn("stream TLS unavailable, serving plain TCP", "error", err)
	}
	s.publishStreamStatus(true)
}

func (s *Service) handleStopStream() {
	if !s.server.Running() {
		return
	}
	s.server.Stop()
	s.publishStreamStatus(false)
}

func (s *Service) handleRequestToken() {
	token, expiry, err := s.server.Tokens().Issue()
	if err != nil {
		s.log.Error("token issuance failed", "error", err)
		return
	}
	body, _ := json.Marshal(map[string]any{
		"token":   token,
		"expires": expiry.Unix(),
	})
	if err := s.client.Publish(tokenTopic, body); err != nil {
		s.log.Error("token publish failed", "error", err)
	}
}

func (s *Service) publishStreamStatus(streaming bool) {
	fields := map[string]any{
		"streaming": streaming,
		"timestamp": time.Now().Unix(),
	}
	if streaming {
		fields["url"] = s.cfg.HostIP
		fields["requires_token"] = true
	}
	body, _ := json.Marshal(fields)
	if err := s.client.Publish(streamTopic, body); err != nil {
		s.log.Error("stream status publish failed", "error", err)
	}
}

// captureLoop runs at the configured FPS target: capture, apply
// night-mode enhancement if needed, store the latest frame, run
// detection, and publish detections plus an accompanying snapshot when
// the frame yielded at least one hit.
func (s *Service) captureLoop() {
	defer s.wg.Done()

	interval := time.Second / time.Duration(maxInt(s.cfg.FPSTarget, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		f, err := s.device.CaptureFrame()
		if err != nil {
			s.log.Warn("capture failed", "error", err)
			continue
		}
		if f.Empty() {
			continue
		}

		f = s.applyNightMode(f)
		s.frame.Store(f)

		dets, err := s.processor.Detect(f)
		if err != nil {
			s.log.Warn("detection failed", "error", err)
			continue
		}
		if len(dets) == 0 {
			continue
		}

		s.publishDetections(dets)
		s.publishSnapshot(f)
	}
}

func (s *Service) applyNightMode(f camera.Frame) camera.Frame {
	avg, err := s.device.AverageLuminance(f)
	if err != nil {
		s.log.Warn("luminance read failed", "error", err)
		return f
	}
	if !camera.IsNight(avg, s.cfg.NightModeThreshold) || s.enhancer == nil {
		return f
	}
	enhanced, err := s.enhancer.Enhance(f)
	if err != nil {
		s.log.Warn("night enhancement failed", "error", err)
		return f
	}
	return enhanced
}

func (s *Service) publishDetections(dets []detect.Detection) {
	var personCount, vehicleCount, animalCount int
	for _, d := range dets {
		switch d.Class {
		case "person":
			personCount++
		case "car", "truck", "bus", "motorcycle":
			vehicleCount++
		case "dog", "cat", "bird":
			animalCount++
		}
	}

	body, _ := json.Marshal(map[string]any{
		"detections":    dets,
		"person_count":  personCount,
		"vehicle_count": vehicleCount,
		"animal_count":  animalCount,
		"timestamp":     time.Now().Unix(),
	})
	if err := s.client.Publish(detectionsTopic, body); err != nil {
		s.log.Error("detections publish failed", "error", err)
	}
}

func (s *Service) publishSnapshot(f camera.Frame) {
	if f.Empty() {
		return
	}
	body, _ := json.Marshal(map[string]any{
		"image":     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.JPEG),
		"timestamp": time.Now().Unix(),
		"width":     f.Width,
		"height":    f.Height,
	})
	if err := s.client.Publish(snapshotTopic, body); err != nil {
		s.log.Error("snapshot publish failed", "error", err)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
