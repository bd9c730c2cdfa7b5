// Package voice implements the Audio Pipeline: a
// producer/consumer pair sharing a bounded, drop-oldest queue, a wake
// gate, and a fixed-length command-collection phase.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"iot-fabric/internal/bus"
	"iot-fabric/internal/logging"
	"iot-fabric/internal/voice/capture"
	"iot-fabric/internal/voice/intent"
	"iot-fabric/internal/voice/wake"
)

const (
	commandFrameCount = 125 // ~4s at 512 samples/frame, 16kHz
	commandTopic      = "home/services/led_manager/command"
	preprocessGain    = 1.5
)

// Phase is the pipeline's wake/command state.
type Phase int

const (
	Idle Phase = iota
	CollectingCommand
)

// Pipeline is the voice core's domain Component.
type Pipeline struct {
	log    *logging.Logger
	client *bus.Client
	device capture.Device
	wakeD  wake.Detector
	intentD intent.Detector

	queue *frameQueue

	mu    sync.Mutex
	phase Phase

	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopOnce sync.Once
}

// New constructs a Pipeline. The Component interface (Start/Stop/
// ProcessCommand) is satisfied here so a Runtime can embed it directly.
func New(log *logging.Logger, client *bus.Client, device capture.Device, wakeD wake.Detector, intentD intent.Detector) *Pipeline {
	return &Pipeline{
		log:     log.With("component", "voice"),
		client:  client,
		device:  device,
		wakeD:   wakeD,
		intentD: intentD,
		queue:   newFrameQueue(),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the producer and consumer goroutines.
func (p *Pipeline) Start(_ context.Context) error {
	if err := p.device.Open(); err != nil {
		return err
	}
	p.wg.Add(2)
	go p.producerLoop()
	go p.consumerLoop()
	return nil
}

// Stop signals both loops to exit and joins them in reverse spawn
// order (consumer first, since it was spawned second).
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.queue.shutdownAndWake()
	})
	p.wg.Wait()
	_ = p.device.Close()
}

// ProcessCommand is unused by the voice core: it has no inbound bus
// command topic of its own, so the queue the Runtime feeds is always
// empty. Kept to satisfy runtime.Component.
func (p *Pipeline) ProcessCommand(_ context.Context, _ []byte) error {
	return nil
}

func (p *Pipeline) producerLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		frame, err := p.device.ReadFrame()
		if errors.Is(err, capture.ErrUnderrun) {
			_ = p.device.Reset()
			continue
		}
		if err != nil {
			p.log.Warn("capture error", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if p.queue.len() >= maxQueueLen {
			p.log.Warn("audio queue overflow, dropping oldest")
		}
		p.queue.push(frame)
	}
}

func (p *Pipeline) consumerLoop() {
	defer p.wg.Done()

	for {
		frame, ok := p.queue.pop()
		if !ok {
			return // shutdown, queue empty
		}

		clean := preprocess(frame)

		positive, err := p.wakeD.Detect(clean)
		if err != nil {
			p.log.Warn("wake detection error", "error", err)
			continue
		}
		if !positive {
			continue
		}

		p.log.Info("wake word detected, entering collecting_command")
		p.queue.drain()
		p.setPhase(CollectingCommand)
		p.collectAndResolve()
		p.setPhase(Idle)
	}
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

// Phase reports the current pipeline phase; exported for tests.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// preprocess removes DC bias (integer mean subtraction) then applies a
// fixed 1.5x gain, saturating to int16.
func preprocess(frame []int16) []int16 {
	var sum int64
	for _, s := range frame {
		sum += int64(s)
	}
	mean := sum / int64(len(frame))

	out := make([]int16, len(frame))
	for i, s := range frame {
		centered := float64(int64(s)-mean) * preprocessGain
		out[i] = saturateInt16(centered)
	}
	return out
}

func saturateInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// collectAndResolve accumulates up to commandFrameCount frames (missed
// beats are not refilled, so the buffer may be short), submits them to
// the intent detector, and publishes the resulting command.
func (p *Pipeline) collectAndResolve() {
	buffer := make([]int16, 0, commandFrameCount*capture.FrameSamples)

	for i := 0; i < commandFrameCount; i++ {
		frame, ok := p.queue.popWithDeadline(100 * time.Millisecond)
		if !ok {
			select {
			case <-p.stopCh:
				return
			default:
			}
			continue
		}
		buffer = append(buffer, frame...)
	}

	result, err := p.intentD.Detect(buffer)
	if err != nil {
		p.log.Error("intent detection error", "error", err)
		return
	}

	p.publishIntent(result)
}

func (p *Pipeline) publishIntent(cmd intent.Command) {
	switch cmd {
	case intent.TurnOn:
		p.publishCommand("turn_on")
	case intent.TurnOff:
		p.publishCommand("turn_off")
	case intent.NoCommand, intent.Processing:
		p.log.Info("no actionable command", "intent", cmd.String())
	}
}

func (p *Pipeline) publishCommand(action string) {
	body, _ := json.Marshal(map[string]any{
		"command": action,
		"params":  map[string]any{},
	})
	if err := p.client.Publish(commandTopic, body); err != nil {
		p.log.Error("publishing command failed", "error", err)
	}
}
