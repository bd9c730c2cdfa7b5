// Package runtime implements the lifecycle every service embeds around
// its Bus Client and one domain component. It owns the heartbeat
// cadence and the per-service inbound command queue.
package runtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"iot-fabric/internal/bus"
	"iot-fabric/internal/logging"
)

// State is the runtime's lifecycle state machine.
type State int

const (
	Constructed State = iota
	Initializing
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Component is the interface the domain layer implements: one command
// processor and a set of goroutines to spawn/stop at initialize/stop.
type Component interface {
	// ProcessCommand handles a single command payload dequeued by the
	// Runtime, in dequeue order.
	ProcessCommand(ctx context.Context, payload []byte) error
	// Start launches the component's own domain goroutines. It must
	// return once they are launched, not block for their lifetime.
	Start(ctx context.Context) error
	// Stop signals every domain goroutine to exit and blocks until
	// they have joined, in reverse spawn order.
	Stop()
}

// StatusEnricher is an optional Component extension: a domain component
// that has extra fields to fold into the shared heartbeat payload (e.g.
// the Device Fleet's device_count) implements this instead of
// publishing to the status topic itself — the Runtime is the only
// writer of home/services/<id>/status.
type StatusEnricher interface {
	StatusFields() map[string]any
}

const (
	heartbeatInterval = 5 * time.Second
	workerTick        = 100 * time.Millisecond
	commandQueueSize  = 256
)

// Runtime embeds a Bus Client and one domain Component.
type Runtime struct {
	log       *logging.Logger
	client    *bus.Client
	component Component
	clientID  string
	tracer    trace.Tracer

	mu    sync.Mutex
	state State

	running   chan struct{} // closed on Stop
	commands  chan []byte
	workerWG  sync.WaitGroup
	stopOnce  sync.Once
}

// New constructs a Runtime around client and component. topics is the
// set of inbound subscriptions the domain component needs; the Runtime
// installs the sink that feeds the command queue and subscribes to each.
func New(log *logging.Logger, client *bus.Client, component Component, clientID string) *Runtime {
	return &Runtime{
		log:       log.With("component", "runtime"),
		client:    client,
		component: component,
		clientID:  clientID,
		tracer:    otel.Tracer("iot-fabric/runtime"),
		state:     Constructed,
		running:   make(chan struct{}),
		commands:  make(chan []byte, commandQueueSize),
	}
}

func (r *Runtime) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Initialize connects the Bus Client, subscribes to topics, starts the
// domain component's threads, and starts the worker loop. On failure it
// tears down (Stopping -> Stopped) and returns the error; on success the
// Runtime is Running.
func (r *Runtime) Initialize(ctx context.Context, topics []string) error {
	r.setState(Initializing)

	r.client.SetInboundSink(func(_ string, payload []byte) {
		select {
		case r.commands <- payload:
		default:
			r.log.Warn("command queue full, dropping message")
		}
	})

	if err := r.client.Connect(); err != nil {
		r.setState(Stopping)
		r.setState(Stopped)
		return err
	}

	for _, topic := range topics {
		if err := r.client.Subscribe(topic); err != nil {
			r.setState(Stopping)
			r.setState(Stopped)
			return err
		}
	}

	if err := r.component.Start(ctx); err != nil {
		r.setState(Stopping)
		r.setState(Stopped)
		return err
	}

	r.workerWG.Add(1)
	go r.workerLoop(ctx)

	r.setState(Running)
	return nil
}

// workerLoop publishes the heartbeat every 5s, drains the command queue
// calling ProcessCommand for each, and sleeps 100ms between iterations.
// An error inside a single iteration is logged and the loop continues;
// only Initialize can propagate an error upward.
func (r *Runtime) workerLoop(ctx context.Context) {
	defer r.workerWG.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	r.publishHeartbeat("online")

	for {
		select {
		case <-r.running:
			return
		case <-ticker.C:
			r.publishHeartbeat("online")
		case payload := <-r.commands:
			r.handleCommand(ctx, payload)
		case <-time.After(workerTick):
		}
	}
}

func (r *Runtime) handleCommand(ctx context.Context, payload []byte) {
	ctx, span := r.tracer.Start(ctx, "runtime.process_command")
	defer span.End()

	if err := r.component.ProcessCommand(ctx, payload); err != nil {
		r.log.Error("processing command", "error", err)
	}
}

func (r *Runtime) publishHeartbeat(status string) {
	fields := map[string]any{"status": status}
	if enricher, ok := r.component.(StatusEnricher); ok {
		for k, v := range enricher.StatusFields() {
			fields[k] = v
		}
	}
	body, _ := json.Marshal(fields)
	if err := r.client.Publish(r.client.StatusTopic(), body); err != nil {
		r.log.Error("heartbeat publish failed", "error", err)
	}
}

// Stop flips the running flag, joins the worker loop and the domain
// component's threads, publishes the final offline status, and
// disconnects. A second call is a no-op.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		r.setState(Stopping)
		close(r.running)
		r.workerWG.Wait()
		r.component.Stop()

		body, _ := json.Marshal(map[string]string{"status": "offline"})
		if err := r.client.PublishForShutdown(r.client.StatusTopic(), body); err != nil {
			r.log.Error("final status publish abandoned", "error", err)
		}
		r.client.Disconnect()
		r.setState(Stopped)
	})
}
