// Package fleet drives the configured set of wireless lighting
// peripherals: an ordered reconciliation loop, serialized command
// dispatch, and the bit-exact binary protocol each device speaks.
package fleet

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"iot-fabric/internal/errs"
	"iot-fabric/internal/logging"
)

// Manager is the lighting controller's domain Component.
type Manager struct {
	log     *logging.Logger
	adapter Adapter
	specs   []PeripheralSpec
	tracer  trace.Tracer

	mu          sync.Mutex // guards peripherals; at most this OR no other lock held at once
	peripherals map[string]*Peripheral

	commands *commandQueue

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs a Manager. adapter is the wireless transport
// collaborator; specs is the ordered configured peripheral list loaded
// via LoadConfig.
func New(log *logging.Logger, adapter Adapter, specs []PeripheralSpec) *Manager {
	return &Manager{
		log:         log.With("component", "fleet"),
		adapter:     adapter,
		specs:       specs,
		tracer:      otel.Tracer("iot-fabric/fleet"),
		peripherals: make(map[string]*Peripheral),
		commands:    newCommandQueue(),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the fleet worker goroutine.
func (m *Manager) Start(_ context.Context) error {
	if m.adapter == nil {
		return errs.New(errs.FatalInit, "no wireless adapter present", nil)
	}
	m.wg.Add(1)
	go m.workerLoop()
	return nil
}

// Stop signals the worker to exit and joins it.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.commands.shutdownAndWake()
	})
	m.wg.Wait()

	m.mu.Lock()
	for _, p := range m.peripherals {
		p.Close()
	}
	m.mu.Unlock()
}

// ProcessCommand parses an inbound bus payload and enqueues it for the
// worker loop, which is the single consumer.
func (m *Manager) ProcessCommand(_ context.Context, payload []byte) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		m.log.Warn("dropping malformed fleet command", "error", err)
		return nil
	}
	m.commands.push(cmd)
	return nil
}

func (m *Manager) workerLoop() {
	defer m.wg.Done()

	m.discover(scanTimeout)

	lastReinit := time.Now()
	lastReconnect := time.Now()

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		now := time.Now()
		if now.Sub(lastReinit) >= reinitPeriod {
			m.reinitMissing()
			lastReinit = now
		}
		if now.Sub(lastReconnect) >= reconnectPeriod {
			m.reconnectAll()
			lastReconnect = now
		}

		if cmd, ok := m.commands.popWithTimeout(tickInterval); ok {
			m.dispatch(cmd)
		}
	}
}

// StatusFields implements runtime.StatusEnricher: the Runtime folds
// device_count into the shared home/services/led_manager/status
// heartbeat it publishes every 5s.
func (m *Manager) StatusFields() map[string]any {
	m.mu.Lock()
	count := len(m.peripherals)
	m.mu.Unlock()
	return map[string]any{"device_count": count}
}

// discover performs the initial 5s scan and registers every configured
// address found. Missing devices are warned but not fatal.
func (m *Manager) discover(timeout time.Duration) {
	results, err := m.adapter.Scan(timeout)
	if err != nil {
		m.log.Error("scan failed", "error", err)
		return
	}
	found := make(map[string]bool, len(results))
	for _, r := range results {
		found[normalizeAddress(r.Address)] = true
	}

	for _, spec := range m.specs {
		if !found[spec.Address] {
			m.log.Warn("configured peripheral not found in scan", "address", spec.Address)
			continue
		}
		m.register(spec)
	}
}

func (m *Manager) register(spec PeripheralSpec) {
	writer, err := m.adapter.Open(spec.Address)
	if err != nil {
		m.log.Error("opening peripheral handle failed", "address", spec.Address, "error", err)
		return
	}
	m.mu.Lock()
	m.peripherals[spec.Address] = newPeripheral(spec, writer)
	m.mu.Unlock()
	m.log.Info("registered peripheral", "address", spec.Address)
}

// reinitMissing re-scans and attempts registration for every configured
// address not currently registered. Runs every 60s.
func (m *Manager) reinitMissing() {
	m.mu.Lock()
	missing := make([]PeripheralSpec, 0)
	for _, spec := range m.specs {
		if _, ok := m.peripherals[spec.Address]; !ok {
			missing = append(missing, spec)
		}
	}
	m.mu.Unlock()

	if len(missing) == 0 {
		return
	}

	results, err := m.adapter.Scan(scanTimeout)
	if err != nil {
		m.log.Error("reinit scan failed", "error", err)
		return
	}
	found := make(map[string]bool, len(results))
	for _, r := range results {
		found[normalizeAddress(r.Address)] = true
	}

	for _, spec := range missing {
		if found[spec.Address] {
			m.register(spec)
		}
	}
}

// reconnectAll issues an idempotent connect for every registered
// peripheral. Runs every 10s.
func (m *Manager) reconnectAll() {
	m.mu.Lock()
	peripherals := make([]*Peripheral, 0, len(m.peripherals))
	for _, p := range m.peripherals {
		peripherals = append(peripherals, p)
	}
	m.mu.Unlock()

	for _, p := range peripherals {
		if err := p.EnsureConnected(); err != nil {
			m.log.Warn("reconnect failed", "address", p.Address, "error", err)
		}
	}
}

// dispatch executes a command against the fleet in configured order,
// serialized by the fleet mutex.
func (m *Manager) dispatch(cmd Command) {
	ctx, span := m.tracer.Start(context.Background(), "fleet.dispatch")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch cmd.Action {
	case ActionTurnOn:
		m.forEachOrdered(ctx, func(p *Peripheral) error {
			if err := p.write(onFrame()); err != nil {
				return err
			}
			return p.write(setColorFrame(cyanR, cyanG, cyanB))
		})
	case ActionTurnOff:
		m.forEachOrdered(ctx, func(p *Peripheral) error {
			return p.write(setColorFrame(0, 0, 0))
		})
	case ActionSetColor:
		m.forEachOrdered(ctx, func(p *Peripheral) error {
			return p.write(setColorFrame(cmd.R, cmd.G, cmd.B))
		})
	}
}

// forEachOrdered walks the configured peripheral order, ensuring
// connection and invoking fn on each. A device failure is logged and
// isolated; the batch continues and no peripheral is skipped silently.
func (m *Manager) forEachOrdered(_ context.Context, fn func(*Peripheral) error) {
	for _, spec := range m.specs {
		p, ok := m.peripherals[spec.Address]
		if !ok {
			err := errs.New(errs.Device, "peripheral not yet discovered: "+spec.Address, nil)
			m.log.Error("device error", "address", spec.Address, "error", err, "kind", errs.Of(err))
			continue
		}
		if err := p.EnsureConnected(); err != nil {
			m.log.Error("device error", "address", p.Address, "error", err, "kind", errs.Of(err))
			continue
		}
		if err := fn(p); err != nil {
			m.log.Error("device error", "address", p.Address, "error", err, "kind", errs.Of(err))
		}
	}
}
