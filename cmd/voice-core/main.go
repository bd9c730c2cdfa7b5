package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"iot-fabric/internal/bus"
	"iot-fabric/internal/config"
	"iot-fabric/internal/logging"
	"iot-fabric/internal/runtime"
	"iot-fabric/internal/voice"
	"iot-fabric/internal/voice/capture"
	"iot-fabric/internal/voice/intent"
	"iot-fabric/internal/voice/wake"
)

const clientID = "voice_core"

func main() {
	log := logging.New(loggingConfig())

	busCfg, err := config.Load(clientID)
	if err != nil {
		log.Error("loading bus config", "error", err)
		os.Exit(1)
	}

	client, err := bus.New(log, bus.Identity{
		BrokerURL: busCfg.BrokerURL,
		ClientID:  busCfg.ClientID,
		Username:  busCfg.Username,
		Password:  busCfg.Password,
		CADir:     busCfg.CADir,
	})
	if err != nil {
		log.Error("constructing bus client", "error", err)
		os.Exit(1)
	}

	pipeline := voice.New(log, client, capture.NewDevice(capture.SampleRate), wake.NewStubDetector(), intent.NewStubDetector())
	rt := runtime.New(log, client, pipeline, clientID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Initialize(ctx, nil); err != nil {
		log.Error("initialize failed", "error", err)
		os.Exit(1)
	}

	waitForShutdown(ctx, log, rt)
}

func loggingConfig() logging.Config {
	lc := config.LoadLogging()
	return logging.Config{Level: lc.Level, Format: lc.Format}
}

// waitForShutdown supervises the signal handler and the 1 Hz should_run
// poll as a pair of joined goroutines, then calls Stop() on exit.
func waitForShutdown(ctx context.Context, log *logging.Logger, rt *runtime.Runtime) {
	var running atomic.Bool
	running.Store(true)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			running.Store(false)
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for running.Load() {
			select {
			case <-ticker.C:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	g.Wait()
	log.Info("shutdown signal received, stopping")
	rt.Stop()
}
