package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/trace"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/engine"
	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/events"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/registry"
)

// WorkerManager owns one worker process: it wires the engine to the event
// bus and runs until a shutdown signal arrives.
type WorkerManager struct {
	id       string
	logger   *slog.Logger
	engine   *engine.Engine
	eventBus eventbus.EventBus
}

func NewWorkerManager(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
	settings compliance.SettingsSource,
	optouts compliance.OptOutStore,
	counter compliance.RateCounter,
	tracer trace.Tracer,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:       id,
		logger:   logger.With("module", "cadence-worker", "worker_id", id),
		engine:   engine.New(p, reg, settings, optouts, counter, eventBus, tracer, logger),
		eventBus: eventBus,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	err := w.eventBus.Handle(events.EventReceivedEvent, w.engine.HandleEventReceived)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.StepDueEvent, w.engine.HandleStepDue)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker...")
	case <-ctx.Done():
		w.logger.InfoContext(ctx, "Context cancelled, shutting down worker...")
	}

	return nil
}
