package protocol

import (
	"context"

	"github.com/cadencehq/cadence/pkg/models"
)

// EventCallback hands an ingested event to the engine.
type EventCallback func(ctx context.Context, event models.Event) error

// EventSource is a running ingestion surface (HTTP endpoint, message
// consumer) that turns external activity into events.
type EventSource interface {
	Start(ctx context.Context, callback EventCallback) error
	Stop(ctx context.Context) error
}
