// Package protocol defines the interfaces between the engine and the
// pluggable pieces around it: channel senders and event ingestion.
package protocol

import (
	"context"
	"log/slog"
)

// SendRequest carries everything a sender needs to deliver one step.
// Config has already had merge fields resolved.
type SendRequest struct {
	ContactID   string
	Config      map[string]any
	TriggerData map[string]any
}

// Sender delivers a single action step over a channel. Implementations
// must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, request SendRequest, logger *slog.Logger) (map[string]any, error)
}

// SenderFactory builds senders from step configuration. Channel names the
// compliance channel the sender delivers on; an empty channel means the
// sender is not subject to messaging compliance (logging, webhooks).
type SenderFactory interface {
	ID() string
	Channel() string
	Create(config map[string]any) (Sender, error)
	Schema() map[string]any
}
