// Package logsender provides a sender that only writes a log line. It is
// useful for wiring tests and for debugging automation definitions.
package logsender

import (
	"context"
	"log/slog"

	"github.com/cadencehq/cadence/pkg/protocol"
)

type Sender struct {
	message string
	level   string
}

func NewSender(config map[string]any) *Sender {
	message, _ := config["message"].(string)
	level, _ := config["level"].(string)

	if level == "" {
		level = "info"
	}

	return &Sender{message: message, level: level}
}

func (s *Sender) Send(ctx context.Context, request protocol.SendRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("sender", "log", "contact_id", request.ContactID)

	switch s.level {
	case "debug":
		logger.DebugContext(ctx, s.message)
	case "warn", "warning":
		logger.WarnContext(ctx, s.message)
	case "error":
		logger.ErrorContext(ctx, s.message)
	default:
		logger.InfoContext(ctx, s.message)
	}

	return map[string]any{"message": s.message}, nil
}

// Factory builds log senders.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "log"
}

func (*Factory) Channel() string {
	return ""
}

func (*Factory) Create(config map[string]any) (protocol.Sender, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewSender(config), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports merge fields for dynamic content.",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "warning", "error"},
			},
		},
		"required": []string{"message"},
	}
}
