package registry

import (
	"log/slog"

	"github.com/cadencehq/cadence/pkg/senders/email"
	"github.com/cadencehq/cadence/pkg/senders/logsender"
	"github.com/cadencehq/cadence/pkg/senders/sms"
	"github.com/cadencehq/cadence/pkg/senders/webhook"
)

// NewDefaultRegistry registers the built-in senders with settings taken
// from the environment.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	r.Register(email.NewFactory(email.SMTPConfigFromEnv()))
	r.Register(sms.NewFactory(sms.GatewayConfigFromEnv()))
	r.Register(webhook.NewFactory())
	r.Register(logsender.NewFactory())

	return r
}
