package email

import (
	"github.com/cadencehq/cadence/pkg/protocol"
)

// Factory builds email senders. One factory shares SMTP settings across
// all steps.
type Factory struct {
	smtp   SMTPConfig
	dialer MessageSender
}

func NewFactory(smtp SMTPConfig) *Factory {
	return &Factory{smtp: smtp}
}

// NewFactoryWithDialer is used by tests to capture outgoing messages.
func NewFactoryWithDialer(smtp SMTPConfig, dialer MessageSender) *Factory {
	return &Factory{smtp: smtp, dialer: dialer}
}

func (*Factory) ID() string {
	return "send_email"
}

func (*Factory) Channel() string {
	return "email"
}

func (f *Factory) Create(config map[string]any) (protocol.Sender, error) {
	return NewSender(f.smtp, f.dialer, config)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports merge fields, e.g. {{.trigger.contact.email}}.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject line.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "HTML body of the email.",
			},
		},
		"required": []string{"to", "subject"},
	}
}
