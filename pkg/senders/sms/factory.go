package sms

import (
	"net/http"

	"github.com/cadencehq/cadence/pkg/protocol"
)

// Factory builds SMS senders sharing one gateway configuration.
type Factory struct {
	gateway GatewayConfig
	client  *http.Client
}

func NewFactory(gateway GatewayConfig) *Factory {
	return &Factory{gateway: gateway}
}

// NewFactoryWithClient is used by tests to point at a stub gateway.
func NewFactoryWithClient(gateway GatewayConfig, client *http.Client) *Factory {
	return &Factory{gateway: gateway, client: client}
}

func (*Factory) ID() string {
	return "send_sms"
}

func (*Factory) Channel() string {
	return "sms"
}

func (f *Factory) Create(config map[string]any) (protocol.Sender, error) {
	return NewSender(f.gateway, f.client, config)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient phone number. Supports merge fields, e.g. {{.trigger.contact.phone}}.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message text.",
			},
		},
		"required": []string{"to", "message"},
	}
}
