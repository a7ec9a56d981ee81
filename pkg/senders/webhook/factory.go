package webhook

import (
	"net/http"

	"github.com/cadencehq/cadence/pkg/protocol"
)

// Factory builds webhook senders. Webhooks carry no messaging channel,
// compliance does not apply to them.
type Factory struct {
	client *http.Client
}

func NewFactory() *Factory {
	return &Factory{}
}

// NewFactoryWithClient is used by tests to point at a stub endpoint.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{client: client}
}

func (*Factory) ID() string {
	return "webhook"
}

func (*Factory) Channel() string {
	return ""
}

func (f *Factory) Create(config map[string]any) (protocol.Sender, error) {
	return NewSender(f.client, config)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint to deliver the payload to.",
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method for the delivery.",
				"default":     "POST",
				"enum":        []string{"POST", "PUT", "PATCH"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Extra headers to send with the request.",
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "Explicit payload. Defaults to the event's trigger data.",
			},
		},
		"required": []string{"url"},
	}
}
