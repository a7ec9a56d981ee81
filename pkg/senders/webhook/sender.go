// Package webhook provides the outbound webhook sender for automation
// steps.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cadencehq/cadence/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

var (
	ErrMissingURL    = errors.New("webhook step config has no 'url'")
	ErrInvalidURL    = errors.New("webhook step config has an invalid 'url'")
	ErrInvalidMethod = errors.New("webhook step config has an invalid 'method'")
	ErrBadStatus     = errors.New("webhook endpoint returned an error status")
)

// Sender posts the step payload to an external HTTP endpoint.
type Sender struct {
	client  *http.Client
	url     string
	method  string
	headers map[string]string
	payload map[string]any
}

// NewSender builds a sender from step configuration. When the config has
// no explicit payload the event's trigger data is sent.
func NewSender(client *http.Client, config map[string]any) (*Sender, error) {
	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return nil, ErrMissingURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	method = strings.ToUpper(method)

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, fmt.Errorf("%q: %w", method, ErrInvalidMethod)
	}

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	payload, _ := config["payload"].(map[string]any)

	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &Sender{
		client:  client,
		url:     rawURL,
		method:  method,
		headers: headers,
		payload: payload,
	}, nil
}

func (s *Sender) Send(ctx context.Context, request protocol.SendRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("sender", "webhook", "url", s.url)

	payload := s.payload
	if payload == nil {
		payload = map[string]any{
			"contact_id": request.ContactID,
			"data":       request.TriggerData,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, s.method, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "Webhook request failed", "error", err)

		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		logger.ErrorContext(ctx, "Webhook endpoint returned error", "status", resp.StatusCode)

		return nil, fmt.Errorf("endpoint returned status %d: %w", resp.StatusCode, ErrBadStatus)
	}

	logger.InfoContext(ctx, "Webhook delivered", "status", resp.StatusCode)

	return map[string]any{
		"status": resp.StatusCode,
		"body":   string(respBody),
	}, nil
}
