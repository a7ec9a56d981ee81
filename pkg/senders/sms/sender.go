// Package sms provides the SMS sender. Messages go out through an HTTP
// gateway; retries stay with the engine, a send here is a single attempt.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cadencehq/cadence/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

var (
	ErrMissingGatewayURL = errors.New("sms gateway URL is not configured")
	ErrMissingRecipient  = errors.New("sms step config has no 'to' number")
	ErrMissingMessage    = errors.New("sms step config has no 'message'")
	ErrGatewayRejected   = errors.New("sms gateway rejected the message")
)

// GatewayConfig holds the HTTP gateway settings shared by all SMS sends.
type GatewayConfig struct {
	URL    string
	APIKey string
}

// GatewayConfigFromEnv reads gateway settings from SMS_GATEWAY_*
// environment variables.
func GatewayConfigFromEnv() GatewayConfig {
	return GatewayConfig{
		URL:    os.Getenv("SMS_GATEWAY_URL"),
		APIKey: os.Getenv("SMS_GATEWAY_API_KEY"),
	}
}

// Sender delivers one SMS step through the gateway.
type Sender struct {
	gateway GatewayConfig
	client  *http.Client
	to      string
	message string
}

// NewSender builds a sender from step configuration.
func NewSender(gateway GatewayConfig, client *http.Client, config map[string]any) (*Sender, error) {
	if gateway.URL == "" {
		return nil, ErrMissingGatewayURL
	}

	to, _ := config["to"].(string)
	if to == "" {
		return nil, ErrMissingRecipient
	}

	message, _ := config["message"].(string)
	if message == "" {
		return nil, ErrMissingMessage
	}

	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &Sender{
		gateway: gateway,
		client:  client,
		to:      to,
		message: message,
	}, nil
}

func (s *Sender) Send(ctx context.Context, request protocol.SendRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("sender", "sms", "to", s.to)

	payload, err := json.Marshal(map[string]any{
		"to":      s.to,
		"message": s.message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gateway.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build sms gateway request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if s.gateway.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.gateway.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "SMS gateway request failed", "error", err)

		return nil, fmt.Errorf("sms gateway request failed: %w", err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read sms gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		logger.ErrorContext(ctx, "SMS gateway rejected message", "status", resp.StatusCode)

		return nil, fmt.Errorf("gateway returned status %d: %w", resp.StatusCode, ErrGatewayRejected)
	}

	logger.InfoContext(ctx, "SMS sent")

	return map[string]any{
		"to":     s.to,
		"status": resp.StatusCode,
		"body":   string(body),
	}, nil
}
