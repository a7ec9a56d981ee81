// Package webhook provides an HTTP ingestion surface that turns inbound
// webhook calls into engine events.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/protocol"
)

// TokenHeader carries the shared secret on inbound webhook calls.
const TokenHeader = "X-Webhook-Token"

type payload struct {
	Type      string         `json:"type"`
	ContactID string         `json:"contact_id"`
	Payload   map[string]any `json:"payload"`
}

// Source is a standalone HTTP listener accepting POST /events. An empty
// token disables authentication; intended for local development only.
type Source struct {
	port     int
	token    string
	server   *http.Server
	callback protocol.EventCallback
	logger   *slog.Logger
}

func NewSource(port int, token string, logger *slog.Logger) *Source {
	return &Source{
		port:   port,
		token:  token,
		logger: logger.With("module", "webhook_source", "port", port),
	}
}

func (s *Source) Start(ctx context.Context, callback protocol.EventCallback) error {
	if callback == nil {
		return errors.New("webhook source requires a callback")
	}

	s.callback = callback

	mux := http.NewServeMux()
	mux.HandleFunc("POST /events", s.handleEvent)

	s.server = &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.InfoContext(ctx, "Starting webhook source")

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "Webhook source server failed", "error", err)
		}
	}()

	return nil
}

func (s *Source) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "Stopping webhook source")

	return s.server.Shutdown(ctx)
}

func (s *Source) handleEvent(w http.ResponseWriter, r *http.Request) {
	if s.token != "" {
		provided := r.Header.Get(TokenHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}
	}

	var body payload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)

		return
	}

	if body.Type == "" || body.ContactID == "" {
		http.Error(w, "type and contact_id are required", http.StatusBadRequest)

		return
	}

	event := models.Event{
		Type:       body.Type,
		ContactID:  body.ContactID,
		Payload:    body.Payload,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.callback(r.Context(), event); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to handle webhook event",
			"event_type", event.Type, "error", err)
		http.Error(w, "failed to process event", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprint(w, `{"status":"accepted"}`)
}
