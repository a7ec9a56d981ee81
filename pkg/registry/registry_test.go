package registry

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewDefaultRegistry(logger)
}

func TestRegistry_Available(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, []string{"log", "send_email", "send_sms", "webhook"}, r.Available())
}

func TestRegistry_Channel(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, "email", r.Channel("send_email"))
	assert.Equal(t, "sms", r.Channel("send_sms"))
	assert.Equal(t, "", r.Channel("webhook"))
	assert.Equal(t, "", r.Channel("log"))
	assert.Equal(t, "", r.Channel("unknown"))
}

func TestRegistry_CreateUnknownType(t *testing.T) {
	r := testRegistry()

	_, err := r.Create("teleport", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_ValidateConfig(t *testing.T) {
	r := testRegistry()

	err := r.ValidateConfig("send_email", map[string]any{
		"to":      "ada@example.com",
		"subject": "Welcome",
	})
	assert.NoError(t, err)

	err = r.ValidateConfig("send_email", map[string]any{"to": "ada@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")

	err = r.ValidateConfig("log", map[string]any{"message": "hi", "level": "shout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level")
}

func TestRegistry_CreateValidatesFirst(t *testing.T) {
	r := testRegistry()

	_, err := r.Create("log", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")

	sender, err := r.Create("log", map[string]any{"message": "step reached"})
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestRegistry_Schema(t *testing.T) {
	r := testRegistry()

	schema, err := r.Schema("send_sms")
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])

	_, err = r.Schema("unknown")
	assert.Error(t, err)
}
