package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWithTriggerData(t *testing.T) {
	triggerData := map[string]any{
		"contact": map[string]any{
			"email": "ada@example.com",
			"name":  "Ada",
		},
		"source": "signup",
	}

	result, err := RenderWithTriggerData("Hello {{.trigger.contact.name}}", triggerData)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", result)
}

func TestRender_TypeCoercion(t *testing.T) {
	data := map[string]any{"count": 3}

	result, err := Render("{{.count}}", data)
	require.NoError(t, err)
	assert.Equal(t, float64(3), result)

	result, err = Render("true", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = Render(`{"a": 1}`, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, result)
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{.broken", nil)
	assert.Error(t, err)
}

func TestRenderConfig(t *testing.T) {
	triggerData := map[string]any{
		"contact": map[string]any{
			"email": "ada@example.com",
		},
	}

	config := map[string]any{
		"to":      "{{.trigger.contact.email}}",
		"subject": "Welcome",
		"retries": 3,
		"headers": map[string]any{
			"X-Contact": "{{.trigger.contact.email}}",
		},
		"tags": []any{"{{.trigger.contact.email}}", "static"},
	}

	rendered, err := RenderConfig(config, triggerData)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", rendered["to"])
	assert.Equal(t, "Welcome", rendered["subject"])
	assert.Equal(t, 3, rendered["retries"])
	assert.Equal(t, map[string]any{"X-Contact": "ada@example.com"}, rendered["headers"])
	assert.Equal(t, []any{"ada@example.com", "static"}, rendered["tags"])
}

func TestRenderConfig_BadTemplate(t *testing.T) {
	_, err := RenderConfig(map[string]any{"to": "{{.broken"}, nil)
	assert.Error(t, err)
}
