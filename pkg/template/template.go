// Package template provides templating for dynamic action configuration.
// Merge fields in step configs ({{.trigger.contact.email}}) are resolved
// against the enrollment's trigger data before a sender runs.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// RenderWithTriggerData renders a template string against an event's
// trigger data. The payload is reachable under .trigger, environment
// variables under .env.
func RenderWithTriggerData(input string, triggerData map[string]any) (any, error) {
	data := map[string]any{
		"trigger": triggerData,
		"env":     getEnvVars(),
	}

	return Render(input, data)
}

// RenderConfig resolves merge fields in every string value of a step
// config, walking nested maps and slices. Non-string values pass through
// untouched.
func RenderConfig(config map[string]any, triggerData map[string]any) (map[string]any, error) {
	rendered := make(map[string]any, len(config))

	for key, value := range config {
		result, err := renderValue(value, triggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to render config key %q: %w", key, err)
		}

		rendered[key] = result
	}

	return rendered, nil
}

func renderValue(value any, triggerData map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v, nil
		}

		return RenderWithTriggerData(v, triggerData)
	case map[string]any:
		return RenderConfig(v, triggerData)
	case []any:
		rendered := make([]any, len(v))

		for i, item := range v {
			result, err := renderValue(item, triggerData)
			if err != nil {
				return nil, err
			}

			rendered[i] = result
		}

		return rendered, nil
	default:
		return value, nil
	}
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("transform").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// Try to parse as JSON if it looks like JSON
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}
	}

	// Try to parse as number
	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	// Try to parse as boolean
	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
