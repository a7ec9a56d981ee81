package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence/file"
	"github.com/cadencehq/cadence/pkg/protocol"
	"github.com/cadencehq/cadence/pkg/registry"
	"github.com/cadencehq/cadence/pkg/services"
	"github.com/cadencehq/cadence/pkg/web"
)

type recordingBus struct {
	published []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.published = append(b.published, event)

	return nil
}

type fakeSender struct{}

func (fakeSender) Send(_ context.Context, _ protocol.SendRequest, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{}, nil
}

type fakeFactory struct{}

func (fakeFactory) ID() string                                     { return "send_email" }
func (fakeFactory) Channel() string                                { return "email" }
func (fakeFactory) Create(_ map[string]any) (protocol.Sender, error) { return fakeSender{}, nil }
func (fakeFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func setupTestApp(t *testing.T) (*fiber.App, *recordingBus) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.Register(fakeFactory{})

	bus := &recordingBus{}
	settings := compliance.NewStaticSettings(models.DefaultComplianceSettings())

	handlers := web.NewAPIHandlers(
		services.NewAutomation(p, reg),
		services.NewWorkflow(p, reg),
		services.NewSettings(settings),
		p,
		validator.New(validator.WithRequiredStructEnabled()),
		reg,
		bus,
	)

	app := fiber.New()

	a := app.Group("/automations")
	a.Get("/", handlers.GetAutomations)
	a.Post("/", handlers.CreateAutomation)
	a.Get("/:id", handlers.GetAutomation)
	a.Put("/:id", handlers.UpdateAutomation)
	a.Delete("/:id", handlers.DeleteAutomation)
	a.Post("/:id/enable", handlers.EnableAutomation)
	a.Post("/:id/disable", handlers.DisableAutomation)
	a.Get("/:id/logs", handlers.GetAutomationLogs)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/enable", handlers.EnableWorkflow)
	w.Post("/:id/disable", handlers.DisableWorkflow)

	app.Get("/enrollments/:id/logs", handlers.GetEnrollmentLogs)
	app.Get("/contacts/:id/enrollments", handlers.GetContactEnrollments)
	app.Get("/settings", handlers.GetSettings)
	app.Put("/settings", handlers.UpdateSettings)
	app.Get("/senders", handlers.GetSenders)
	app.Get("/senders/:type/schema", handlers.GetSenderSchema)
	app.Post("/events", handlers.IngestEvent)
	app.Get("/health", handlers.HealthCheck)

	return app, bus
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestCreateAutomation(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/automations/", map[string]any{
		"name":         "Welcome email",
		"trigger_type": "contact.created",
		"actions": []map[string]any{
			{"type": "send_email", "config": map[string]any{"template": "welcome"}},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "Welcome email", body["name"])
}

func TestCreateAutomationValidatesName(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/automations/", map[string]any{
		"name":         "ab",
		"trigger_type": "contact.created",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAutomationNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/automations/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEnableAutomationWithoutActions(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/automations/", map[string]any{
		"name":         "No actions yet",
		"trigger_type": "contact.created",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, _ := decodeBody(t, resp)["id"].(string)
	require.NotEmpty(t, id)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/automations/"+id+"/enable", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkflowLifecycle(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/workflows/", map[string]any{
		"name":                 "Onboarding",
		"trigger_type":         "contact.created",
		"run_once_per_contact": true,
		"steps": []map[string]any{
			{"type": "send_email", "config": map[string]any{"template": "welcome"}},
			{"type": "send_email", "config": map[string]any{"template": "followup"}, "delay_minutes": 60},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, _ := decodeBody(t, resp)["id"].(string)
	require.NotEmpty(t, id)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/workflows/"+id+"/enable", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/workflows/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSettingsRoundTrip(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(100), body["email_hourly_limit"])

	settings := models.DefaultComplianceSettings()
	settings.EmailHourlyLimit = 25

	resp, err = app.Test(jsonRequest(t, http.MethodPut, "/settings", settings))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Equal(t, float64(25), body["email_hourly_limit"])
}

func TestSettingsRejectBadClock(t *testing.T) {
	app, _ := setupTestApp(t)

	settings := models.DefaultComplianceSettings()
	settings.QuietHoursStart = "not-a-time"

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/settings", settings))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSenders(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/senders", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, []any{"send_email"}, body["senders"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/senders/send_email/schema", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/senders/unknown/schema", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngestEventPublishes(t *testing.T) {
	app, bus := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/events", map[string]any{
		"type":       "contact.created",
		"contact_id": "42",
		"payload":    map[string]any{"source": "webhook"},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, bus.published, 1)
}

func TestIngestEventRequiresContact(t *testing.T) {
	app, bus := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/events", map[string]any{
		"type": "contact.created",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, bus.published)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
