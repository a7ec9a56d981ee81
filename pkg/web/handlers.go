// Package web provides HTTP handlers and REST API endpoints for automation management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/events"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/registry"
	"github.com/cadencehq/cadence/pkg/services"
)

type APIHandlers struct {
	automationService *services.Automation
	workflowService   *services.Workflow
	settingsService   *services.Settings
	persistence       persistence.Persistence
	validator         *validator.Validate
	registry          *registry.Registry
	eventBus          eventbus.EventPublisher
}

func NewAPIHandlers(
	automationService *services.Automation,
	workflowService *services.Workflow,
	settingsService *services.Settings,
	p persistence.Persistence,
	validator *validator.Validate,
	registry *registry.Registry,
	eventBus eventbus.EventPublisher,
) *APIHandlers {
	return &APIHandlers{
		automationService: automationService,
		workflowService:   workflowService,
		settingsService:   settingsService,
		persistence:       p,
		validator:         validator,
		registry:          registry,
		eventBus:          eventBus,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.automationService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Cadence API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Cadence API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	automations, err := h.automationService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"automations": automations,
		"total_count": len(automations),
	})
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req CreateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.automationService.Create(c.Context(), automationFromCreateRequest(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req UpdateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.automationService.Update(c.Context(), id, automationFromCreateRequest(CreateAutomationRequest(req)))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	if err := h.automationService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) EnableAutomation(c fiber.Ctx) error {
	return h.setAutomationEnabled(c, true)
}

func (h *APIHandlers) DisableAutomation(c fiber.Ctx) error {
	return h.setAutomationEnabled(c, false)
}

func (h *APIHandlers) setAutomationEnabled(c fiber.Ctx, enabled bool) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.SetEnabled(c.Context(), id, enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) GetAutomationLogs(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	logs, err := h.persistence.ExecutionLogs().ListByAutomation(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":        logs,
		"total_count": len(logs),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), workflowFromCreateRequest(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), id, workflowFromCreateRequest(CreateWorkflowRequest(req)))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) EnableWorkflow(c fiber.Ctx) error {
	return h.setWorkflowEnabled(c, true)
}

func (h *APIHandlers) DisableWorkflow(c fiber.Ctx) error {
	return h.setWorkflowEnabled(c, false)
}

func (h *APIHandlers) setWorkflowEnabled(c fiber.Ctx, enabled bool) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.SetEnabled(c.Context(), id, enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetEnrollmentLogs(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Enrollment ID is required")
	}

	logs, err := h.persistence.ExecutionLogs().ListByEnrollment(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":        logs,
		"total_count": len(logs),
	})
}

func (h *APIHandlers) GetContactEnrollments(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Contact ID is required")
	}

	enrollments, err := h.workflowService.EnrollmentsByContact(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"enrollments": enrollments,
		"total_count": len(enrollments),
	})
}

func (h *APIHandlers) GetSettings(c fiber.Ctx) error {
	settings, err := h.settingsService.Get(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(settings)
}

func (h *APIHandlers) UpdateSettings(c fiber.Ctx) error {
	var settings models.ComplianceSettings
	if err := c.Bind().JSON(&settings); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.settingsService.Update(c.Context(), settings); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(settings)
}

func (h *APIHandlers) GetSenders(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"senders": h.registry.Available(),
	})
}

func (h *APIHandlers) GetSenderSchema(c fiber.Ctx) error {
	senderType := c.Params("type")
	if senderType == "" {
		return badRequest(c, "Sender type is required")
	}

	schema, err := h.registry.Schema(senderType)
	if err != nil {
		return notFound(c, "Sender type not registered")
	}

	return c.JSON(fiber.Map{
		"type":   senderType,
		"schema": schema,
	})
}

// IngestEvent accepts an external event and publishes it onto the bus for
// the workers to match and execute.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := events.EventReceived{
		BaseEvent: events.NewBaseEvent(events.EventReceivedEvent),
		Event: models.Event{
			Type:       req.Type,
			ContactID:  req.ContactID,
			Payload:    req.Payload,
			OccurredAt: time.Now().UTC(),
		},
	}

	if err := h.eventBus.Publish(c.Context(), req.ContactID, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
	})
}
