package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fault-ticket-service/internal/api/dto"
	"github.com/fieldops/fault-ticket-service/internal/auth"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/internal/service"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// EscalationsHandler manages repeat-fault escalation endpoints.
type EscalationsHandler struct {
	service *service.EscalationService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalationService *service.EscalationService) *EscalationsHandler {
	return &EscalationsHandler{service: escalationService}
}

// ListEscalations GET /escalations.
func (h *EscalationsHandler) ListEscalations(c *fiber.Ctx) error {
	escalations, err := h.service.ListEscalations(c.UserContext(), parseEscalationQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		items = append(items, escalationResponse(&escalations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetEscalation GET /escalations/:id.
func (h *EscalationsHandler) GetEscalation(c *fiber.Ctx) error {
	escalation, err := h.service.GetEscalation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationResponse(escalation)})
}

// CreateEscalation POST /escalations.
func (h *EscalationsHandler) CreateEscalation(c *fiber.Ctx) error {
	var req dto.CreateEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	escalation, err := h.service.CreateEscalation(c.UserContext(), service.CreateEscalationInput{
		ScopeType:           req.ScopeType,
		ScopeValue:          req.ScopeValue,
		ProjectID:           req.ProjectID,
		FaultThreshold:      req.FaultThreshold,
		ContributingTickets: req.ContributingTickets,
		EscalationType:      req.EscalationType,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": escalationResponse(escalation)})
}

// LinkTickets POST /escalations/:id/tickets.
func (h *EscalationsHandler) LinkTickets(c *fiber.Ctx) error {
	var req dto.LinkTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 {
		return errorutil.NewValidationError("ticket_ids required", nil)
	}

	escalation, err := h.service.LinkContributingTickets(c.UserContext(), c.Params("id"), req.TicketIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationResponse(escalation)})
}

// CreateInfrastructureTicket POST /escalations/:id/infrastructure-ticket.
func (h *EscalationsHandler) CreateInfrastructureTicket(c *fiber.Ctx) error {
	var actor *string
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor = &principal.OperatorID
	}

	escalation, ticket, err := h.service.CreateInfrastructureTicket(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.InfraTicketResponse{
		Escalation: escalationResponse(escalation),
		Ticket:     ticketResponse(ticket),
	}})
}

// ResolveEscalation POST /escalations/:id/resolve.
func (h *EscalationsHandler) ResolveEscalation(c *fiber.Ctx) error {
	var req dto.ResolveEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	resolvedBy := "system"
	if principal, ok := auth.PrincipalFromContext(c); ok {
		resolvedBy = principal.OperatorID
	}

	escalation, err := h.service.ResolveEscalation(c.UserContext(), c.Params("id"), req.Status, req.ResolutionNotes, resolvedBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationResponse(escalation)})
}

// UpdateStatus POST /escalations/:id/status.
func (h *EscalationsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateEscalationStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	escalation, err := h.service.UpdateEscalationStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationResponse(escalation)})
}

func parseEscalationQuery(c *fiber.Ctx) repository.EscalationFilter {
	filter := repository.EscalationFilter{}
	if scopeStr := c.Query("scope_type"); scopeStr != "" {
		for _, part := range strings.Split(scopeStr, ",") {
			filter.ScopeTypes = append(filter.ScopeTypes, domain.ScopeType(strings.TrimSpace(part)))
		}
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.EscalationStatus(strings.TrimSpace(part)))
		}
	}
	if projectID := c.Query("project_id"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if escType := c.Query("escalation_type"); escType != "" {
		et := domain.EscalationType(escType)
		filter.EscalationType = &et
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func escalationResponse(escalation *domain.RepeatFaultEscalation) dto.EscalationResponse {
	contributing := escalation.ContributingTickets
	if contributing == nil {
		contributing = []string{}
	}
	return dto.EscalationResponse{
		ID:                  escalation.ID,
		ScopeType:           escalation.ScopeType,
		ScopeValue:          escalation.ScopeValue,
		ProjectID:           escalation.ProjectID,
		FaultCount:          escalation.FaultCount,
		FaultThreshold:      escalation.FaultThreshold,
		ContributingTickets: contributing,
		EscalationTicketID:  escalation.EscalationTicketID,
		EscalationType:      escalation.EscalationType,
		Status:              escalation.Status,
		ResolutionNotes:     escalation.ResolutionNotes,
		ResolvedAt:          escalation.ResolvedAt,
		ResolvedBy:          escalation.ResolvedBy,
		CreatedAt:           escalation.CreatedAt,
		UpdatedAt:           escalation.UpdatedAt,
	}
}
