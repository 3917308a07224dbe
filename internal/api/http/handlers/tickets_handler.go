package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fault-ticket-service/internal/api/dto"
	"github.com/fieldops/fault-ticket-service/internal/auth"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/internal/service"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	input := service.CreateTicketInput{
		Source:      req.Source,
		Type:        req.TicketType,
		Priority:    req.Priority,
		Title:       req.Title,
		Description: req.Description,
		PoleNumber:  req.PoleNumber,
		PONNumber:   req.PONNumber,
		ZoneID:      req.ZoneID,
		DRNumber:    req.DRNumber,
		ProjectID:   req.ProjectID,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		FaultCause:  req.FaultCause,
		AssignedTo:  req.AssignedTo,
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		input.CreatedBy = &principal.OperatorID
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListBreachedTickets GET /tickets/sla/breached.
func (h *TicketsHandler) ListBreachedTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListBreachedTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicketByUID GET /tickets/uid/:uid.
func (h *TicketsHandler) GetTicketByUID(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicketByUID(c.UserContext(), c.Params("uid"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.UpdateTicketFields(c.UserContext(), c.Params("id"), repository.TicketUpdate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		PoleNumber:  req.PoleNumber,
		PONNumber:   req.PONNumber,
		ZoneID:      req.ZoneID,
		DRNumber:    req.DRNumber,
		ProjectID:   req.ProjectID,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		FaultCause:  req.FaultCause,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return errorutil.NewValidationError("status required", nil)
	}

	var actor *string
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor = &principal.OperatorID
	}
	ticket, err := h.service.UpdateTicketStatus(c.UserContext(), c.Params("id"), req.Status, actor, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CancelTicket DELETE /tickets/:id.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	var actor *string
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor = &principal.OperatorID
	}
	ticket, err := h.service.CancelTicket(c.UserContext(), c.Params("id"), actor, c.Query("reason"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if typeStr := c.Query("ticket_type"); typeStr != "" {
		for _, part := range strings.Split(typeStr, ",") {
			filter.Types = append(filter.Types, domain.TicketType(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if source := c.Query("source"); source != "" {
		src := domain.TicketSource(source)
		filter.Source = &src
	}
	if projectID := c.Query("project_id"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if drNumber := c.Query("dr_number"); drNumber != "" {
		normalized := service.NormalizeDRNumber(drNumber)
		filter.DRNumber = &normalized
	}
	if assignedTo := c.Query("assigned_to"); assignedTo != "" {
		filter.AssignedTo = &assignedTo
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:             ticket.ID,
		UID:            ticket.UID,
		Source:         ticket.Source,
		TicketType:     ticket.Type,
		Priority:       ticket.Priority,
		Status:         ticket.Status,
		Title:          ticket.Title,
		Description:    ticket.Description,
		PoleNumber:     ticket.PoleNumber,
		PONNumber:      ticket.PONNumber,
		ZoneID:         ticket.ZoneID,
		DRNumber:       ticket.DRNumber,
		ProjectID:      ticket.ProjectID,
		Address:        ticket.Address,
		Latitude:       ticket.Latitude,
		Longitude:      ticket.Longitude,
		FaultCause:     ticket.FaultCause,
		AssignedTo:     ticket.AssignedTo,
		DueAt:          ticket.DueAt,
		SLAPausedAt:    ticket.SLAPausedAt,
		SLAPauseReason: ticket.SLAPauseReason,
		CreatedBy:      ticket.CreatedBy,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		ClosedAt:       ticket.ClosedAt,
		ClosedBy:       ticket.ClosedBy,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}
