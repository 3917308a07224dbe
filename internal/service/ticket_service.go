package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/config"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// allowedTransitions is the ticket lifecycle state machine. Statuses absent
// from the map are terminal.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusTriaged, domain.TicketStatusCancelled},
	domain.TicketStatusTriaged:    {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress: {domain.TicketStatusBlocked, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusBlocked:    {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.TicketStatusCancelled},
}

func transitionAllowed(from, to domain.TicketStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateTicketInput carries ticket intake parameters.
type CreateTicketInput struct {
	Source      domain.TicketSource
	Type        domain.TicketType
	Priority    domain.TicketPriority
	Title       string
	Description string
	PoleNumber  *string
	PONNumber   *string
	ZoneID      *string
	DRNumber    *string
	ProjectID   *string
	Address     *string
	Latitude    *float64
	Longitude   *float64
	FaultCause  *domain.FaultCause
	AssignedTo  *string
	CreatedBy   *string
}

// TicketService owns ticket intake and lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	slaConfigs repository.SLAConfigRepository
	drLookup   *DRLookupService
	dispatcher events.Dispatcher
	slaCfg     config.SLAConfig
	logger     *zap.Logger
	now        func() time.Time
}

// TicketServiceDependencies bundles collaborators.
type TicketServiceDependencies struct {
	TicketRepo    repository.TicketRepository
	SLAConfigRepo repository.SLAConfigRepository
	DRLookup      *DRLookupService
	Dispatcher    events.Dispatcher
	SLAFallback   config.SLAConfig
	Logger        *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketServiceDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		slaConfigs: deps.SLAConfigRepo,
		drLookup:   deps.DRLookup,
		dispatcher: deps.Dispatcher,
		slaCfg:     deps.SLAFallback,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket validates intake, enriches from drop metadata when a DR number
// is present, computes the SLA deadline, and stores the ticket as new.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if !input.Source.Valid() {
		return nil, errorutil.NewValidationError("invalid source", map[string]any{"source": input.Source})
	}
	if !input.Type.Valid() {
		return nil, errorutil.NewValidationError("invalid ticket_type", map[string]any{"ticket_type": input.Type})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", nil)
	}
	if input.FaultCause != nil {
		switch *input.FaultCause {
		case domain.FaultCauseWorkmanship, domain.FaultCauseMaterialFailure, domain.FaultCauseClientDamage,
			domain.FaultCauseThirdParty, domain.FaultCauseEnvironmental, domain.FaultCauseVandalism,
			domain.FaultCauseUnknown:
		default:
			return nil, errorutil.NewValidationError("invalid fault_cause", map[string]any{"fault_cause": *input.FaultCause})
		}
	}

	uid, err := newTicketUID(ctx, s.tickets)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		UID:         uid,
		Source:      input.Source,
		Type:        input.Type,
		Priority:    priority,
		Status:      domain.TicketStatusNew,
		Title:       title,
		Description: input.Description,
		PoleNumber:  input.PoleNumber,
		PONNumber:   input.PONNumber,
		ZoneID:      input.ZoneID,
		ProjectID:   input.ProjectID,
		Address:     input.Address,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		FaultCause:  input.FaultCause,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   input.CreatedBy,
	}

	if input.DRNumber != nil && strings.TrimSpace(*input.DRNumber) != "" {
		normalized := NormalizeDRNumber(*input.DRNumber)
		ticket.DRNumber = &normalized
		s.enrichFromDrop(ctx, ticket, normalized)
	}

	if dueAt := s.resolveDueAt(ctx, ticket.Type, ticket.Priority); dueAt != nil {
		ticket.DueAt = dueAt
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketCreated, ticket.CreatedBy, events.TicketCreatedPayload{
		TicketID:   ticket.ID,
		TicketUID:  ticket.UID,
		Source:     ticket.Source,
		TicketType: ticket.Type,
		Priority:   ticket.Priority,
		PoleNumber: ticket.PoleNumber,
		PONNumber:  ticket.PONNumber,
		ZoneID:     ticket.ZoneID,
		DRNumber:   ticket.DRNumber,
		ProjectID:  ticket.ProjectID,
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_uid", ticket.UID),
		zap.String("source", string(ticket.Source)))
	return ticket, nil
}

// enrichFromDrop backfills location and scope fields from drop survey data.
// Caller-supplied values always win; lookup failures do not block intake.
func (s *TicketService) enrichFromDrop(ctx context.Context, ticket *domain.Ticket, drNumber string) {
	if s.drLookup == nil {
		return
	}
	record, err := s.drLookup.Lookup(ctx, drNumber)
	if err != nil {
		s.logger.Warn("drop lookup failed during intake",
			zap.String("dr_number", drNumber), zap.Error(err))
		return
	}
	if record == nil {
		return
	}

	if ticket.PoleNumber == nil && record.PoleNumber != nil {
		ticket.PoleNumber = record.PoleNumber
	}
	if ticket.PONNumber == nil && record.PONNumber != nil {
		ticket.PONNumber = record.PONNumber
	}
	if ticket.ZoneID == nil && record.ZoneID != nil {
		ticket.ZoneID = record.ZoneID
	}
	if ticket.ProjectID == nil && record.ProjectID != nil {
		ticket.ProjectID = record.ProjectID
	}
	if ticket.Address == nil && record.Address != nil {
		ticket.Address = record.Address
	}
	if ticket.Latitude == nil && record.Latitude != nil {
		ticket.Latitude = record.Latitude
		ticket.Longitude = record.Longitude
	}
}

// resolveDueAt computes the SLA deadline from the sla_configs table, falling
// back to configured per-priority budgets. Nil means no SLA applies.
func (s *TicketService) resolveDueAt(ctx context.Context, ticketType domain.TicketType, priority domain.TicketPriority) *time.Time {
	hours := 0
	if s.slaConfigs != nil {
		policy, err := s.slaConfigs.GetPolicy(ctx, ticketType, priority)
		if err != nil {
			s.logger.Warn("sla policy lookup failed", zap.Error(err))
		} else if policy != nil {
			hours = policy.ResolutionHours
		}
	}
	if hours <= 0 {
		switch priority {
		case domain.TicketPriorityLow:
			hours = s.slaCfg.LowHours
		case domain.TicketPriorityNormal:
			hours = s.slaCfg.NormalHours
		case domain.TicketPriorityHigh:
			hours = s.slaCfg.HighHours
		case domain.TicketPriorityUrgent:
			hours = s.slaCfg.UrgentHours
		}
	}
	if hours <= 0 {
		return nil
	}
	dueAt := s.now().Add(time.Duration(hours) * time.Hour)
	return &dueAt
}

// GetTicket loads one ticket by ID.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewInvalidID("ticket")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errorutil.IsNotFound(err) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

// GetTicketByUID loads one ticket by its human-facing UID.
func (s *TicketService) GetTicketByUID(ctx context.Context, uid string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByUID(ctx, strings.ToUpper(strings.TrimSpace(uid)))
	if err != nil {
		if errorutil.IsNotFound(err) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"uid": uid})
		}
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// UpdateTicketFields applies a partial update. Status changes go through
// UpdateTicketStatus instead.
func (s *TicketService) UpdateTicketFields(ctx context.Context, id string, update repository.TicketUpdate) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewInvalidID("ticket")
	}
	if update.Priority != nil && !update.Priority.Valid() {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": *update.Priority})
	}
	if update.DRNumber != nil {
		normalized := NormalizeDRNumber(*update.DRNumber)
		update.DRNumber = &normalized
	}

	ticket, err := s.tickets.UpdateFields(ctx, id, update)
	if err != nil {
		if errorutil.IsNotFound(err) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

// UpdateTicketStatus moves a ticket through its lifecycle. Entering blocked
// pauses the SLA clock; leaving blocked shifts due_at by the pause duration.
// Closing records who closed the ticket and when.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, id string, newStatus domain.TicketStatus, actor *string, comment string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if oldStatus == newStatus {
		return ticket, nil
	}
	if !transitionAllowed(oldStatus, newStatus) {
		return nil, errorutil.NewConflict(errorutil.CodeConflict,
			fmt.Sprintf("cannot transition ticket from %s to %s", oldStatus, newStatus),
			map[string]any{"from": oldStatus, "to": newStatus})
	}

	now := s.now()
	ticket.Status = newStatus

	var pauseDuration time.Duration
	switch {
	case newStatus == domain.TicketStatusBlocked:
		if ticket.SLAPausedAt == nil {
			ticket.SLAPausedAt = &now
			if trimmed := strings.TrimSpace(comment); trimmed != "" {
				ticket.SLAPauseReason = &trimmed
			}
		}
	case oldStatus == domain.TicketStatusBlocked:
		if ticket.SLAPausedAt != nil {
			pauseDuration = now.Sub(*ticket.SLAPausedAt)
			if ticket.DueAt != nil {
				shifted := ticket.DueAt.Add(pauseDuration)
				ticket.DueAt = &shifted
			}
			ticket.SLAPausedAt = nil
			ticket.SLAPauseReason = nil
		}
	}

	if newStatus == domain.TicketStatusClosed || newStatus == domain.TicketStatusCancelled {
		ticket.ClosedAt = &now
		ticket.ClosedBy = actor
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}

	s.publish(ctx, events.EventTicketStatusChanged, actor, events.TicketStatusChangedPayload{
		TicketID:  ticket.ID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	})
	if newStatus == domain.TicketStatusBlocked {
		s.publish(ctx, events.EventTicketSLAPaused, actor, events.TicketSLAPausedPayload{
			TicketID: ticket.ID,
			PausedAt: now,
			Reason:   ticket.SLAPauseReason,
			DueAt:    ticket.DueAt,
		})
	}
	if oldStatus == domain.TicketStatusBlocked && pauseDuration > 0 {
		s.publish(ctx, events.EventTicketSLAResumed, actor, events.TicketSLAResumedPayload{
			TicketID:      ticket.ID,
			PauseDuration: pauseDuration,
			DueAt:         ticket.DueAt,
		})
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)))
	return ticket, nil
}

// CancelTicket soft-deletes a ticket by moving it to cancelled.
func (s *TicketService) CancelTicket(ctx context.Context, id string, actor *string, reason string) (*domain.Ticket, error) {
	return s.UpdateTicketStatus(ctx, id, domain.TicketStatusCancelled, actor, reason)
}

// PurgeTicket physically deletes a ticket row. Reserved for data corrections.
func (s *TicketService) PurgeTicket(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errorutil.NewInvalidID("ticket")
	}
	if err := s.tickets.Purge(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return err
	}
	s.logger.Warn("ticket purged", zap.String("ticket_id", id))
	return nil
}

// ListBreachedTickets returns open tickets whose SLA deadline has passed.
func (s *TicketService) ListBreachedTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if len(filter.Statuses) == 0 {
		filter.Statuses = []domain.TicketStatus{
			domain.TicketStatusNew,
			domain.TicketStatusTriaged,
			domain.TicketStatusAssigned,
			domain.TicketStatusInProgress,
		}
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	breached := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.SLABreached(now) {
			breached = append(breached, ticket)
		}
	}
	return breached, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, actor *string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// newTicketUID generates a human-facing FT-prefixed ticket UID, retrying on
// the rare collision.
func newTicketUID(ctx context.Context, tickets repository.TicketRepository) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		uid := fmt.Sprintf("FT%06d", rand.IntN(1000000))
		_, err := tickets.GetByUID(ctx, uid)
		if errors.Is(err, pgx.ErrNoRows) {
			return uid, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errorutil.NewInternalError(errors.New("could not allocate unique ticket UID"))
}
