package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/observability"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// CreateEscalationInput carries the parameters for opening an escalation.
type CreateEscalationInput struct {
	ScopeType           domain.ScopeType
	ScopeValue          string
	ProjectID           *string
	FaultThreshold      int
	ContributingTickets []string
	EscalationType      *domain.EscalationType
}

// EscalationService owns the repeat-fault escalation lifecycle.
type EscalationService struct {
	escalations repository.EscalationRepository
	tickets     repository.TicketRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// EscalationServiceDependencies bundles collaborators.
type EscalationServiceDependencies struct {
	EscalationRepo repository.EscalationRepository
	TicketRepo     repository.TicketRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationServiceDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		escalations: deps.EscalationRepo,
		tickets:     deps.TicketRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		now:         time.Now,
	}
}

// CreateEscalation opens a new escalation for a fault cluster. The storage
// layer enforces at most one active escalation per scope; a second create
// surfaces as a duplicate-escalation conflict.
func (s *EscalationService) CreateEscalation(ctx context.Context, input CreateEscalationInput) (*domain.RepeatFaultEscalation, error) {
	if !input.ScopeType.Valid() {
		return nil, errorutil.NewValidationError("invalid scope_type", map[string]any{"scope_type": input.ScopeType})
	}
	scopeValue := strings.TrimSpace(input.ScopeValue)
	if scopeValue == "" {
		return nil, errorutil.NewValidationError("scope_value is required", nil)
	}
	contributing := dedupeIDs(input.ContributingTickets)
	if len(contributing) == 0 {
		return nil, errorutil.NewValidationError("contributing_tickets must not be empty", nil)
	}
	for _, id := range contributing {
		if _, err := uuid.Parse(id); err != nil {
			return nil, errorutil.NewInvalidID("ticket")
		}
	}
	if input.EscalationType != nil && !input.EscalationType.Valid() {
		return nil, errorutil.NewValidationError("invalid escalation_type", map[string]any{"escalation_type": *input.EscalationType})
	}

	escalation := &domain.RepeatFaultEscalation{
		ScopeType:           input.ScopeType,
		ScopeValue:          scopeValue,
		ProjectID:           input.ProjectID,
		FaultCount:          len(contributing),
		FaultThreshold:      input.FaultThreshold,
		ContributingTickets: contributing,
		EscalationType:      input.EscalationType,
		Status:              domain.EscalationStatusOpen,
	}
	if err := s.escalations.Create(ctx, escalation); err != nil {
		return nil, err
	}

	s.metrics.RecordEscalationCreated()
	s.publish(ctx, events.EventEscalationCreated, events.EscalationCreatedPayload{
		EscalationID: escalation.ID,
		ScopeType:    escalation.ScopeType,
		ScopeValue:   escalation.ScopeValue,
		FaultCount:   escalation.FaultCount,
		Threshold:    escalation.FaultThreshold,
	})
	s.logger.Info("escalation created",
		zap.String("escalation_id", escalation.ID),
		zap.String("scope_type", string(escalation.ScopeType)),
		zap.String("scope_value", escalation.ScopeValue),
		zap.Int("fault_count", escalation.FaultCount))
	return escalation, nil
}

// CheckForDuplicateEscalation returns the active escalation covering the
// scope, or nil when the scope is clear.
func (s *EscalationService) CheckForDuplicateEscalation(ctx context.Context, scopeType domain.ScopeType, scopeValue string) (*domain.RepeatFaultEscalation, error) {
	if !scopeType.Valid() {
		return nil, errorutil.NewValidationError("invalid scope_type", map[string]any{"scope_type": scopeType})
	}
	return s.escalations.FindActiveByScope(ctx, scopeType, strings.TrimSpace(scopeValue))
}

// GetEscalation loads one escalation by ID.
func (s *EscalationService) GetEscalation(ctx context.Context, id string) (*domain.RepeatFaultEscalation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewInvalidID("escalation")
	}
	escalation, err := s.escalations.GetByID(ctx, id)
	if err != nil {
		if errorutil.IsNotFound(err) {
			return nil, errorutil.NewNotFound("escalation", map[string]any{"id": id})
		}
		return nil, err
	}
	return escalation, nil
}

// LinkContributingTickets merges additional ticket IDs into an escalation's
// contributing set. Already-linked tickets are skipped; fault_count tracks
// the set size.
func (s *EscalationService) LinkContributingTickets(ctx context.Context, escalationID string, ticketIDs []string) (*domain.RepeatFaultEscalation, error) {
	for _, id := range ticketIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, errorutil.NewInvalidID("ticket")
		}
	}
	escalation, err := s.GetEscalation(ctx, escalationID)
	if err != nil {
		return nil, err
	}

	escalation.ContributingTickets = dedupeIDs(append(escalation.ContributingTickets, ticketIDs...))
	escalation.FaultCount = len(escalation.ContributingTickets)
	if err := s.escalations.Update(ctx, escalation); err != nil {
		return nil, err
	}
	return escalation, nil
}

// CreateInfrastructureTicket opens the infrastructure-level work ticket for an
// escalation and links it. An escalation carries at most one infrastructure
// ticket; a second call is a conflict.
func (s *EscalationService) CreateInfrastructureTicket(ctx context.Context, escalationID string, actor *string) (*domain.RepeatFaultEscalation, *domain.Ticket, error) {
	escalation, err := s.GetEscalation(ctx, escalationID)
	if err != nil {
		return nil, nil, err
	}
	if escalation.EscalationTicketID != nil {
		return nil, nil, errorutil.NewConflict(errorutil.CodeInfraTicketExists,
			"escalation already has an infrastructure ticket", map[string]any{
				"escalation_id":        escalation.ID,
				"escalation_ticket_id": *escalation.EscalationTicketID,
			})
	}

	uid, err := newTicketUID(ctx, s.tickets)
	if err != nil {
		return nil, nil, err
	}

	scopeValue := escalation.ScopeValue
	ticket := &domain.Ticket{
		UID:         uid,
		Source:      domain.TicketSourceConstruction,
		Type:        domain.TicketTypeMaintenance,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusNew,
		Title:       infrastructureTicketTitle(escalation),
		Description: infrastructureTicketDescription(escalation),
		ProjectID:   escalation.ProjectID,
		CreatedBy:   actor,
	}
	switch escalation.ScopeType {
	case domain.ScopePole:
		ticket.PoleNumber = &scopeValue
	case domain.ScopePON:
		ticket.PONNumber = &scopeValue
	case domain.ScopeZone:
		ticket.ZoneID = &scopeValue
	case domain.ScopeDR:
		ticket.DRNumber = &scopeValue
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, nil, err
	}

	escalation.EscalationTicketID = &ticket.ID
	if err := s.escalations.Update(ctx, escalation); err != nil {
		return nil, nil, err
	}

	s.logger.Info("infrastructure ticket created",
		zap.String("escalation_id", escalation.ID),
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_uid", ticket.UID))
	return escalation, ticket, nil
}

// ResolveEscalation closes out an escalation. Resolution notes are mandatory
// and the terminal status must be resolved or no_action.
func (s *EscalationService) ResolveEscalation(ctx context.Context, escalationID string, status domain.EscalationStatus, notes string, resolvedBy string) (*domain.RepeatFaultEscalation, error) {
	if status != domain.EscalationStatusResolved && status != domain.EscalationStatusNoAction {
		return nil, errorutil.NewValidationError("resolution status must be resolved or no_action",
			map[string]any{"status": status})
	}
	trimmedNotes := strings.TrimSpace(notes)
	if trimmedNotes == "" {
		return nil, errorutil.NewValidationError("resolution_notes is required", nil)
	}

	escalation, err := s.GetEscalation(ctx, escalationID)
	if err != nil {
		return nil, err
	}

	resolvedAt := s.now()
	escalation.Status = status
	escalation.ResolutionNotes = &trimmedNotes
	escalation.ResolvedAt = &resolvedAt
	escalation.ResolvedBy = &resolvedBy
	if err := s.escalations.Update(ctx, escalation); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventEscalationResolved, events.EscalationResolvedPayload{
		EscalationID: escalation.ID,
		ScopeType:    escalation.ScopeType,
		ScopeValue:   escalation.ScopeValue,
		Status:       escalation.Status,
		ResolvedBy:   resolvedBy,
	})
	s.logger.Info("escalation resolved",
		zap.String("escalation_id", escalation.ID),
		zap.String("status", string(status)))
	return escalation, nil
}

// UpdateEscalationStatus sets the status without lifecycle checks. Intended
// for operator corrections.
func (s *EscalationService) UpdateEscalationStatus(ctx context.Context, escalationID string, status domain.EscalationStatus) (*domain.RepeatFaultEscalation, error) {
	if !status.Valid() {
		return nil, errorutil.NewValidationError("invalid escalation status", map[string]any{"status": status})
	}
	escalation, err := s.GetEscalation(ctx, escalationID)
	if err != nil {
		return nil, err
	}
	escalation.Status = status
	if err := s.escalations.Update(ctx, escalation); err != nil {
		return nil, err
	}
	return escalation, nil
}

// ListEscalations returns escalations matching the filter, newest first. An
// unmigrated environment (missing table) degrades to an empty list so that
// read paths stay usable.
func (s *EscalationService) ListEscalations(ctx context.Context, filter repository.EscalationFilter) ([]domain.RepeatFaultEscalation, error) {
	escalations, err := s.escalations.List(ctx, filter)
	if err != nil {
		if repository.IsUndefinedTable(err) {
			s.logger.Warn("escalations table missing, returning empty list", zap.Error(err))
			return []domain.RepeatFaultEscalation{}, nil
		}
		return nil, err
	}
	if escalations == nil {
		escalations = []domain.RepeatFaultEscalation{}
	}
	return escalations, nil
}

func (s *EscalationService) publish(ctx context.Context, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// infrastructureTicketTitle renders the work ticket title for a scope. The
// action label comes from the escalation type at read time and defaults to
// Investigation when unset.
func infrastructureTicketTitle(escalation *domain.RepeatFaultEscalation) string {
	action := escalationActionLabel(escalation.EscalationType)
	switch escalation.ScopeType {
	case domain.ScopePole:
		return fmt.Sprintf("Infrastructure %s: Pole %s", action, escalation.ScopeValue)
	case domain.ScopePON:
		return fmt.Sprintf("PON %s: %s", action, escalation.ScopeValue)
	case domain.ScopeZone:
		return fmt.Sprintf("Zone-Wide %s: %s", action, escalation.ScopeValue)
	case domain.ScopeDR:
		return fmt.Sprintf("DR %s: %s", action, escalation.ScopeValue)
	}
	return fmt.Sprintf("%s: %s", action, escalation.ScopeValue)
}

func infrastructureTicketDescription(escalation *domain.RepeatFaultEscalation) string {
	return fmt.Sprintf(
		"Repeat fault pattern detected: %d fault(s) on %s %s within the detection window (threshold: %d). "+
			"Contributing tickets: %s. Investigate the underlying infrastructure issue.",
		escalation.FaultCount,
		escalation.ScopeType,
		escalation.ScopeValue,
		escalation.FaultThreshold,
		strings.Join(escalation.ContributingTickets, ", "),
	)
}

func escalationActionLabel(escalationType *domain.EscalationType) string {
	if escalationType == nil || *escalationType == "" {
		return "Investigation"
	}
	label := string(*escalationType)
	return strings.ToUpper(label[:1]) + label[1:]
}

// dedupeIDs removes duplicates while preserving first-seen order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
