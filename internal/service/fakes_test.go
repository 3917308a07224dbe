package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	// errByScope forces ListByScope failures for a scope type.
	errByScope map[domain.ScopeType]error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	return &clone
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) UpdateFields(ctx context.Context, id string, update repository.TicketUpdate) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if update.Title != nil {
		ticket.Title = *update.Title
	}
	if update.Description != nil {
		ticket.Description = *update.Description
	}
	if update.Priority != nil {
		ticket.Priority = *update.Priority
	}
	if update.AssignedTo != nil {
		ticket.AssignedTo = update.AssignedTo
	}
	if update.PoleNumber != nil {
		ticket.PoleNumber = update.PoleNumber
	}
	if update.PONNumber != nil {
		ticket.PONNumber = update.PONNumber
	}
	if update.ZoneID != nil {
		ticket.ZoneID = update.ZoneID
	}
	if update.DRNumber != nil {
		ticket.DRNumber = update.DRNumber
	}
	if update.ProjectID != nil {
		ticket.ProjectID = update.ProjectID
	}
	if update.Address != nil {
		ticket.Address = update.Address
	}
	if update.Latitude != nil {
		ticket.Latitude = update.Latitude
	}
	if update.Longitude != nil {
		ticket.Longitude = update.Longitude
	}
	if update.FaultCause != nil {
		ticket.FaultCause = update.FaultCause
	}
	if update.DueAt != nil {
		ticket.DueAt = update.DueAt
	}
	if update.SLAPauseReason != nil {
		ticket.SLAPauseReason = update.SLAPauseReason
	}
	ticket.UpdatedAt = time.Now()
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) GetByUID(_ context.Context, uid string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.UID == uid {
			return cloneTicket(ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.DRNumber != nil && (ticket.DRNumber == nil || *ticket.DRNumber != *filter.DRNumber) {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeTicketRepo) ListByScope(_ context.Context, query repository.ScopeQuery) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errByScope[query.ScopeType]; err != nil {
		return nil, err
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if !ticketMatchesScope(ticket, query.ScopeType, query.ScopeValue) {
			continue
		}
		if !query.Since.IsZero() && ticket.CreatedAt.Before(query.Since) {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeTicketRepo) CountByScope(ctx context.Context, query repository.ScopeQuery) (int, error) {
	tickets, err := r.ListByScope(ctx, query)
	if err != nil {
		return 0, err
	}
	return len(tickets), nil
}

func (r *fakeTicketRepo) Purge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func ticketMatchesScope(ticket *domain.Ticket, scopeType domain.ScopeType, scopeValue string) bool {
	var field *string
	switch scopeType {
	case domain.ScopePole:
		field = ticket.PoleNumber
	case domain.ScopePON:
		field = ticket.PONNumber
	case domain.ScopeZone:
		field = ticket.ZoneID
	case domain.ScopeDR:
		field = ticket.DRNumber
	}
	return field != nil && *field == scopeValue
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeEscalationRepo struct {
	mu          sync.Mutex
	escalations map[string]*domain.RepeatFaultEscalation
	listErr     error
}

func newFakeEscalationRepo() *fakeEscalationRepo {
	return &fakeEscalationRepo{escalations: make(map[string]*domain.RepeatFaultEscalation)}
}

func cloneEscalation(e *domain.RepeatFaultEscalation) *domain.RepeatFaultEscalation {
	clone := *e
	clone.ContributingTickets = append([]string(nil), e.ContributingTickets...)
	return &clone
}

func (r *fakeEscalationRepo) Create(_ context.Context, escalation *domain.RepeatFaultEscalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.escalations {
		if existing.ScopeType == escalation.ScopeType &&
			existing.ScopeValue == escalation.ScopeValue &&
			existing.Status.Active() {
			return errorutil.NewConflict(errorutil.CodeDuplicateEscalation,
				"active escalation already exists for scope", nil)
		}
	}
	escalation.ID = uuid.NewString()
	escalation.CreatedAt = time.Now()
	escalation.UpdatedAt = escalation.CreatedAt
	r.escalations[escalation.ID] = cloneEscalation(escalation)
	return nil
}

func (r *fakeEscalationRepo) Update(_ context.Context, escalation *domain.RepeatFaultEscalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.escalations[escalation.ID]; !ok {
		return pgx.ErrNoRows
	}
	if escalation.Status.Active() {
		for _, existing := range r.escalations {
			if existing.ID != escalation.ID &&
				existing.ScopeType == escalation.ScopeType &&
				existing.ScopeValue == escalation.ScopeValue &&
				existing.Status.Active() {
				return errorutil.NewConflict(errorutil.CodeDuplicateEscalation,
					"active escalation already exists for scope", nil)
			}
		}
	}
	escalation.UpdatedAt = time.Now()
	r.escalations[escalation.ID] = cloneEscalation(escalation)
	return nil
}

func (r *fakeEscalationRepo) GetByID(_ context.Context, id string) (*domain.RepeatFaultEscalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	escalation, ok := r.escalations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneEscalation(escalation), nil
}

func (r *fakeEscalationRepo) FindActiveByScope(_ context.Context, scopeType domain.ScopeType, scopeValue string) (*domain.RepeatFaultEscalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, escalation := range r.escalations {
		if escalation.ScopeType == scopeType && escalation.ScopeValue == scopeValue && escalation.Status.Active() {
			return cloneEscalation(escalation), nil
		}
	}
	return nil, nil
}

func (r *fakeEscalationRepo) List(_ context.Context, filter repository.EscalationFilter) ([]domain.RepeatFaultEscalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var result []domain.RepeatFaultEscalation
	for _, escalation := range r.escalations {
		if len(filter.Statuses) > 0 && !containsEscalationStatus(filter.Statuses, escalation.Status) {
			continue
		}
		result = append(result, *cloneEscalation(escalation))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func containsEscalationStatus(statuses []domain.EscalationStatus, status domain.EscalationStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeSLAConfigRepo struct {
	policies map[string]*domain.SLAPolicy
}

func newFakeSLAConfigRepo() *fakeSLAConfigRepo {
	return &fakeSLAConfigRepo{policies: make(map[string]*domain.SLAPolicy)}
}

func (r *fakeSLAConfigRepo) set(policy domain.SLAPolicy) {
	r.policies[string(policy.TicketType)+"|"+string(policy.Priority)] = &policy
}

func (r *fakeSLAConfigRepo) GetPolicy(_ context.Context, ticketType domain.TicketType, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	policy, ok := r.policies[string(ticketType)+"|"+string(priority)]
	if !ok {
		return nil, nil
	}
	clone := *policy
	return &clone, nil
}

type fakeDropRepo struct {
	mu    sync.Mutex
	drops map[string]*domain.DropRecord
	calls int
}

func newFakeDropRepo() *fakeDropRepo {
	return &fakeDropRepo{drops: make(map[string]*domain.DropRecord)}
}

func (r *fakeDropRepo) GetByDropNumber(_ context.Context, dropNumber string) (*domain.DropRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	record, ok := r.drops[dropNumber]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (r *fakeDropRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{handlers: make(map[events.EventType][]events.EventHandler)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	handlers := append([]events.EventHandler(nil), d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) published(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
