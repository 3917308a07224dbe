package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/fieldops/fault-ticket-service/internal/config"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

type ticketTestEnv struct {
	tickets    *fakeTicketRepo
	slaConfigs *fakeSLAConfigRepo
	drops      *fakeDropRepo
	dispatcher *recordingDispatcher
	svc        *TicketService
}

func newTicketTestEnv(slaFallback config.SLAConfig) *ticketTestEnv {
	env := &ticketTestEnv{
		tickets:    newFakeTicketRepo(),
		slaConfigs: newFakeSLAConfigRepo(),
		drops:      newFakeDropRepo(),
		dispatcher: newRecordingDispatcher(),
	}
	lookup := NewDRLookupService(env.drops, nil, nil)
	env.svc = NewTicketService(TicketServiceDependencies{
		TicketRepo:    env.tickets,
		SLAConfigRepo: env.slaConfigs,
		DRLookup:      lookup,
		Dispatcher:    env.dispatcher,
		SLAFallback:   slaFallback,
	})
	return env
}

func validTicketInput() CreateTicketInput {
	return CreateTicketInput{
		Source:   domain.TicketSourceAdHoc,
		Type:     domain.TicketTypeMaintenance,
		Priority: domain.TicketPriorityNormal,
		Title:    "no signal at premises",
	}
}

func TestCreateTicketAssignsUID(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	ticket, err := env.svc.CreateTicket(context.Background(), validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if matched := regexp.MustCompile(`^FT\d{6}$`).MatchString(ticket.UID); !matched {
		t.Errorf("Expected FT-prefixed 6-digit UID, got %q", ticket.UID)
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("Expected new status, got %s", ticket.Status)
	}
	if published := env.dispatcher.published(events.EventTicketCreated); len(published) != 1 {
		t.Errorf("Expected 1 ticket_created event, got %d", len(published))
	}
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	ctx := context.Background()

	input := validTicketInput()
	input.Source = domain.TicketSource("fax")
	if _, err := env.svc.CreateTicket(ctx, input); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for bad source, got %v", err)
	}

	input = validTicketInput()
	input.Title = "   "
	if _, err := env.svc.CreateTicket(ctx, input); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for blank title, got %v", err)
	}
}

func TestCreateTicketEnrichesFromDrop(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	pole := "P-42"
	project := "proj-1"
	address := "14 Main Rd"
	env.drops.drops["DR1734"] = &domain.DropRecord{
		DropNumber: "DR1734",
		PoleNumber: &pole,
		ProjectID:  &project,
		Address:    &address,
	}

	input := validTicketInput()
	dr := " dr1734 "
	input.DRNumber = &dr
	ticket, err := env.svc.CreateTicket(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if ticket.DRNumber == nil || *ticket.DRNumber != "DR1734" {
		t.Errorf("Expected normalized DR number DR1734, got %v", ticket.DRNumber)
	}
	if ticket.PoleNumber == nil || *ticket.PoleNumber != pole {
		t.Error("Expected pole number backfilled from drop record")
	}
	if ticket.ProjectID == nil || *ticket.ProjectID != project {
		t.Error("Expected project backfilled from drop record")
	}
	if ticket.Address == nil || *ticket.Address != address {
		t.Error("Expected address backfilled from drop record")
	}
}

func TestCreateTicketComputesDueAt(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{HighHours: 24})
	env.slaConfigs.set(domain.SLAPolicy{
		TicketType:      domain.TicketTypeMaintenance,
		Priority:        domain.TicketPriorityNormal,
		ResolutionHours: 72,
	})
	ctx := context.Background()

	ticket, err := env.svc.CreateTicket(ctx, validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.DueAt == nil {
		t.Fatal("Expected due_at from sla_configs policy")
	}
	want := time.Until(*ticket.DueAt)
	if want < 71*time.Hour || want > 73*time.Hour {
		t.Errorf("Expected ~72h budget, got %v", want)
	}

	// No policy row for high priority; config fallback applies.
	input := validTicketInput()
	input.Priority = domain.TicketPriorityHigh
	ticket, err = env.svc.CreateTicket(ctx, input)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.DueAt == nil {
		t.Fatal("Expected due_at from fallback config")
	}
	want = time.Until(*ticket.DueAt)
	if want < 23*time.Hour || want > 25*time.Hour {
		t.Errorf("Expected ~24h fallback budget, got %v", want)
	}

	// Neither policy nor fallback for low priority.
	input = validTicketInput()
	input.Priority = domain.TicketPriorityLow
	ticket, err = env.svc.CreateTicket(ctx, input)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.DueAt != nil {
		t.Errorf("Expected no due_at without budget, got %v", ticket.DueAt)
	}
}

func advanceTicket(t *testing.T, svc *TicketService, id string, statuses ...domain.TicketStatus) *domain.Ticket {
	t.Helper()
	var ticket *domain.Ticket
	var err error
	for _, status := range statuses {
		ticket, err = svc.UpdateTicketStatus(context.Background(), id, status, nil, "")
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	return ticket
}

func TestUpdateTicketStatusTransitions(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	ctx := context.Background()

	ticket, err := env.svc.CreateTicket(ctx, validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if _, err := env.svc.UpdateTicketStatus(ctx, ticket.ID, domain.TicketStatusInProgress, nil, ""); !errorutil.IsCode(err, errorutil.CodeConflict) {
		t.Errorf("Expected conflict for new->in_progress, got %v", err)
	}

	updated := advanceTicket(t, env.svc, ticket.ID,
		domain.TicketStatusTriaged,
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed)
	if updated.Status != domain.TicketStatusClosed {
		t.Errorf("Expected closed, got %s", updated.Status)
	}
	if updated.ClosedAt == nil {
		t.Error("Expected closed_at set")
	}

	if _, err := env.svc.UpdateTicketStatus(ctx, ticket.ID, domain.TicketStatusInProgress, nil, ""); !errorutil.IsCode(err, errorutil.CodeConflict) {
		t.Errorf("Expected conflict for transition out of closed, got %v", err)
	}
}

func TestBlockedPausesAndResumesSLA(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{NormalHours: 48})
	ctx := context.Background()

	ticket, err := env.svc.CreateTicket(ctx, validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.DueAt == nil {
		t.Fatal("Expected due_at set")
	}
	originalDue := *ticket.DueAt

	advanceTicket(t, env.svc, ticket.ID,
		domain.TicketStatusTriaged,
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress)

	blocked, err := env.svc.UpdateTicketStatus(ctx, ticket.ID, domain.TicketStatusBlocked, nil, "awaiting wayleave")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked.SLAPausedAt == nil {
		t.Fatal("Expected sla_paused_at set when entering blocked")
	}
	if blocked.SLAPauseReason == nil || *blocked.SLAPauseReason != "awaiting wayleave" {
		t.Error("Expected pause reason recorded")
	}
	if !blocked.DueAt.Equal(originalDue) {
		t.Error("Expected due_at untouched while paused")
	}
	if published := env.dispatcher.published(events.EventTicketSLAPaused); len(published) != 1 {
		t.Errorf("Expected 1 sla_paused event, got %d", len(published))
	}

	// Shift the recorded pause start back to simulate elapsed blocked time.
	pause := 2 * time.Hour
	env.tickets.mu.Lock()
	pausedAt := env.tickets.tickets[ticket.ID].SLAPausedAt.Add(-pause)
	env.tickets.tickets[ticket.ID].SLAPausedAt = &pausedAt
	env.tickets.mu.Unlock()

	resumed, err := env.svc.UpdateTicketStatus(ctx, ticket.ID, domain.TicketStatusInProgress, nil, "")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.SLAPausedAt != nil || resumed.SLAPauseReason != nil {
		t.Error("Expected pause cleared on resume")
	}
	shift := resumed.DueAt.Sub(originalDue)
	if shift < pause || shift > pause+time.Minute {
		t.Errorf("Expected due_at shifted by ~%v, got %v", pause, shift)
	}
	if published := env.dispatcher.published(events.EventTicketSLAResumed); len(published) != 1 {
		t.Errorf("Expected 1 sla_resumed event, got %d", len(published))
	}
}

func TestCancelTicket(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	ctx := context.Background()

	ticket, err := env.svc.CreateTicket(ctx, validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	actor := "op-9"
	cancelled, err := env.svc.CancelTicket(ctx, ticket.ID, &actor, "duplicate report")
	if err != nil {
		t.Fatalf("CancelTicket: %v", err)
	}
	if cancelled.Status != domain.TicketStatusCancelled {
		t.Errorf("Expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.ClosedAt == nil || cancelled.ClosedBy == nil || *cancelled.ClosedBy != actor {
		t.Error("Expected closure metadata on cancellation")
	}
}

func TestListBreachedTickets(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	ctx := context.Background()

	overdue, err := env.svc.CreateTicket(ctx, validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	onTime, err := env.svc.CreateTicket(ctx, validTicketInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	env.tickets.mu.Lock()
	env.tickets.tickets[overdue.ID].DueAt = &past
	env.tickets.tickets[onTime.ID].DueAt = &future
	env.tickets.mu.Unlock()

	breached, err := env.svc.ListBreachedTickets(ctx, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("ListBreachedTickets: %v", err)
	}
	if len(breached) != 1 || breached[0].ID != overdue.ID {
		t.Errorf("Expected only the overdue ticket, got %d items", len(breached))
	}
}

func TestGetTicketInvalidID(t *testing.T) {
	env := newTicketTestEnv(config.SLAConfig{})
	if _, err := env.svc.GetTicket(context.Background(), "123"); !errorutil.IsCode(err, errorutil.CodeInvalidID) {
		t.Errorf("Expected invalid ID error, got %v", err)
	}
}
