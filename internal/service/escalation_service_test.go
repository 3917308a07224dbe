package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

func newTestEscalationService(tickets *fakeTicketRepo, escalations *fakeEscalationRepo, dispatcher *recordingDispatcher) *EscalationService {
	deps := EscalationServiceDependencies{
		EscalationRepo: escalations,
		TicketRepo:     tickets,
	}
	if dispatcher != nil {
		deps.Dispatcher = dispatcher
	}
	return NewEscalationService(deps)
}

func validEscalationInput() CreateEscalationInput {
	return CreateEscalationInput{
		ScopeType:           domain.ScopePole,
		ScopeValue:          "P-100",
		FaultThreshold:      3,
		ContributingTickets: []string{uuid.NewString(), uuid.NewString(), uuid.NewString()},
	}
}

func TestCreateEscalation(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), dispatcher)

	escalation, err := svc.CreateEscalation(context.Background(), validEscalationInput())
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}
	if escalation.Status != domain.EscalationStatusOpen {
		t.Errorf("Expected open status, got %s", escalation.Status)
	}
	if escalation.FaultCount != 3 {
		t.Errorf("Expected fault count 3, got %d", escalation.FaultCount)
	}
	if escalation.ID == "" {
		t.Error("Expected escalation ID assigned")
	}
	if published := dispatcher.published(events.EventEscalationCreated); len(published) != 1 {
		t.Errorf("Expected 1 escalation_created event, got %d", len(published))
	}
}

func TestCreateEscalationValidation(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	ctx := context.Background()

	input := validEscalationInput()
	input.ScopeValue = "   "
	if _, err := svc.CreateEscalation(ctx, input); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for blank scope value, got %v", err)
	}

	input = validEscalationInput()
	input.ContributingTickets = nil
	if _, err := svc.CreateEscalation(ctx, input); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for empty contributing tickets, got %v", err)
	}

	input = validEscalationInput()
	input.ContributingTickets = []string{"not-a-uuid"}
	if _, err := svc.CreateEscalation(ctx, input); !errorutil.IsCode(err, errorutil.CodeInvalidID) {
		t.Errorf("Expected invalid ID error, got %v", err)
	}

	input = validEscalationInput()
	input.ScopeType = domain.ScopeType("tower")
	if _, err := svc.CreateEscalation(ctx, input); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for bad scope type, got %v", err)
	}
}

func TestCreateEscalationDuplicateConflict(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	ctx := context.Background()

	if _, err := svc.CreateEscalation(ctx, validEscalationInput()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateEscalation(ctx, validEscalationInput())
	if !errorutil.IsCode(err, errorutil.CodeDuplicateEscalation) {
		t.Errorf("Expected duplicate escalation conflict, got %v", err)
	}
}

func TestLinkContributingTicketsIsIdempotent(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	ctx := context.Background()

	t1, t2, t3 := uuid.NewString(), uuid.NewString(), uuid.NewString()
	input := validEscalationInput()
	input.ContributingTickets = []string{t1, t2}
	escalation, err := svc.CreateEscalation(ctx, input)
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}

	updated, err := svc.LinkContributingTickets(ctx, escalation.ID, []string{t2, t3})
	if err != nil {
		t.Fatalf("LinkContributingTickets: %v", err)
	}
	if len(updated.ContributingTickets) != 3 {
		t.Errorf("Expected 3 contributing tickets after merge, got %d", len(updated.ContributingTickets))
	}
	if updated.FaultCount != 3 {
		t.Errorf("Expected fault count 3, got %d", updated.FaultCount)
	}
}

func TestCreateInfrastructureTicket(t *testing.T) {
	tickets := newFakeTicketRepo()
	svc := newTestEscalationService(tickets, newFakeEscalationRepo(), nil)
	ctx := context.Background()

	escalation, err := svc.CreateEscalation(ctx, validEscalationInput())
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}

	actor := "op-1"
	updated, ticket, err := svc.CreateInfrastructureTicket(ctx, escalation.ID, &actor)
	if err != nil {
		t.Fatalf("CreateInfrastructureTicket: %v", err)
	}
	if ticket.Title != "Infrastructure Investigation: Pole P-100" {
		t.Errorf("Unexpected title %q", ticket.Title)
	}
	if ticket.PoleNumber == nil || *ticket.PoleNumber != "P-100" {
		t.Error("Expected pole number carried onto infrastructure ticket")
	}
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Errorf("Expected high priority, got %s", ticket.Priority)
	}
	if updated.EscalationTicketID == nil || *updated.EscalationTicketID != ticket.ID {
		t.Error("Expected escalation linked to ticket")
	}
	if updated.Status != domain.EscalationStatusOpen {
		t.Errorf("Expected status to remain open, got %s", updated.Status)
	}

	_, _, err = svc.CreateInfrastructureTicket(ctx, escalation.ID, &actor)
	if !errorutil.IsCode(err, errorutil.CodeInfraTicketExists) {
		t.Errorf("Expected infra ticket conflict on second call, got %v", err)
	}
}

func TestUpdateEscalationStatusReactivationConflict(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	ctx := context.Background()

	first, err := svc.CreateEscalation(ctx, validEscalationInput())
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}
	if _, err := svc.ResolveEscalation(ctx, first.ID, domain.EscalationStatusResolved, "pole replaced", "op-1"); err != nil {
		t.Fatalf("ResolveEscalation: %v", err)
	}
	if _, err := svc.CreateEscalation(ctx, validEscalationInput()); err != nil {
		t.Fatalf("second CreateEscalation: %v", err)
	}

	_, err = svc.UpdateEscalationStatus(ctx, first.ID, domain.EscalationStatusOpen)
	if !errorutil.IsCode(err, errorutil.CodeDuplicateEscalation) {
		t.Errorf("Expected duplicate escalation conflict on reactivation, got %v", err)
	}
}

func TestInfrastructureTicketTitles(t *testing.T) {
	inspection := domain.EscalationTypeInspection
	cases := []struct {
		scopeType      domain.ScopeType
		escalationType *domain.EscalationType
		want           string
	}{
		{domain.ScopePole, nil, "Infrastructure Investigation: Pole X-1"},
		{domain.ScopePON, nil, "PON Investigation: X-1"},
		{domain.ScopeZone, &inspection, "Zone-Wide Inspection: X-1"},
		{domain.ScopeDR, nil, "DR Investigation: X-1"},
	}
	for _, tc := range cases {
		escalation := &domain.RepeatFaultEscalation{
			ScopeType:      tc.scopeType,
			ScopeValue:     "X-1",
			EscalationType: tc.escalationType,
		}
		if got := infrastructureTicketTitle(escalation); got != tc.want {
			t.Errorf("title for %s: expected %q, got %q", tc.scopeType, tc.want, got)
		}
	}
}

func TestResolveEscalation(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), dispatcher)
	ctx := context.Background()

	escalation, err := svc.CreateEscalation(ctx, validEscalationInput())
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}

	resolved, err := svc.ResolveEscalation(ctx, escalation.ID, domain.EscalationStatusResolved, "pole replaced", "op-2")
	if err != nil {
		t.Fatalf("ResolveEscalation: %v", err)
	}
	if resolved.Status != domain.EscalationStatusResolved {
		t.Errorf("Expected resolved status, got %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil || time.Since(*resolved.ResolvedAt) > time.Minute {
		t.Error("Expected resolved_at set to now")
	}
	if resolved.ResolutionNotes == nil || *resolved.ResolutionNotes != "pole replaced" {
		t.Error("Expected resolution notes stored")
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != "op-2" {
		t.Error("Expected resolved_by stored")
	}
	if published := dispatcher.published(events.EventEscalationResolved); len(published) != 1 {
		t.Errorf("Expected 1 escalation_resolved event, got %d", len(published))
	}
}

func TestResolveEscalationValidation(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	ctx := context.Background()

	escalation, err := svc.CreateEscalation(ctx, validEscalationInput())
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}

	if _, err := svc.ResolveEscalation(ctx, escalation.ID, domain.EscalationStatusResolved, "  ", "op"); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for blank notes, got %v", err)
	}
	if _, err := svc.ResolveEscalation(ctx, escalation.ID, domain.EscalationStatusOpen, "notes", "op"); !errorutil.IsCode(err, errorutil.CodeValidationFailed) {
		t.Errorf("Expected validation error for non-terminal status, got %v", err)
	}

	// Failed resolutions must not mutate the escalation.
	reread, err := svc.GetEscalation(ctx, escalation.ID)
	if err != nil {
		t.Fatalf("GetEscalation: %v", err)
	}
	if reread.Status != domain.EscalationStatusOpen || reread.ResolvedAt != nil {
		t.Error("Expected escalation unchanged after failed resolution")
	}
}

func TestCheckForDuplicateEscalation(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	ctx := context.Background()

	existing, err := svc.CheckForDuplicateEscalation(ctx, domain.ScopePole, "P-100")
	if err != nil {
		t.Fatalf("CheckForDuplicateEscalation: %v", err)
	}
	if existing != nil {
		t.Error("Expected nil for clear scope")
	}

	escalation, err := svc.CreateEscalation(ctx, validEscalationInput())
	if err != nil {
		t.Fatalf("CreateEscalation: %v", err)
	}
	existing, err = svc.CheckForDuplicateEscalation(ctx, domain.ScopePole, "P-100")
	if err != nil {
		t.Fatalf("CheckForDuplicateEscalation: %v", err)
	}
	if existing == nil || existing.ID != escalation.ID {
		t.Error("Expected active escalation returned for covered scope")
	}
}

func TestListEscalationsMissingTable(t *testing.T) {
	escalations := newFakeEscalationRepo()
	escalations.listErr = &pgconn.PgError{Code: "42P01"}
	svc := newTestEscalationService(newFakeTicketRepo(), escalations, nil)

	result, err := svc.ListEscalations(context.Background(), repository.EscalationFilter{})
	if err != nil {
		t.Fatalf("Expected missing table to degrade to empty list, got %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected empty list, got %d items", len(result))
	}
}

func TestGetEscalationInvalidID(t *testing.T) {
	svc := newTestEscalationService(newFakeTicketRepo(), newFakeEscalationRepo(), nil)
	if _, err := svc.GetEscalation(context.Background(), "nope"); !errorutil.IsCode(err, errorutil.CodeInvalidID) {
		t.Errorf("Expected invalid ID error, got %v", err)
	}
	if _, err := svc.GetEscalation(context.Background(), uuid.NewString()); !errorutil.IsCode(err, errorutil.CodeNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}
