package domain

import (
	"testing"
	"time"
)

func TestSLABreached(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		ticket Ticket
		want   bool
	}{
		{"overdue open ticket", Ticket{Status: TicketStatusInProgress, DueAt: &past}, true},
		{"not yet due", Ticket{Status: TicketStatusInProgress, DueAt: &future}, false},
		{"no deadline", Ticket{Status: TicketStatusInProgress}, false},
		{"paused ticket", Ticket{Status: TicketStatusBlocked, DueAt: &past, SLAPausedAt: &past}, false},
		{"resolved ticket", Ticket{Status: TicketStatusResolved, DueAt: &past}, false},
		{"closed ticket", Ticket{Status: TicketStatusClosed, DueAt: &past}, false},
		{"cancelled ticket", Ticket{Status: TicketStatusCancelled, DueAt: &past}, false},
	}
	for _, tc := range cases {
		if got := tc.ticket.SLABreached(now); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestTicketStatusTerminal(t *testing.T) {
	terminal := []TicketStatus{TicketStatusClosed, TicketStatusCancelled}
	for _, status := range terminal {
		if !status.Terminal() {
			t.Errorf("Expected %s to be terminal", status)
		}
	}
	active := []TicketStatus{TicketStatusNew, TicketStatusTriaged, TicketStatusAssigned,
		TicketStatusInProgress, TicketStatusBlocked, TicketStatusResolved}
	for _, status := range active {
		if status.Terminal() {
			t.Errorf("Expected %s to not be terminal", status)
		}
	}
}

func TestScopeTypeValid(t *testing.T) {
	for _, scope := range []ScopeType{ScopePole, ScopePON, ScopeZone, ScopeDR} {
		if !scope.Valid() {
			t.Errorf("Expected %s valid", scope)
		}
	}
	if ScopeType("tower").Valid() {
		t.Error("Expected unknown scope invalid")
	}
}

func TestEscalationStatusActive(t *testing.T) {
	if !EscalationStatusOpen.Active() || !EscalationStatusInvestigating.Active() {
		t.Error("Expected open and investigating to be active")
	}
	if EscalationStatusResolved.Active() || EscalationStatusNoAction.Active() {
		t.Error("Expected resolved and no_action to be inactive")
	}
}
