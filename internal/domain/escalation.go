package domain

import "time"

// ScopeType identifies the infrastructure element a fault cluster is attributed to.
type ScopeType string

const (
	ScopePole ScopeType = "pole"
	ScopePON  ScopeType = "pon"
	ScopeZone ScopeType = "zone"
	ScopeDR   ScopeType = "dr"
)

// Valid reports whether the scope type is a known value.
func (s ScopeType) Valid() bool {
	switch s {
	case ScopePole, ScopePON, ScopeZone, ScopeDR:
		return true
	}
	return false
}

// EscalationStatus enumerates the escalation lifecycle.
type EscalationStatus string

const (
	EscalationStatusOpen          EscalationStatus = "open"
	EscalationStatusInvestigating EscalationStatus = "investigating"
	EscalationStatusResolved      EscalationStatus = "resolved"
	EscalationStatusNoAction      EscalationStatus = "no_action"
)

// Valid reports whether the status is a known value.
func (s EscalationStatus) Valid() bool {
	switch s {
	case EscalationStatusOpen, EscalationStatusInvestigating, EscalationStatusResolved, EscalationStatusNoAction:
		return true
	}
	return false
}

// Active reports whether the escalation still blocks new escalations on its scope.
func (s EscalationStatus) Active() bool {
	return s == EscalationStatusOpen || s == EscalationStatusInvestigating
}

// ActiveEscalationStatuses lists the statuses that count toward the
// one-active-escalation-per-scope invariant.
func ActiveEscalationStatuses() []EscalationStatus {
	return []EscalationStatus{EscalationStatusOpen, EscalationStatusInvestigating}
}

// EscalationType describes the infrastructure action an escalation calls for.
type EscalationType string

const (
	EscalationTypeInvestigation EscalationType = "investigation"
	EscalationTypeInspection    EscalationType = "inspection"
	EscalationTypeReplacement   EscalationType = "replacement"
)

// Valid reports whether the escalation type is a known value.
func (t EscalationType) Valid() bool {
	switch t {
	case EscalationTypeInvestigation, EscalationTypeInspection, EscalationTypeReplacement:
		return true
	}
	return false
}

// RepeatFaultEscalation tracks the decision that a fault cluster on one scope
// warrants an infrastructure-level ticket. At most one escalation with an
// active status may exist per (scope_type, scope_value) pair.
type RepeatFaultEscalation struct {
	ID        string
	ScopeType ScopeType
	// ScopeValue matches the corresponding scope field on contributing tickets.
	ScopeValue string
	ProjectID  *string

	FaultCount     int
	FaultThreshold int
	// ContributingTickets is an ordered set of ticket IDs; duplicates are suppressed.
	ContributingTickets []string

	EscalationTicketID *string
	EscalationType     *EscalationType
	Status             EscalationStatus
	ResolutionNotes    *string
	ResolvedAt         *time.Time
	ResolvedBy         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
