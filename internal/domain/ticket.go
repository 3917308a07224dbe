package domain

import "time"

// TicketSource identifies where a fault ticket originated.
type TicketSource string

const (
	TicketSourceAdHoc                 TicketSource = "ad_hoc"
	TicketSourceCustomerContactCenter TicketSource = "customer_contact_center"
	TicketSourceConstruction          TicketSource = "construction"
	TicketSourceWeeklyReport          TicketSource = "weekly_report"
	TicketSourceIncident              TicketSource = "incident"
	TicketSourceManual                TicketSource = "manual"
)

// Valid reports whether the source is a known value.
func (s TicketSource) Valid() bool {
	switch s {
	case TicketSourceAdHoc, TicketSourceCustomerContactCenter, TicketSourceConstruction,
		TicketSourceWeeklyReport, TicketSourceIncident, TicketSourceManual:
		return true
	}
	return false
}

// TicketType classifies the kind of field work a ticket tracks.
type TicketType string

const (
	TicketTypeMaintenance     TicketType = "maintenance"
	TicketTypeNewInstallation TicketType = "new_installation"
	TicketTypeModification    TicketType = "modification"
	TicketTypeIncident        TicketType = "incident"
)

// Valid reports whether the ticket type is a known value.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeMaintenance, TicketTypeNewInstallation, TicketTypeModification, TicketTypeIncident:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusTriaged    TicketStatus = "triaged"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusBlocked    TicketStatus = "blocked"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// FaultCause classifies the root cause recorded on a fault ticket.
type FaultCause string

const (
	FaultCauseWorkmanship     FaultCause = "workmanship"
	FaultCauseMaterialFailure FaultCause = "material_failure"
	FaultCauseClientDamage    FaultCause = "client_damage"
	FaultCauseThirdParty      FaultCause = "third_party"
	FaultCauseEnvironmental   FaultCause = "environmental"
	FaultCauseVandalism       FaultCause = "vandalism"
	FaultCauseUnknown         FaultCause = "unknown"
)

// Ticket is the aggregate for fault and maintenance work items.
type Ticket struct {
	ID          string
	UID         string
	Source      TicketSource
	Type        TicketType
	Priority    TicketPriority
	Status      TicketStatus
	Title       string
	Description string

	// Scope references used by the fault pattern detector.
	PoleNumber *string
	PONNumber  *string
	ZoneID     *string
	DRNumber   *string

	ProjectID  *string
	Address    *string
	Latitude   *float64
	Longitude  *float64
	FaultCause *FaultCause
	AssignedTo *string

	DueAt          *time.Time
	SLAPausedAt    *time.Time
	SLAPauseReason *string

	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	ClosedBy  *string
}

// SLABreached reports whether the resolution deadline has passed. Paused and
// terminal tickets are never considered breached.
func (t *Ticket) SLABreached(now time.Time) bool {
	if t.DueAt == nil || t.SLAPausedAt != nil {
		return false
	}
	switch t.Status {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return false
	}
	return now.After(*t.DueAt)
}
