package domain

import "time"

// ContributingTicket is the detector's snapshot of a ticket inside a fault cluster.
type ContributingTicket struct {
	TicketID   string
	TicketUID  string
	CreatedAt  time.Time
	FaultCause *FaultCause
	Status     TicketStatus
}

// DetectionResult reports the outcome of a single-scope fault pattern check.
type DetectionResult struct {
	PatternDetected     bool
	ScopeType           ScopeType
	ScopeValue          string
	FaultCount          int
	Threshold           int
	ContributingTickets []ContributingTicket
	// ShouldEscalate is true only when the pattern is detected and no active
	// escalation already covers the scope.
	ShouldEscalate       bool
	ExistingEscalationID *string
	Recommendation       string
}

// TicketIDs returns the IDs of the contributing tickets in detection order.
func (r *DetectionResult) TicketIDs() []string {
	ids := make([]string, 0, len(r.ContributingTickets))
	for _, t := range r.ContributingTickets {
		ids = append(ids, t.TicketID)
	}
	return ids
}
