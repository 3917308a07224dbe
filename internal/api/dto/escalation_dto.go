package dto

import (
	"time"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// DetectionRequest triggers a single-scope fault pattern check.
type DetectionRequest struct {
	ScopeType      domain.ScopeType `json:"scope_type"`
	ScopeValue     string           `json:"scope_value"`
	Threshold      *int             `json:"threshold"`
	TimeWindowDays *int             `json:"time_window_days"`
	ProjectID      *string          `json:"project_id"`
}

// ContributingTicketResponse is the API shape of a clustered ticket.
type ContributingTicketResponse struct {
	TicketID   string              `json:"ticket_id"`
	TicketUID  string              `json:"ticket_uid"`
	CreatedAt  time.Time           `json:"created_at"`
	FaultCause *domain.FaultCause  `json:"fault_cause,omitempty"`
	Status     domain.TicketStatus `json:"status"`
}

// DetectionResponse is the API shape of a detection result.
type DetectionResponse struct {
	PatternDetected      bool                         `json:"pattern_detected"`
	ScopeType            domain.ScopeType             `json:"scope_type"`
	ScopeValue           string                       `json:"scope_value"`
	FaultCount           int                          `json:"fault_count"`
	Threshold            int                          `json:"threshold"`
	ContributingTickets  []ContributingTicketResponse `json:"contributing_tickets"`
	ShouldEscalate       bool                         `json:"should_escalate"`
	ExistingEscalationID *string                      `json:"existing_escalation_id,omitempty"`
	Recommendation       string                       `json:"recommendation"`
}

// CreateEscalationRequest opens an escalation manually.
type CreateEscalationRequest struct {
	ScopeType           domain.ScopeType       `json:"scope_type"`
	ScopeValue          string                 `json:"scope_value"`
	ProjectID           *string                `json:"project_id"`
	FaultThreshold      int                    `json:"fault_threshold"`
	ContributingTickets []string               `json:"contributing_tickets"`
	EscalationType      *domain.EscalationType `json:"escalation_type"`
}

// LinkTicketsRequest merges tickets into an escalation's contributing set.
type LinkTicketsRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

// ResolveEscalationRequest closes out an escalation.
type ResolveEscalationRequest struct {
	Status          domain.EscalationStatus `json:"status"`
	ResolutionNotes string                  `json:"resolution_notes"`
}

// UpdateEscalationStatusRequest sets the status directly.
type UpdateEscalationStatusRequest struct {
	Status domain.EscalationStatus `json:"status"`
}

// EscalationResponse is the API shape of an escalation.
type EscalationResponse struct {
	ID                  string                  `json:"id"`
	ScopeType           domain.ScopeType        `json:"scope_type"`
	ScopeValue          string                  `json:"scope_value"`
	ProjectID           *string                 `json:"project_id,omitempty"`
	FaultCount          int                     `json:"fault_count"`
	FaultThreshold      int                     `json:"fault_threshold"`
	ContributingTickets []string                `json:"contributing_tickets"`
	EscalationTicketID  *string                 `json:"escalation_ticket_id,omitempty"`
	EscalationType      *domain.EscalationType  `json:"escalation_type,omitempty"`
	Status              domain.EscalationStatus `json:"status"`
	ResolutionNotes     *string                 `json:"resolution_notes,omitempty"`
	ResolvedAt          *time.Time              `json:"resolved_at,omitempty"`
	ResolvedBy          *string                 `json:"resolved_by,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// InfraTicketResponse pairs an escalation with its infrastructure ticket.
type InfraTicketResponse struct {
	Escalation EscalationResponse `json:"escalation"`
	Ticket     TicketResponse     `json:"ticket"`
}
