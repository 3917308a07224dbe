package events

import (
	"time"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketSLAPaused     EventType = "ticket_sla_paused"
	EventTicketSLAResumed    EventType = "ticket_sla_resumed"
	EventEscalationCreated   EventType = "escalation_created"
	EventEscalationResolved  EventType = "escalation_resolved"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     *string     `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID   string                `json:"ticket_id"`
	TicketUID  string                `json:"ticket_uid"`
	Source     domain.TicketSource   `json:"source"`
	TicketType domain.TicketType     `json:"ticket_type"`
	Priority   domain.TicketPriority `json:"priority"`
	PoleNumber *string               `json:"pole_number,omitempty"`
	PONNumber  *string               `json:"pon_number,omitempty"`
	ZoneID     *string               `json:"zone_id,omitempty"`
	DRNumber   *string               `json:"dr_number,omitempty"`
	ProjectID  *string               `json:"project_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  string              `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketSLAPausedPayload payload.
type TicketSLAPausedPayload struct {
	TicketID string     `json:"ticket_id"`
	PausedAt time.Time  `json:"paused_at"`
	Reason   *string    `json:"reason,omitempty"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// TicketSLAResumedPayload payload.
type TicketSLAResumedPayload struct {
	TicketID      string        `json:"ticket_id"`
	PauseDuration time.Duration `json:"pause_duration"`
	DueAt         *time.Time    `json:"due_at,omitempty"`
}

// EscalationCreatedPayload payload.
type EscalationCreatedPayload struct {
	EscalationID string           `json:"escalation_id"`
	ScopeType    domain.ScopeType `json:"scope_type"`
	ScopeValue   string           `json:"scope_value"`
	FaultCount   int              `json:"fault_count"`
	Threshold    int              `json:"fault_threshold"`
}

// EscalationResolvedPayload payload.
type EscalationResolvedPayload struct {
	EscalationID string                  `json:"escalation_id"`
	ScopeType    domain.ScopeType        `json:"scope_type"`
	ScopeValue   string                  `json:"scope_value"`
	Status       domain.EscalationStatus `json:"status"`
	ResolvedBy   string                  `json:"resolved_by"`
}
