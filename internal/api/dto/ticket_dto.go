package dto

import (
	"time"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// CreateTicketRequest is the ticket intake payload.
type CreateTicketRequest struct {
	Source      domain.TicketSource   `json:"source"`
	TicketType  domain.TicketType     `json:"ticket_type"`
	Priority    domain.TicketPriority `json:"priority"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	PoleNumber  *string               `json:"pole_number"`
	PONNumber   *string               `json:"pon_number"`
	ZoneID      *string               `json:"zone_id"`
	DRNumber    *string               `json:"dr_number"`
	ProjectID   *string               `json:"project_id"`
	Address     *string               `json:"address"`
	Latitude    *float64              `json:"latitude"`
	Longitude   *float64              `json:"longitude"`
	FaultCause  *domain.FaultCause    `json:"fault_cause"`
	AssignedTo  *string               `json:"assigned_to"`
}

// UpdateTicketRequest is a partial update; absent fields stay untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	AssignedTo  *string                `json:"assigned_to"`
	PoleNumber  *string                `json:"pole_number"`
	PONNumber   *string                `json:"pon_number"`
	ZoneID      *string                `json:"zone_id"`
	DRNumber    *string                `json:"dr_number"`
	ProjectID   *string                `json:"project_id"`
	Address     *string                `json:"address"`
	Latitude    *float64               `json:"latitude"`
	Longitude   *float64               `json:"longitude"`
	FaultCause  *domain.FaultCause     `json:"fault_cause"`
}

// UpdateTicketStatusRequest moves a ticket through its lifecycle.
type UpdateTicketStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// TicketResponse is the API shape of a ticket.
type TicketResponse struct {
	ID             string                `json:"id"`
	UID            string                `json:"uid"`
	Source         domain.TicketSource   `json:"source"`
	TicketType     domain.TicketType     `json:"ticket_type"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	Title          string                `json:"title"`
	Description    string                `json:"description,omitempty"`
	PoleNumber     *string               `json:"pole_number,omitempty"`
	PONNumber      *string               `json:"pon_number,omitempty"`
	ZoneID         *string               `json:"zone_id,omitempty"`
	DRNumber       *string               `json:"dr_number,omitempty"`
	ProjectID      *string               `json:"project_id,omitempty"`
	Address        *string               `json:"address,omitempty"`
	Latitude       *float64              `json:"latitude,omitempty"`
	Longitude      *float64              `json:"longitude,omitempty"`
	FaultCause     *domain.FaultCause    `json:"fault_cause,omitempty"`
	AssignedTo     *string               `json:"assigned_to,omitempty"`
	DueAt          *time.Time            `json:"due_at,omitempty"`
	SLAPausedAt    *time.Time            `json:"sla_paused_at,omitempty"`
	SLAPauseReason *string               `json:"sla_pause_reason,omitempty"`
	CreatedBy      *string               `json:"created_by,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
	ClosedBy       *string               `json:"closed_by,omitempty"`
}

// DropResponse is the API shape of resolved drop metadata.
type DropResponse struct {
	DropNumber  string   `json:"drop_number"`
	ProjectID   *string  `json:"project_id,omitempty"`
	ProjectName *string  `json:"project_name,omitempty"`
	PoleNumber  *string  `json:"pole_number,omitempty"`
	PONNumber   *string  `json:"pon_number,omitempty"`
	ZoneID      *string  `json:"zone_id,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Contractor  *string  `json:"contractor,omitempty"`
	Status      *string  `json:"status,omitempty"`
}
