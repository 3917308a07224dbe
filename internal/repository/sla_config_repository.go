package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// SLAConfigRepository resolves resolution budgets per (ticket type, priority).
type SLAConfigRepository interface {
	// GetPolicy returns nil when no budget is configured for the pair.
	GetPolicy(ctx context.Context, ticketType domain.TicketType, priority domain.TicketPriority) (*domain.SLAPolicy, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository instantiates repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

func (r *slaConfigRepository) GetPolicy(ctx context.Context, ticketType domain.TicketType, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT ticket_type, priority, resolution_hours
        FROM sla_configs
        WHERE ticket_type=$1 AND priority=$2
        LIMIT 1`
	var policy domain.SLAPolicy
	err := r.pool.QueryRow(ctx, query, ticketType, priority).Scan(
		&policy.TicketType,
		&policy.Priority,
		&policy.ResolutionHours,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}
