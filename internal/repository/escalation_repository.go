package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// EscalationFilter captures escalation listing parameters.
type EscalationFilter struct {
	ScopeTypes     []domain.ScopeType
	Statuses       []domain.EscalationStatus
	ProjectID      *string
	EscalationType *domain.EscalationType
	Limit          int
	Offset         int
}

// EscalationRepository encapsulates escalation persistence.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.RepeatFaultEscalation) error
	Update(ctx context.Context, escalation *domain.RepeatFaultEscalation) error
	GetByID(ctx context.Context, id string) (*domain.RepeatFaultEscalation, error)
	// FindActiveByScope returns the open/investigating escalation covering the
	// scope, or nil when none exists.
	FindActiveByScope(ctx context.Context, scopeType domain.ScopeType, scopeValue string) (*domain.RepeatFaultEscalation, error)
	List(ctx context.Context, filter EscalationFilter) ([]domain.RepeatFaultEscalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

const escalationColumns = `id, scope_type, scope_value, project_id, fault_count, fault_threshold,
	contributing_tickets, escalation_ticket_id, escalation_type, status,
	resolution_notes, resolved_at, resolved_by, created_at, updated_at`

const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// IsUndefinedTable reports whether err is postgres complaining about a
// missing relation (unmigrated environment).
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.RepeatFaultEscalation) error {
	contributing, err := json.Marshal(escalation.ContributingTickets)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO repeat_fault_escalations (scope_type, scope_value, project_id,
            fault_count, fault_threshold, contributing_tickets, escalation_type, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		escalation.ScopeType,
		escalation.ScopeValue,
		escalation.ProjectID,
		escalation.FaultCount,
		escalation.FaultThreshold,
		contributing,
		escalation.EscalationType,
		escalation.Status,
	).Scan(&escalation.ID, &escalation.CreatedAt, &escalation.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// The partial unique index on active escalations rejected a second
			// escalation for the same scope.
			return errorutil.NewConflict(errorutil.CodeDuplicateEscalation,
				"active escalation already exists for scope", map[string]any{
					"scope_type":  escalation.ScopeType,
					"scope_value": escalation.ScopeValue,
				})
		}
		return err
	}
	return nil
}

func (r *escalationRepository) Update(ctx context.Context, escalation *domain.RepeatFaultEscalation) error {
	contributing, err := json.Marshal(escalation.ContributingTickets)
	if err != nil {
		return err
	}

	const query = `
        UPDATE repeat_fault_escalations SET fault_count=$1, contributing_tickets=$2,
            escalation_ticket_id=$3, escalation_type=$4, status=$5,
            resolution_notes=$6, resolved_at=$7, resolved_by=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		escalation.FaultCount,
		contributing,
		escalation.EscalationTicketID,
		escalation.EscalationType,
		escalation.Status,
		escalation.ResolutionNotes,
		escalation.ResolvedAt,
		escalation.ResolvedBy,
		escalation.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Reactivating an escalation whose scope is already covered by
			// another active one trips the same partial unique index.
			return errorutil.NewConflict(errorutil.CodeDuplicateEscalation,
				"active escalation already exists for scope", map[string]any{
					"scope_type":  escalation.ScopeType,
					"scope_value": escalation.ScopeValue,
				})
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *escalationRepository) GetByID(ctx context.Context, id string) (*domain.RepeatFaultEscalation, error) {
	query := fmt.Sprintf(`SELECT %s FROM repeat_fault_escalations WHERE id=$1`, escalationColumns)
	return scanEscalationRow(r.pool.QueryRow(ctx, query, id))
}

func (r *escalationRepository) FindActiveByScope(ctx context.Context, scopeType domain.ScopeType, scopeValue string) (*domain.RepeatFaultEscalation, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM repeat_fault_escalations
        WHERE scope_type=$1 AND scope_value=$2 AND status IN ($3,$4)
        LIMIT 1`, escalationColumns)
	escalation, err := scanEscalationRow(r.pool.QueryRow(ctx, query,
		scopeType, scopeValue, domain.EscalationStatusOpen, domain.EscalationStatusInvestigating))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return escalation, nil
}

func (r *escalationRepository) List(ctx context.Context, filter EscalationFilter) ([]domain.RepeatFaultEscalation, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.ScopeTypes) > 0 {
		placeholders := make([]string, len(filter.ScopeTypes))
		for i, st := range filter.ScopeTypes {
			args = append(args, st)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("scope_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}
	if filter.EscalationType != nil {
		args = append(args, *filter.EscalationType)
		clauses = append(clauses, fmt.Sprintf("escalation_type=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM repeat_fault_escalations WHERE %s
        ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		escalationColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RepeatFaultEscalation
	for rows.Next() {
		escalation, err := scanEscalationRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *escalation)
	}
	return result, rows.Err()
}

func scanEscalationRow(row pgx.Row) (*domain.RepeatFaultEscalation, error) {
	var escalation domain.RepeatFaultEscalation
	var contributing []byte
	if err := row.Scan(
		&escalation.ID,
		&escalation.ScopeType,
		&escalation.ScopeValue,
		&escalation.ProjectID,
		&escalation.FaultCount,
		&escalation.FaultThreshold,
		&contributing,
		&escalation.EscalationTicketID,
		&escalation.EscalationType,
		&escalation.Status,
		&escalation.ResolutionNotes,
		&escalation.ResolvedAt,
		&escalation.ResolvedBy,
		&escalation.CreatedAt,
		&escalation.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(contributing) > 0 {
		if err := json.Unmarshal(contributing, &escalation.ContributingTickets); err != nil {
			return nil, err
		}
	}
	return &escalation, nil
}
