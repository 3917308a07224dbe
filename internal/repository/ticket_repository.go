package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Types       []domain.TicketType
	Priorities  []domain.TicketPriority
	Source      *domain.TicketSource
	ProjectID   *string
	DRNumber    *string
	AssignedTo  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ScopeQuery selects tickets clustered on one infrastructure element.
type ScopeQuery struct {
	ScopeType  domain.ScopeType
	ScopeValue string
	// Since bounds the cluster window; zero means unbounded.
	Since     time.Time
	ProjectID *string
}

// TicketUpdate carries a partial update; nil fields are left untouched.
type TicketUpdate struct {
	Title          *string
	Description    *string
	Priority       *domain.TicketPriority
	AssignedTo     *string
	PoleNumber     *string
	PONNumber      *string
	ZoneID         *string
	DRNumber       *string
	ProjectID      *string
	Address        *string
	Latitude       *float64
	Longitude      *float64
	FaultCause     *domain.FaultCause
	DueAt          *time.Time
	SLAPauseReason *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	UpdateFields(ctx context.Context, id string, update TicketUpdate) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByUID(ctx context.Context, uid string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListByScope(ctx context.Context, query ScopeQuery) ([]domain.Ticket, error)
	CountByScope(ctx context.Context, query ScopeQuery) (int, error)
	// Purge physically removes a ticket row. Normal lifecycle code never calls
	// this; cancellation is a status transition.
	Purge(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, uid, source, ticket_type, priority, status, title, description,
	pole_number, pon_number, zone_id, dr_number, project_id, address, latitude, longitude,
	fault_cause, assigned_to, due_at, sla_paused_at, sla_pause_reason,
	created_by, created_at, updated_at, closed_at, closed_by`

// scopeColumn maps a scope type to the ticket column the detector clusters on.
func scopeColumn(scope domain.ScopeType) (string, error) {
	switch scope {
	case domain.ScopePole:
		return "pole_number", nil
	case domain.ScopePON:
		return "pon_number", nil
	case domain.ScopeZone:
		return "zone_id", nil
	case domain.ScopeDR:
		return "dr_number", nil
	}
	return "", fmt.Errorf("unknown scope type: %s", scope)
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (uid, source, ticket_type, priority, status, title, description,
            pole_number, pon_number, zone_id, dr_number, project_id, address, latitude, longitude,
            fault_cause, assigned_to, due_at, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.UID,
		ticket.Source,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.PoleNumber,
		ticket.PONNumber,
		ticket.ZoneID,
		ticket.DRNumber,
		ticket.ProjectID,
		ticket.Address,
		ticket.Latitude,
		ticket.Longitude,
		ticket.FaultCause,
		ticket.AssignedTo,
		ticket.DueAt,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET priority=$1, status=$2, title=$3, description=$4,
            pole_number=$5, pon_number=$6, zone_id=$7, dr_number=$8, project_id=$9,
            address=$10, latitude=$11, longitude=$12, fault_cause=$13, assigned_to=$14,
            due_at=$15, sla_paused_at=$16, sla_pause_reason=$17,
            closed_at=$18, closed_by=$19, updated_at=NOW()
        WHERE id=$20`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Priority,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.PoleNumber,
		ticket.PONNumber,
		ticket.ZoneID,
		ticket.DRNumber,
		ticket.ProjectID,
		ticket.Address,
		ticket.Latitude,
		ticket.Longitude,
		ticket.FaultCause,
		ticket.AssignedTo,
		ticket.DueAt,
		ticket.SLAPausedAt,
		ticket.SLAPauseReason,
		ticket.ClosedAt,
		ticket.ClosedBy,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id string, update TicketUpdate) (*domain.Ticket, error) {
	sets := []string{}
	args := []any{}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if update.Title != nil {
		addSet("title", *update.Title)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.Priority != nil {
		addSet("priority", *update.Priority)
	}
	if update.AssignedTo != nil {
		addSet("assigned_to", *update.AssignedTo)
	}
	if update.PoleNumber != nil {
		addSet("pole_number", *update.PoleNumber)
	}
	if update.PONNumber != nil {
		addSet("pon_number", *update.PONNumber)
	}
	if update.ZoneID != nil {
		addSet("zone_id", *update.ZoneID)
	}
	if update.DRNumber != nil {
		addSet("dr_number", *update.DRNumber)
	}
	if update.ProjectID != nil {
		addSet("project_id", *update.ProjectID)
	}
	if update.Address != nil {
		addSet("address", *update.Address)
	}
	if update.Latitude != nil {
		addSet("latitude", *update.Latitude)
	}
	if update.Longitude != nil {
		addSet("longitude", *update.Longitude)
	}
	if update.FaultCause != nil {
		addSet("fault_cause", *update.FaultCause)
	}
	if update.DueAt != nil {
		addSet("due_at", *update.DueAt)
	}
	if update.SLAPauseReason != nil {
		addSet("sla_pause_reason", *update.SLAPauseReason)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns)

	return r.fetchSingle(ctx, query, args...)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByUID(ctx context.Context, uid string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE uid=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, uid)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	return scanTicketRow(row)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, tt := range filter.Types {
			args = append(args, tt)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("ticket_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Source != nil {
		args = append(args, *filter.Source)
		clauses = append(clauses, fmt.Sprintf("source=$%d", len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}
	if filter.DRNumber != nil {
		args = append(args, *filter.DRNumber)
		clauses = append(clauses, fmt.Sprintf("dr_number=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByScope(ctx context.Context, query ScopeQuery) ([]domain.Ticket, error) {
	column, err := scopeColumn(query.ScopeType)
	if err != nil {
		return nil, err
	}

	clauses := []string{fmt.Sprintf("%s=$1", column)}
	args := []any{query.ScopeValue}
	if !query.Since.IsZero() {
		args = append(args, query.Since)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if query.ProjectID != nil {
		args = append(args, *query.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}

	sql := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByScope(ctx context.Context, query ScopeQuery) (int, error) {
	column, err := scopeColumn(query.ScopeType)
	if err != nil {
		return 0, err
	}

	clauses := []string{fmt.Sprintf("%s=$1", column)}
	args := []any{query.ScopeValue}
	if !query.Since.IsZero() {
		args = append(args, query.Since)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if query.ProjectID != nil {
		args = append(args, *query.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}

	sql := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var count int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) Purge(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicketRow(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.UID,
		&ticket.Source,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&ticket.PoleNumber,
		&ticket.PONNumber,
		&ticket.ZoneID,
		&ticket.DRNumber,
		&ticket.ProjectID,
		&ticket.Address,
		&ticket.Latitude,
		&ticket.Longitude,
		&ticket.FaultCause,
		&ticket.AssignedTo,
		&ticket.DueAt,
		&ticket.SLAPausedAt,
		&ticket.SLAPauseReason,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
		&ticket.ClosedBy,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
