package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// DropRepository resolves DR/drop metadata from the drops survey tables.
type DropRepository interface {
	// GetByDropNumber returns nil when no drop matches.
	GetByDropNumber(ctx context.Context, dropNumber string) (*domain.DropRecord, error)
}

type dropRepository struct {
	pool *pgxpool.Pool
}

// NewDropRepository instantiates repository.
func NewDropRepository(pool *pgxpool.Pool) DropRepository {
	return &dropRepository{pool: pool}
}

const dropColumns = `d.drop_number, d.project_id, p.name, d.pole_number, d.pon_number,
	d.zone_id, d.address, d.latitude, d.longitude, d.contractor, d.status`

func (r *dropRepository) GetByDropNumber(ctx context.Context, dropNumber string) (*domain.DropRecord, error) {
	const exact = `
        SELECT ` + dropColumns + `
        FROM drops d
        LEFT JOIN projects p ON p.id = d.project_id
        WHERE UPPER(d.drop_number) = $1
        LIMIT 1`
	record, err := scanDropRow(r.pool.QueryRow(ctx, exact, strings.ToUpper(dropNumber)))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Fall back to matching on the numeric portion; field crews often record
	// DR numbers without the prefix.
	numeric := strings.TrimPrefix(strings.ToUpper(dropNumber), "DR")
	if numeric == "" {
		return nil, nil
	}
	const fuzzy = `
        SELECT ` + dropColumns + `
        FROM drops d
        LEFT JOIN projects p ON p.id = d.project_id
        WHERE d.drop_number LIKE $1
        LIMIT 1`
	record, err = scanDropRow(r.pool.QueryRow(ctx, fuzzy, "%"+numeric+"%"))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func scanDropRow(row pgx.Row) (*domain.DropRecord, error) {
	var record domain.DropRecord
	if err := row.Scan(
		&record.DropNumber,
		&record.ProjectID,
		&record.ProjectName,
		&record.PoleNumber,
		&record.PONNumber,
		&record.ZoneID,
		&record.Address,
		&record.Latitude,
		&record.Longitude,
		&record.Contractor,
		&record.Status,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
