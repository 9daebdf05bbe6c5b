package catalogrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
)

// ErrNotFound is returned when a package id does not exist.
var ErrNotFound = errors.New("package not found")

// Repo is the read side of the package catalog. Catalog CRUD lives in the
// admin tooling; the booking core only ever reads.
type Repo interface {
	GetPackage(ctx context.Context, id int64) (*model.Package, error)
	ListActive(ctx context.Context) ([]model.Package, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) GetPackage(ctx context.Context, id int64) (*model.Package, error) {
	const q = `
SELECT id, name, description, base_daily_price, max_concurrent_reservations, active, created_at
FROM packages
WHERE id = $1`
	var p model.Package
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.BaseDailyPrice,
		&p.MaxConcurrentReservations, &p.Active, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListActive(ctx context.Context) ([]model.Package, error) {
	const q = `
SELECT id, name, description, base_daily_price, max_concurrent_reservations, active, created_at
FROM packages
WHERE active
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Package
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.BaseDailyPrice,
			&p.MaxConcurrentReservations, &p.Active, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
