package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the gateway to the external reservation store. The store is
// the single durable source of truth for committed reservations; rows follow
// the fixed tabular schema (facility, date, start, end, period, email, name,
// contact). Append is at-least-once; duplicate prevention is the caller's job
// via the conflict check.
type Repository interface {
	ListAll(ctx context.Context) ([]*Reservation, error)
	Append(ctx context.Context, r *Reservation) error

	// Delete removes the row matching the key tuple. Returns ErrNotFound when
	// no row matches; that is reported, not fatal.
	Delete(ctx context.Context, key Key) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) ListAll(ctx context.Context) ([]*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "facility", "date", "start_time", "end_time",
		"email", "name", "contact_number",
	).
		From("public.reservations").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(
			&res.ID, &res.Facility, &res.Date, &res.StartTime, &res.EndTime,
			&res.Email, &res.Name, &res.ContactNumber,
		); err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		// Only committed reservations are ever persisted.
		res.Status = StatusCommitted
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations failed: %w", err)
	}
	return out, nil
}

func (r *pgxRepository) Append(ctx context.Context, res *Reservation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.reservations").
		Columns("id", "facility", "date", "start_time", "end_time",
			"time_period", "email", "name", "contact_number").
		Values(res.ID, res.Facility, res.Date, res.StartTime, res.EndTime,
			res.TimePeriod(), res.Email, res.Name, res.ContactNumber).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append reservation query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			// A retried append landed twice; at-least-once makes this benign.
			return nil
		}
		return fmt.Errorf("append reservation failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, key Key) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.reservations").
		Where(squirrel.Eq{
			"facility":   key.Facility,
			"date":       key.Date,
			"start_time": key.StartTime,
			"end_time":   key.EndTime,
			"email":      key.Email,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reservation query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete reservation failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
