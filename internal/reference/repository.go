package reference

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and seeds reference rows.
type Repository interface {
	ListCurrencies(ctx context.Context) ([]Currency, error)
	ListStatuses(ctx context.Context) ([]InvoiceStatus, error)
	EnsureCurrency(ctx context.Context, name string) (bool, error)
	EnsureStatus(ctx context.Context, name string) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM currency ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) ListStatuses(ctx context.Context) ([]InvoiceStatus, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM invoice_status ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InvoiceStatus
	for rows.Next() {
		var s InvoiceStatus
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// EnsureCurrency inserts the currency when missing and reports whether a row was created.
func (r *repository) EnsureCurrency(ctx context.Context, name string) (bool, error) {
	tag, err := r.db.Exec(ctx, `INSERT INTO currency (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// EnsureStatus inserts the invoice status when missing and reports whether a row was created.
func (r *repository) EnsureStatus(ctx context.Context, name string) (bool, error) {
	tag, err := r.db.Exec(ctx, `INSERT INTO invoice_status (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
