package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/invoice-insights/internal/platform/db"
	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// Repository persists suppliers.
type Repository interface {
	Get(ctx context.Context, internalID string) (Supplier, error)
	List(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	InsertBatch(ctx context.Context, suppliers []Supplier) error
	DeleteAll(ctx context.Context) (int64, error)
}

type repository struct {
	db db.Querier
}

// NewRepository returns a Repository over a pool or an open transaction.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

const selectColumns = `internal_id, COALESCE(external_id, ''), company_name, address, city, country,
	contact_name, phone, email, bank_code, bank_branch_code, bank_account_number, status,
	stock_value::float8, withholding_tax::float8`

func scan(row pgx.Row, s *Supplier) error {
	return row.Scan(&s.InternalID, &s.ExternalID, &s.CompanyName, &s.Address, &s.City, &s.Country,
		&s.ContactName, &s.Phone, &s.Email, &s.BankCode, &s.BankBranchCode, &s.BankAccountNumber,
		&s.Status, &s.StockValue, &s.WithholdingTax)
}

// Get returns shared.ErrNotFound when no supplier has the id.
func (r *repository) Get(ctx context.Context, internalID string) (Supplier, error) {
	var s Supplier
	err := scan(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM suppliers WHERE internal_id = $1`, internalID), &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (company_name ILIKE $` + n + ` OR internal_id ILIKE $` + n + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	query := `SELECT ` + selectColumns + ` FROM suppliers` + where +
		` ORDER BY company_name, internal_id LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := scan(rows, &s); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// InsertBatch writes all suppliers in one round trip.
func (r *repository) InsertBatch(ctx context.Context, suppliers []Supplier) error {
	if len(suppliers) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range suppliers {
		batch.Queue(`INSERT INTO suppliers (internal_id, external_id, company_name, address, city, country,
			contact_name, phone, email, bank_code, bank_branch_code, bank_account_number, status,
			stock_value, withholding_tax)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			s.InternalID, s.ExternalID, s.CompanyName, s.Address, s.City, s.Country,
			s.ContactName, s.Phone, s.Email, s.BankCode, s.BankBranchCode, s.BankAccountNumber,
			s.Status, s.StockValue, s.WithholdingTax)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for _, s := range suppliers {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert supplier %s: %w", s.InternalID, err)
		}
	}
	return nil
}

func (r *repository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
