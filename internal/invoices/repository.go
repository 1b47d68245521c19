package invoices

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/invoice-insights/internal/platform/db"
	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// DefaultChunkSize bounds the number of rows sent per batch.
const DefaultChunkSize = 100

// Repository persists invoices.
type Repository interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	InsertChunked(ctx context.Context, invoices []Invoice, chunkSize int) error
	DeleteAll(ctx context.Context) (int64, error)
}

type repository struct {
	db db.Querier
}

// NewRepository returns a Repository over a pool or an open transaction.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

// ExistingIDs returns the subset of ids already stored.
func (r *repository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM invoices WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// InsertChunked writes invoices in batches of chunkSize. A unique violation is
// reported as DuplicateInvoice for the offending id.
func (r *repository) InsertChunked(ctx context.Context, invoices []Invoice, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	for _, chunk := range Chunk(invoices, chunkSize) {
		if err := r.insertChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) insertChunk(ctx context.Context, chunk []Invoice) error {
	batch := &pgx.Batch{}
	for _, inv := range chunk {
		batch.Queue(`INSERT INTO invoices (id, date, due_date, cost, currency_id, status_id, supplier_internal_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			inv.ID, inv.Date, inv.DueDate, inv.Cost, inv.CurrencyID, inv.StatusID, inv.SupplierInternalID)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for _, inv := range chunk {
		if _, err := results.Exec(); err != nil {
			if db.IsUniqueViolation(err) {
				return &shared.Error{
					Kind: shared.KindDuplicateInvoice,
					Op:   "invoices: insert",
					Key:  inv.ID,
					Err:  err,
				}
			}
			return fmt.Errorf("insert invoice %s: %w", inv.ID, err)
		}
	}
	return nil
}

func (r *repository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
