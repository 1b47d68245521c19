package ingest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/invoice-insights/internal/invoices"
	"github.com/odyssey-erp/invoice-insights/internal/platform/db"
	"github.com/odyssey-erp/invoice-insights/internal/suppliers"
)

// Run is the audit record of one ingestion attempt.
type Run struct {
	ID               string    `json:"id"`
	SourceFile       string    `json:"source_file"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Status           string    `json:"status"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	RowsRead         int       `json:"rows_read"`
	InvoicesSaved    int       `json:"invoices_saved"`
	SuppliersCreated int       `json:"suppliers_created"`
}

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Store is the persistence the orchestrator drives.
type Store interface {
	GetSupplier(ctx context.Context, internalID string) (suppliers.Supplier, error)
	ExistingInvoiceIDs(ctx context.Context, ids []string) ([]string, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	RecordRun(ctx context.Context, run Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}

// TxStore holds the writes performed inside one transaction.
type TxStore interface {
	InsertSuppliers(ctx context.Context, suppliers []suppliers.Supplier) error
	InsertInvoices(ctx context.Context, invoices []invoices.Invoice, chunkSize int) error
	DeleteInvoices(ctx context.Context) (int64, error)
	DeleteSuppliers(ctx context.Context) (int64, error)
}

type pgStore struct {
	pool      *pgxpool.Pool
	suppliers suppliers.Repository
	invoices  invoices.Repository
}

// NewStore returns a PostgreSQL backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{
		pool:      pool,
		suppliers: suppliers.NewRepository(pool),
		invoices:  invoices.NewRepository(pool),
	}
}

func (s *pgStore) GetSupplier(ctx context.Context, internalID string) (suppliers.Supplier, error) {
	return s.suppliers.Get(ctx, internalID)
}

func (s *pgStore) ExistingInvoiceIDs(ctx context.Context, ids []string) ([]string, error) {
	return s.invoices.ExistingIDs(ctx, ids)
}

func (s *pgStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{
			suppliers: suppliers.NewRepository(tx),
			invoices:  invoices.NewRepository(tx),
		})
	})
}

func (s *pgStore) RecordRun(ctx context.Context, run Run) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO ingestion_runs
		(id, source_file, started_at, finished_at, status, error_kind, error_message, rows_read, invoices_saved, suppliers_created)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		run.ID, run.SourceFile, run.StartedAt, run.FinishedAt, run.Status, run.ErrorKind, run.ErrorMessage,
		run.RowsRead, run.InvoicesSaved, run.SuppliersCreated)
	return err
}

func (s *pgStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `SELECT id::text, source_file, started_at, finished_at, status,
		COALESCE(error_kind, ''), COALESCE(error_message, ''), rows_read, invoices_saved, suppliers_created
		FROM ingestion_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.ErrorKind, &r.ErrorMessage, &r.RowsRead, &r.InvoicesSaved, &r.SuppliersCreated); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type pgTxStore struct {
	suppliers suppliers.Repository
	invoices  invoices.Repository
}

func (t *pgTxStore) InsertSuppliers(ctx context.Context, list []suppliers.Supplier) error {
	return t.suppliers.InsertBatch(ctx, list)
}

func (t *pgTxStore) InsertInvoices(ctx context.Context, list []invoices.Invoice, chunkSize int) error {
	return t.invoices.InsertChunked(ctx, list, chunkSize)
}

func (t *pgTxStore) DeleteInvoices(ctx context.Context) (int64, error) {
	return t.invoices.DeleteAll(ctx)
}

func (t *pgTxStore) DeleteSuppliers(ctx context.Context) (int64, error) {
	return t.suppliers.DeleteAll(ctx)
}
