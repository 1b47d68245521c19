// Package ingest drives CSV uploads through validation, supplier resolution,
// invoice building and a single transactional write.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/invoice-insights/internal/invoices"
	"github.com/odyssey-erp/invoice-insights/internal/reference"
	"github.com/odyssey-erp/invoice-insights/internal/shared"
	"github.com/odyssey-erp/invoice-insights/internal/suppliers"
	"github.com/odyssey-erp/invoice-insights/internal/validation"
)

// ReferenceSource yields the reference cache; *reference.Registry satisfies it.
type ReferenceSource interface {
	Current(ctx context.Context) (*reference.Cache, error)
}

// Locker guards the single-writer section; *shared.Lock satisfies it.
type Locker interface {
	Acquire(ctx context.Context) (func(), error)
}

// Invalidator drops cached analytics after the data changed.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder receives run outcomes; *observability.Metrics satisfies it.
type Recorder interface {
	ObserveIngestion(outcome string, invoices, suppliersCreated int, elapsed time.Duration)
}

// Config tunes the orchestrator.
type Config struct {
	UploadDir           string
	ChunkSize           int
	SupplierConcurrency int
	Timeout             time.Duration
}

// Result summarises a successful run.
type Result struct {
	RunID            string `json:"run_id"`
	RowsRead         int    `json:"rows_read"`
	InvoicesSaved    int    `json:"invoices"`
	SuppliersCreated int    `json:"suppliers_created"`
	SuppliersReused  int    `json:"suppliers_reused"`
	Reset            bool   `json:"reset"`
}

// ResetResult reports what a full reset removed.
type ResetResult struct {
	InvoicesDeleted  int64 `json:"invoices_deleted"`
	SuppliersDeleted int64 `json:"suppliers_deleted"`
}

// Service is the ingestion orchestrator.
type Service struct {
	store   Store
	refs    ReferenceSource
	lock    Locker
	cache   Invalidator
	metrics Recorder
	builder *invoices.Builder
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithInvalidator bumps the analytics cache after writes.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.cache = inv }
}

// WithRecorder reports run outcomes.
func WithRecorder(rec Recorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithClock overrides the processing clock used for the overdue rule.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the orchestrator.
func NewService(store Store, refs ReferenceSource, lock Locker, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = invoices.DefaultChunkSize
	}
	if cfg.SupplierConcurrency <= 0 {
		cfg.SupplierConcurrency = 1
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, refs: refs, lock: lock, cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = invoices.NewBuilder(invoices.WithNow(s.now))
	return s
}

// Ingest stages the upload and runs the whole pipeline on it.
func (s *Service) Ingest(ctx context.Context, up Upload) (Result, error) {
	staged, err := s.Stage(up)
	if err != nil {
		return Result{}, err
	}
	return s.IngestStaged(ctx, staged)
}

// Stage checks the media type and copies the body into the upload directory.
func (s *Service) Stage(up Upload) (StagedUpload, error) {
	if _, err := CheckMediaType(up.MediaType); err != nil {
		return StagedUpload{}, err
	}
	path, err := stage(s.cfg.UploadDir, up.Body)
	if err != nil {
		s.logger.Error("stage upload failed", slog.String("file", up.Filename), slog.Any("error", err))
		return StagedUpload{}, shared.E(shared.KindStorageFailure, "ingest: stage", err)
	}
	return StagedUpload{Path: path, Filename: up.Filename, MediaType: up.MediaType, Reset: up.Reset}, nil
}

// Discard removes a staged file that will not be ingested.
func (s *Service) Discard(staged StagedUpload) {
	if err := os.Remove(staged.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove staged file failed", slog.String("path", staged.Path), slog.Any("error", err))
	}
}

// IngestStaged runs the pipeline over an already staged file. The staged file
// is removed whatever the outcome.
func (s *Service) IngestStaged(ctx context.Context, staged StagedUpload) (Result, error) {
	defer s.Discard(staged)

	runID := uuid.NewString()
	ctx = shared.ContextWithRunID(ctx, runID)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	logger := shared.LoggerFromContext(ctx, s.logger).With(slog.String("file", staged.Filename))
	started := time.Now()
	run := Run{ID: runID, SourceFile: staged.Filename, StartedAt: started}

	result, err := s.run(ctx, staged, &run)
	result.RunID = runID

	run.FinishedAt = time.Now()
	elapsed := run.FinishedAt.Sub(started)
	outcome := "success"
	if err != nil {
		outcome = string(shared.KindOf(err))
		run.Status = RunFailed
		run.ErrorKind = outcome
		run.ErrorMessage = err.Error()
		logger.Error("ingestion failed", slog.String("kind", outcome), slog.Any("error", err))
	} else {
		run.Status = RunSucceeded
		logger.Info("ingestion completed",
			slog.Int("rows", result.RowsRead),
			slog.Int("invoices", result.InvoicesSaved),
			slog.Int("suppliers_created", result.SuppliersCreated),
			slog.Duration("elapsed", elapsed))
	}
	if s.metrics != nil {
		s.metrics.ObserveIngestion(outcome, result.InvoicesSaved, result.SuppliersCreated, elapsed)
	}
	if errors.Is(err, shared.ErrIngestionInProgress) {
		return result, err
	}
	s.recordRun(ctx, logger, run)
	return result, err
}

func (s *Service) run(ctx context.Context, staged StagedUpload, run *Run) (Result, error) {
	result := Result{Reset: staged.Reset}

	charset, err := CheckMediaType(staged.MediaType)
	if err != nil {
		return result, err
	}

	release, err := s.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return result, shared.E(shared.KindIngestionInProgress, "ingest: lock", err)
		}
		return result, shared.E(shared.KindStorageFailure, "ingest: lock", err)
	}
	defer release()

	rows, err := s.readRows(staged.Path, charset)
	if err != nil {
		return result, err
	}
	result.RowsRead = len(rows)
	run.RowsRead = len(rows)

	refs, err := s.refs.Current(ctx)
	if err != nil {
		return result, err
	}

	var lookup suppliers.Getter = storeLookup{s.store}
	if staged.Reset {
		lookup = emptyStore{}
	}
	resolution, err := suppliers.NewResolver(lookup, s.cfg.SupplierConcurrency, shared.LoggerFromContext(ctx, s.logger)).Resolve(ctx, rows)
	if err != nil {
		return result, err
	}

	built, err := s.buildInvoices(ctx, rows, resolution, refs, lookup)
	if err != nil {
		return result, err
	}

	if !staged.Reset {
		if err := s.rejectStoredDuplicates(ctx, built); err != nil {
			return result, err
		}
	}

	created := resolution.Created()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if staged.Reset {
			if err := clearAll(ctx, tx); err != nil {
				return err
			}
		}
		if err := tx.InsertSuppliers(ctx, created); err != nil {
			return err
		}
		return tx.InsertInvoices(ctx, built, s.cfg.ChunkSize)
	})
	if err != nil {
		if shared.KindOf(err) != "" {
			return result, err
		}
		return result, shared.E(shared.KindStorageFailure, "ingest: persist", err)
	}

	result.InvoicesSaved = len(built)
	result.SuppliersCreated = len(created)
	result.SuppliersReused = resolution.Len() - len(created)
	run.InvoicesSaved = result.InvoicesSaved
	run.SuppliersCreated = result.SuppliersCreated

	s.invalidate(ctx)
	return result, nil
}

func (s *Service) readRows(path, charset string) ([]validation.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, shared.E(shared.KindStorageFailure, "ingest: open staged file", err)
	}
	defer f.Close()

	r, err := decodeReader(f, charset)
	if err != nil {
		return nil, shared.E(shared.KindUnsupportedFileType, "ingest: decode", err)
	}
	return ParseCSV(r)
}

// buildInvoices validates and builds every row; the first failing row aborts.
func (s *Service) buildInvoices(ctx context.Context, rows []validation.RawRow, resolution *suppliers.Resolution, refs invoices.References, lookup suppliers.Getter) ([]invoices.Invoice, error) {
	built := make([]invoices.Invoice, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for i, raw := range rows {
		rowNum := i + 1
		row, err := validation.ValidateInvoice(raw)
		if err != nil {
			return nil, withRow(err, rowNum)
		}
		if first, dup := seen[row.ID]; dup {
			return nil, &shared.Error{
				Kind: shared.KindDuplicateInvoice,
				Op:   "ingest: build",
				Row:  rowNum,
				Key:  row.ID,
				Err:  fmt.Errorf("invoice id already used on row %d", first),
			}
		}
		seen[row.ID] = rowNum

		supplier, err := s.supplierFor(ctx, row.SupplierInternalID, resolution, lookup)
		if err != nil {
			return nil, withRow(err, rowNum)
		}
		inv, err := s.builder.Build(row, supplier, refs)
		if err != nil {
			return nil, withRow(err, rowNum)
		}
		built = append(built, inv)
	}
	return built, nil
}

func (s *Service) supplierFor(ctx context.Context, id string, resolution *suppliers.Resolution, lookup suppliers.Getter) (suppliers.Supplier, error) {
	if sup, ok := resolution.Lookup(id); ok {
		return sup, nil
	}
	sup, err := lookup.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return suppliers.Supplier{}, &shared.Error{
			Kind: shared.KindSupplierNotFound,
			Op:   "ingest: supplier lookup",
			Key:  id,
			Err:  fmt.Errorf("supplier %s not found", id),
		}
	}
	if err != nil {
		return suppliers.Supplier{}, shared.E(shared.KindStorageFailure, "ingest: supplier lookup", err)
	}
	return sup, nil
}

func (s *Service) rejectStoredDuplicates(ctx context.Context, built []invoices.Invoice) error {
	ids := make([]string, len(built))
	for i, inv := range built {
		ids[i] = inv.ID
	}
	existing, err := s.store.ExistingInvoiceIDs(ctx, ids)
	if err != nil {
		return shared.E(shared.KindStorageFailure, "ingest: duplicate check", err)
	}
	if len(existing) == 0 {
		return nil
	}
	rowOf := make(map[string]int, len(ids))
	for i, id := range ids {
		rowOf[id] = i + 1
	}
	return &shared.Error{
		Kind: shared.KindDuplicateInvoice,
		Op:   "ingest: duplicate check",
		Row:  rowOf[existing[0]],
		Key:  existing[0],
		Err:  fmt.Errorf("%d invoice id(s) already stored", len(existing)),
	}
}

// Reset deletes every invoice and supplier in one transaction.
func (s *Service) Reset(ctx context.Context) (ResetResult, error) {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return ResetResult{}, shared.E(shared.KindIngestionInProgress, "ingest: reset", err)
		}
		return ResetResult{}, shared.E(shared.KindStorageFailure, "ingest: reset", err)
	}
	defer release()

	var res ResetResult
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		if res.InvoicesDeleted, err = tx.DeleteInvoices(ctx); err != nil {
			return err
		}
		res.SuppliersDeleted, err = tx.DeleteSuppliers(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("reset failed", slog.Any("error", err))
		return ResetResult{}, shared.E(shared.KindStorageFailure, "ingest: reset", err)
	}
	s.logger.Info("store reset",
		slog.Int64("invoices_deleted", res.InvoicesDeleted),
		slog.Int64("suppliers_deleted", res.SuppliersDeleted))
	s.invalidate(ctx)
	return res, nil
}

// RecentRuns lists the latest ingestion attempts.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	runs, err := s.store.RecentRuns(ctx, limit)
	if err != nil {
		return nil, shared.E(shared.KindStorageFailure, "ingest: runs", err)
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		shared.LoggerFromContext(ctx, s.logger).Warn("analytics cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) recordRun(ctx context.Context, logger *slog.Logger, run Run) {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.RecordRun(recordCtx, run); err != nil {
		logger.Warn("record ingestion run failed", slog.Any("error", err))
	}
}

func clearAll(ctx context.Context, tx TxStore) error {
	if _, err := tx.DeleteInvoices(ctx); err != nil {
		return err
	}
	_, err := tx.DeleteSuppliers(ctx)
	return err
}

func withRow(err error, row int) error {
	var tagged *shared.Error
	if errors.As(err, &tagged) {
		return tagged.WithRow(row)
	}
	return err
}

// storeLookup adapts Store to the resolver's point lookup.
type storeLookup struct{ store Store }

func (l storeLookup) Get(ctx context.Context, id string) (suppliers.Supplier, error) {
	return l.store.GetSupplier(ctx, id)
}

// emptyStore resolves nothing; used when the run starts from a cleared store.
type emptyStore struct{}

func (emptyStore) Get(context.Context, string) (suppliers.Supplier, error) {
	return suppliers.Supplier{}, shared.ErrNotFound
}
