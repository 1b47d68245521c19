package suppliers

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
	"github.com/odyssey-erp/invoice-insights/internal/validation"
)

// Getter is the point lookup the resolver needs from the store.
type Getter interface {
	Get(ctx context.Context, internalID string) (Supplier, error)
}

// Resolution is the outcome of resolving one batch: every distinct supplier of
// the batch, and the subset that does not exist in the store yet.
type Resolution struct {
	byID    map[string]Supplier
	created []Supplier
}

// Lookup returns the supplier resolved for internalID.
func (r *Resolution) Lookup(internalID string) (Supplier, bool) {
	if r == nil {
		return Supplier{}, false
	}
	s, ok := r.byID[internalID]
	return s, ok
}

// Created returns suppliers that must be inserted, ordered by internal id.
func (r *Resolution) Created() []Supplier {
	if r == nil {
		return nil
	}
	return append([]Supplier(nil), r.created...)
}

// Len is the number of distinct suppliers in the batch.
func (r *Resolution) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

// Resolver turns a batch of raw rows into one supplier per distinct internal id.
type Resolver struct {
	store       Getter
	concurrency int
	logger      *slog.Logger
}

// NewResolver constructs a Resolver. concurrency bounds parallel store lookups.
func NewResolver(store Getter, concurrency int, logger *slog.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, concurrency: concurrency, logger: logger}
}

type candidate struct {
	row    validation.RawRow
	rowNum int
}

type outcome struct {
	supplier Supplier
	isNew    bool
}

// Resolve scans rows once; the first row seen for an internal id supplies its
// data and later rows with the same id are not inspected. Suppliers already in
// the store are reused, the rest are validated and staged for creation. The
// call returns only after every distinct id is settled.
func (r *Resolver) Resolve(ctx context.Context, rows []validation.RawRow) (*Resolution, error) {
	var order []candidate
	seen := make(map[string]struct{})
	for i, row := range rows {
		id := validation.SupplierKey(row)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, candidate{row: row, rowNum: i + 1})
	}

	results := make([]outcome, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range order {
		g.Go(func() error {
			res, err := r.resolveOne(gctx, c)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolution := &Resolution{byID: make(map[string]Supplier, len(results))}
	for _, res := range results {
		resolution.byID[res.supplier.InternalID] = res.supplier
		if res.isNew {
			resolution.created = append(resolution.created, res.supplier)
		}
	}
	sort.Slice(resolution.created, func(i, j int) bool {
		return resolution.created[i].InternalID < resolution.created[j].InternalID
	})
	return resolution, nil
}

func (r *Resolver) resolveOne(ctx context.Context, c candidate) (outcome, error) {
	id := validation.SupplierKey(c.row)
	existing, err := r.store.Get(ctx, id)
	switch {
	case err == nil:
		return outcome{supplier: existing}, nil
	case errors.Is(err, shared.ErrNotFound):
	default:
		r.logger.Error("supplier lookup failed", slog.String("supplier", id), slog.Any("error", err))
		tagged := shared.E(shared.KindStorageFailure, "suppliers: lookup", err)
		tagged.Key = id
		return outcome{}, tagged.WithRow(c.rowNum)
	}

	validated, err := validation.ValidateSupplier(c.row)
	if err != nil {
		var tagged *shared.Error
		if errors.As(err, &tagged) {
			return outcome{}, tagged.WithRow(c.rowNum)
		}
		return outcome{}, err
	}
	return outcome{supplier: FromRow(validated), isNew: true}, nil
}
