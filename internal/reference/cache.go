package reference

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// Source lists reference rows; Repository satisfies it.
type Source interface {
	ListCurrencies(ctx context.Context) ([]Currency, error)
	ListStatuses(ctx context.Context) ([]InvoiceStatus, error)
}

// Cache maps natural keys to reference rows. It is immutable once built and
// safe for concurrent reads.
type Cache struct {
	currencies []Currency
	statuses   []InvoiceStatus
	currencyBy map[string]Currency
	statusBy   map[string]InvoiceStatus
	statusByID map[int64]InvoiceStatus
}

// NewCache indexes the given rows.
func NewCache(currencies []Currency, statuses []InvoiceStatus) *Cache {
	c := &Cache{
		currencies: append([]Currency(nil), currencies...),
		statuses:   append([]InvoiceStatus(nil), statuses...),
		currencyBy: make(map[string]Currency, len(currencies)),
		statusBy:   make(map[string]InvoiceStatus, len(statuses)),
		statusByID: make(map[int64]InvoiceStatus, len(statuses)),
	}
	for _, cur := range currencies {
		c.currencyBy[cur.Name] = cur
	}
	for _, st := range statuses {
		c.statusBy[st.Name] = st
		c.statusByID[st.ID] = st
	}
	return c
}

// Load builds a Cache from src.
func Load(ctx context.Context, src Source) (*Cache, error) {
	currencies, err := src.ListCurrencies(ctx)
	if err != nil {
		return nil, shared.E(shared.KindStorageFailure, "reference: load currencies", err)
	}
	statuses, err := src.ListStatuses(ctx)
	if err != nil {
		return nil, shared.E(shared.KindStorageFailure, "reference: load statuses", err)
	}
	return NewCache(currencies, statuses), nil
}

// Currency resolves a currency by code.
func (c *Cache) Currency(name string) (Currency, error) {
	cur, ok := c.currencyBy[name]
	if !ok {
		return Currency{}, &shared.Error{
			Kind: shared.KindReferenceNotFound,
			Op:   "reference: currency",
			Key:  name,
			Err:  fmt.Errorf("currency %s not found", name),
		}
	}
	return cur, nil
}

// Status resolves an invoice status by name.
func (c *Cache) Status(name string) (InvoiceStatus, error) {
	st, ok := c.statusBy[name]
	if !ok {
		return InvoiceStatus{}, &shared.Error{
			Kind: shared.KindReferenceNotFound,
			Op:   "reference: status",
			Key:  name,
			Err:  fmt.Errorf("invoice status %s not found", name),
		}
	}
	return st, nil
}

// StatusByID resolves an invoice status by surrogate id.
func (c *Cache) StatusByID(id int64) (InvoiceStatus, bool) {
	st, ok := c.statusByID[id]
	return st, ok
}

// Currencies returns the cached currencies in load order.
func (c *Cache) Currencies() []Currency {
	return append([]Currency{}, c.currencies...)
}

// Statuses returns the cached invoice statuses in load order.
func (c *Cache) Statuses() []InvoiceStatus {
	return append([]InvoiceStatus{}, c.statuses...)
}

// Registry owns the process-wide Cache. It is constructed explicitly at
// startup and passed to the components that read reference data.
type Registry struct {
	src     Source
	current atomic.Pointer[Cache]
}

// NewRegistry constructs a Registry; nothing is loaded until Refresh or Current.
func NewRegistry(src Source) *Registry {
	return &Registry{src: src}
}

// Refresh rebuilds the cache from the source and swaps it in.
func (r *Registry) Refresh(ctx context.Context) (*Cache, error) {
	cache, err := Load(ctx, r.src)
	if err != nil {
		return nil, err
	}
	r.current.Store(cache)
	return cache, nil
}

// Current returns the loaded cache, loading it on first use.
func (r *Registry) Current(ctx context.Context) (*Cache, error) {
	if cache := r.current.Load(); cache != nil {
		return cache, nil
	}
	return r.Refresh(ctx)
}
