package invoices

import (
	"time"

	"github.com/odyssey-erp/invoice-insights/internal/reference"
	"github.com/odyssey-erp/invoice-insights/internal/suppliers"
	"github.com/odyssey-erp/invoice-insights/internal/validation"
)

// References resolves currency and status names; *reference.Cache satisfies it.
type References interface {
	Currency(name string) (reference.Currency, error)
	Status(name string) (reference.InvoiceStatus, error)
}

// Builder converts validated rows into invoices.
type Builder struct {
	now func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithNow overrides the processing clock.
func WithNow(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder constructs a Builder using the wall clock unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EffectiveStatus returns OVERDUE when dueDate is strictly before now, else the
// declared status. A declared PAID is overridden as well.
func EffectiveStatus(declared string, dueDate, now time.Time) string {
	if dueDate.Before(now) {
		return reference.StatusOverdue
	}
	return declared
}

// Build resolves currency and status for row and assembles the invoice.
// Nothing is persisted.
func (b *Builder) Build(row validation.InvoiceRow, supplier suppliers.Supplier, refs References) (Invoice, error) {
	currency, err := refs.Currency(row.Currency)
	if err != nil {
		return Invoice{}, err
	}
	status, err := refs.Status(EffectiveStatus(row.Status, row.DueDate, b.now()))
	if err != nil {
		return Invoice{}, err
	}
	return Invoice{
		ID:                 row.ID,
		Date:               row.Date,
		DueDate:            row.DueDate,
		Cost:               row.Cost,
		CurrencyID:         currency.ID,
		Currency:           currency.Name,
		StatusID:           status.ID,
		Status:             status.Name,
		SupplierInternalID: supplier.InternalID,
	}, nil
}
