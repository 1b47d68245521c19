// Package reference holds the static enumerations the ingestion pipeline
// resolves by name: currencies and invoice statuses, plus the supplier status
// enumeration used during validation.
package reference

// Currency codes accepted in uploaded files.
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
)

// Invoice status names.
const (
	StatusPaid    = "PAID"
	StatusPending = "PENDING"
	StatusOverdue = "OVERDUE"
)

// Supplier status values.
const (
	SupplierActive   = "ACTIVE"
	SupplierInactive = "INACTIVE"
)

// Currencies returns the seeded currency codes in seed order.
func Currencies() []string {
	return []string{CurrencyUSD, CurrencyEUR, CurrencyGBP}
}

// InvoiceStatuses returns the seeded invoice status names in seed order.
func InvoiceStatuses() []string {
	return []string{StatusPaid, StatusPending, StatusOverdue}
}

// SupplierStatuses returns the supplier status enumeration.
func SupplierStatuses() []string {
	return []string{SupplierActive, SupplierInactive}
}

// Currency is a seeded currency row.
type Currency struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// InvoiceStatus is a seeded invoice status row.
type InvoiceStatus struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
