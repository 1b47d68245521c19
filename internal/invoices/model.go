// Package invoices builds invoice records from validated rows and persists them.
package invoices

import "time"

// Invoice is a persistable invoice with resolved references.
type Invoice struct {
	ID                 string    `json:"id"`
	Date               time.Time `json:"date"`
	DueDate            time.Time `json:"due_date"`
	Cost               float64   `json:"cost"`
	CurrencyID         int64     `json:"currency_id"`
	Currency           string    `json:"currency"`
	StatusID           int64     `json:"status_id"`
	Status             string    `json:"status"`
	SupplierInternalID string    `json:"supplier_internal_id"`
}
