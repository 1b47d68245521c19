package suppliers

import "github.com/odyssey-erp/invoice-insights/internal/validation"

// Supplier is a persisted supplier keyed by its internal id.
type Supplier struct {
	InternalID        string  `json:"internal_id"`
	ExternalID        string  `json:"external_id"`
	CompanyName       string  `json:"company_name"`
	Address           string  `json:"address"`
	City              string  `json:"city"`
	Country           string  `json:"country"`
	ContactName       string  `json:"contact_name"`
	Phone             string  `json:"phone"`
	Email             string  `json:"email"`
	BankCode          string  `json:"bank_code"`
	BankBranchCode    string  `json:"bank_branch_code"`
	BankAccountNumber string  `json:"bank_account_number"`
	Status            string  `json:"status"`
	StockValue        float64 `json:"stock_value"`
	WithholdingTax    float64 `json:"withholding_tax"`
}

// FromRow maps a validated supplier row to a Supplier.
func FromRow(row validation.SupplierRow) Supplier {
	return Supplier{
		InternalID:        row.InternalID,
		ExternalID:        row.ExternalID,
		CompanyName:       row.CompanyName,
		Address:           row.Address,
		City:              row.City,
		Country:           row.Country,
		ContactName:       row.ContactName,
		Phone:             row.Phone,
		Email:             row.Email,
		BankCode:          row.BankCode,
		BankBranchCode:    row.BankBranchCode,
		BankAccountNumber: row.BankAccountNumber,
		Status:            row.Status,
		StockValue:        row.StockValue,
		WithholdingTax:    row.WithholdingTax,
	}
}

// ListFilters narrows a supplier listing.
type ListFilters struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}
