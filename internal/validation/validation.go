// Package validation checks and coerces raw CSV rows into typed supplier and
// invoice records. It performs no I/O.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// RawRow is one parsed CSV line keyed by header name.
type RawRow map[string]string

// Kind selects the record shape a row is validated as.
type Kind int

const (
	KindSupplier Kind = iota + 1
	KindInvoice
)

func (k Kind) String() string {
	switch k {
	case KindSupplier:
		return "supplier"
	case KindInvoice:
		return "invoice"
	default:
		return "unknown"
	}
}

// Column names of the upload format.
const (
	ColInvoiceID                 = "invoice_id"
	ColInvoiceDate               = "invoice_date"
	ColInvoiceDueDate            = "invoice_due_date"
	ColInvoiceCost               = "invoice_cost"
	ColInvoiceCurrency           = "invoice_currency"
	ColInvoiceStatus             = "invoice_status"
	ColSupplierInternalID        = "supplier_internal_id"
	ColSupplierExternalID        = "supplier_external_id"
	ColSupplierCompanyName       = "supplier_company_name"
	ColSupplierAddress           = "supplier_address"
	ColSupplierCity              = "supplier_city"
	ColSupplierCountry           = "supplier_country"
	ColSupplierContactName       = "supplier_contact_name"
	ColSupplierPhone             = "supplier_phone"
	ColSupplierEmail             = "supplier_email"
	ColSupplierBankCode          = "supplier_bank_code"
	ColSupplierBankBranchCode    = "supplier_bank_branch_code"
	ColSupplierBankAccountNumber = "supplier_bank_account_number"
	ColSupplierStatus            = "supplier_status"
	ColSupplierStockValue        = "supplier_stock_value"
	ColSupplierWithholdingTax    = "supplier_withholding_tax"
)

// RequiredColumns lists every header an upload must carry, in file order.
func RequiredColumns() []string {
	return []string{
		ColInvoiceID, ColInvoiceDate, ColInvoiceDueDate, ColInvoiceCost,
		ColInvoiceCurrency, ColInvoiceStatus, ColSupplierInternalID,
		ColSupplierExternalID, ColSupplierCompanyName, ColSupplierAddress,
		ColSupplierCity, ColSupplierCountry, ColSupplierContactName,
		ColSupplierPhone, ColSupplierEmail, ColSupplierBankCode,
		ColSupplierBankBranchCode, ColSupplierBankAccountNumber,
		ColSupplierStatus, ColSupplierStockValue, ColSupplierWithholdingTax,
	}
}

// MissingColumns reports required headers absent from header.
func MissingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns() {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// SupplierRow is a validated supplier projection of a RawRow.
type SupplierRow struct {
	InternalID        string
	ExternalID        string
	CompanyName       string
	Address           string
	City              string
	Country           string
	ContactName       string
	Phone             string
	Email             string
	BankCode          string
	BankBranchCode    string
	BankAccountNumber string
	Status            string
	StockValue        float64
	WithholdingTax    float64
}

// InvoiceRow is a validated invoice projection of a RawRow.
type InvoiceRow struct {
	ID                 string
	Date               time.Time
	DueDate            time.Time
	Cost               float64
	Currency           string
	Status             string
	SupplierInternalID string
}

// DateLayout is the only accepted date form, DD/MM/YYYY.
const DateLayout = "02/01/2006"

var datePattern = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/\d{4}$`)

type supplierInput struct {
	InternalID        string `csv:"supplier_internal_id" validate:"required,max=50"`
	ExternalID        string `csv:"supplier_external_id" validate:"required,max=50"`
	CompanyName       string `csv:"supplier_company_name" validate:"required,max=100"`
	Address           string `csv:"supplier_address" validate:"required,max=255"`
	City              string `csv:"supplier_city" validate:"required,max=100"`
	Country           string `csv:"supplier_country" validate:"required,max=50"`
	ContactName       string `csv:"supplier_contact_name" validate:"required,max=100"`
	Phone             string `csv:"supplier_phone" validate:"required,max=20"`
	Email             string `csv:"supplier_email" validate:"required,email,max=100"`
	BankCode          string `csv:"supplier_bank_code" validate:"max=50"`
	BankBranchCode    string `csv:"supplier_bank_branch_code" validate:"max=50"`
	BankAccountNumber string `csv:"supplier_bank_account_number" validate:"max=50"`
	Status            string `csv:"supplier_status" validate:"required,oneof=ACTIVE INACTIVE"`
	StockValue        string `csv:"supplier_stock_value" validate:"required,positive_decimal"`
	WithholdingTax    string `csv:"supplier_withholding_tax" validate:"required,positive_decimal"`
}

type invoiceInput struct {
	ID                 string `csv:"invoice_id" validate:"required,max=64"`
	Date               string `csv:"invoice_date" validate:"required,ddmmyyyy,calendar_date"`
	DueDate            string `csv:"invoice_due_date" validate:"required,ddmmyyyy,calendar_date"`
	Cost               string `csv:"invoice_cost" validate:"required,positive_decimal"`
	Currency           string `csv:"invoice_currency" validate:"required,oneof=USD EUR GBP"`
	Status             string `csv:"invoice_status" validate:"required,oneof=PAID PENDING OVERDUE"`
	SupplierInternalID string `csv:"supplier_internal_id" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("csv"); name != "" {
			return name
		}
		return f.Name
	})
	must(v.RegisterValidation("ddmmyyyy", func(fl validator.FieldLevel) bool {
		return datePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		n, err := parseDecimal(fl.Field().String())
		return err == nil && n > 0
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate checks row as the given kind and returns a SupplierRow or an InvoiceRow.
func Validate(row RawRow, kind Kind) (any, error) {
	switch kind {
	case KindSupplier:
		return ValidateSupplier(row)
	case KindInvoice:
		return ValidateInvoice(row)
	default:
		return nil, shared.E(shared.KindValidationFailed, "validation", fmt.Errorf("unknown row kind %d", kind))
	}
}

// ValidateSupplier checks the supplier columns of row.
func ValidateSupplier(row RawRow) (SupplierRow, error) {
	in := supplierInput{
		InternalID:        field(row, ColSupplierInternalID),
		ExternalID:        field(row, ColSupplierExternalID),
		CompanyName:       field(row, ColSupplierCompanyName),
		Address:           field(row, ColSupplierAddress),
		City:              field(row, ColSupplierCity),
		Country:           field(row, ColSupplierCountry),
		ContactName:       field(row, ColSupplierContactName),
		Phone:             field(row, ColSupplierPhone),
		Email:             field(row, ColSupplierEmail),
		BankCode:          field(row, ColSupplierBankCode),
		BankBranchCode:    field(row, ColSupplierBankBranchCode),
		BankAccountNumber: field(row, ColSupplierBankAccountNumber),
		Status:            field(row, ColSupplierStatus),
		StockValue:        field(row, ColSupplierStockValue),
		WithholdingTax:    field(row, ColSupplierWithholdingTax),
	}
	if err := check(in, "validation: supplier", in.InternalID); err != nil {
		return SupplierRow{}, err
	}
	stock, _ := parseDecimal(in.StockValue)
	tax, _ := parseDecimal(in.WithholdingTax)
	return SupplierRow{
		InternalID:        in.InternalID,
		ExternalID:        in.ExternalID,
		CompanyName:       in.CompanyName,
		Address:           in.Address,
		City:              in.City,
		Country:           in.Country,
		ContactName:       in.ContactName,
		Phone:             in.Phone,
		Email:             in.Email,
		BankCode:          in.BankCode,
		BankBranchCode:    in.BankBranchCode,
		BankAccountNumber: in.BankAccountNumber,
		Status:            in.Status,
		StockValue:        Round2(stock),
		WithholdingTax:    Round2(tax),
	}, nil
}

// ValidateInvoice checks the invoice columns of row.
func ValidateInvoice(row RawRow) (InvoiceRow, error) {
	in := invoiceInput{
		ID:                 field(row, ColInvoiceID),
		Date:               field(row, ColInvoiceDate),
		DueDate:            field(row, ColInvoiceDueDate),
		Cost:               field(row, ColInvoiceCost),
		Currency:           field(row, ColInvoiceCurrency),
		Status:             field(row, ColInvoiceStatus),
		SupplierInternalID: field(row, ColSupplierInternalID),
	}
	if err := check(in, "validation: invoice", in.ID); err != nil {
		return InvoiceRow{}, err
	}
	date, _ := time.Parse(DateLayout, in.Date)
	due, _ := time.Parse(DateLayout, in.DueDate)
	cost, _ := parseDecimal(in.Cost)
	return InvoiceRow{
		ID:                 in.ID,
		Date:               date,
		DueDate:            due,
		Cost:               Round2(cost),
		Currency:           in.Currency,
		Status:             in.Status,
		SupplierInternalID: in.SupplierInternalID,
	}, nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SupplierKey is the normalised supplier internal id of row, as validation
// reads it.
func SupplierKey(row RawRow) string {
	return field(row, ColSupplierInternalID)
}

func field(row RawRow, col string) string {
	return strings.TrimSpace(row[col])
}

func parseDecimal(s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("not a finite number")
	}
	return n, nil
}

func check(in any, op, key string) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.E(shared.KindValidationFailed, op, err)
	}
	fields := make([]shared.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, shared.FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: describe(fe),
		})
	}
	return &shared.Error{Kind: shared.KindValidationFailed, Op: op, Key: key, Fields: fields}
}

func describe(fe validator.FieldError) string {
	value := fmt.Sprint(fe.Value())
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return fmt.Sprintf("%q is not a valid email address", value)
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of %s", value, fe.Param())
	case "ddmmyyyy":
		return fmt.Sprintf("%q must match DD/MM/YYYY", value)
	case "calendar_date":
		return fmt.Sprintf("%q is not a calendar date", value)
	case "positive_decimal":
		return fmt.Sprintf("%q must be a positive number", value)
	default:
		return fe.Error()
	}
}
