package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

func validRow() RawRow {
	return RawRow{
		ColInvoiceID:                 "INV1",
		ColInvoiceDate:               "05/03/2024",
		ColInvoiceDueDate:            "20/03/2024",
		ColInvoiceCost:               "100.456",
		ColInvoiceCurrency:           "USD",
		ColInvoiceStatus:             "PENDING",
		ColSupplierInternalID:        "S1",
		ColSupplierExternalID:        "EXT-1",
		ColSupplierCompanyName:       "Acme Ltd",
		ColSupplierAddress:           "1 Main St",
		ColSupplierCity:              "London",
		ColSupplierCountry:           "UK",
		ColSupplierContactName:       "Jane Doe",
		ColSupplierPhone:             "+44 20 0000",
		ColSupplierEmail:             "jane@acme.test",
		ColSupplierBankCode:          "001",
		ColSupplierBankBranchCode:    "0042",
		ColSupplierBankAccountNumber: "000123456",
		ColSupplierStatus:            "ACTIVE",
		ColSupplierStockValue:        "2500.5",
		ColSupplierWithholdingTax:    "12.5",
	}
}

func fieldRules(t *testing.T, err error) map[string]string {
	t.Helper()
	var tagged *shared.Error
	require.True(t, errors.As(err, &tagged))
	out := make(map[string]string, len(tagged.Fields))
	for _, f := range tagged.Fields {
		out[f.Field] = f.Rule
	}
	return out
}

func TestValidateInvoiceCoercesTypes(t *testing.T) {
	got, err := ValidateInvoice(validRow())
	require.NoError(t, err)

	assert.Equal(t, "INV1", got.ID)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), got.DueDate)
	assert.Equal(t, 100.46, got.Cost)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "S1", got.SupplierInternalID)
}

func TestValidateSupplierKeepsTextualBankFields(t *testing.T) {
	got, err := ValidateSupplier(validRow())
	require.NoError(t, err)

	assert.Equal(t, "000123456", got.BankAccountNumber)
	assert.Equal(t, 2500.5, got.StockValue)
	assert.Equal(t, 12.5, got.WithholdingTax)
	assert.Equal(t, "ACTIVE", got.Status)
}

func TestValidateDispatchesOnKind(t *testing.T) {
	inv, err := Validate(validRow(), KindInvoice)
	require.NoError(t, err)
	assert.IsType(t, InvoiceRow{}, inv)

	sup, err := Validate(validRow(), KindSupplier)
	require.NoError(t, err)
	assert.IsType(t, SupplierRow{}, sup)

	_, err = Validate(validRow(), Kind(99))
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestValidateInvoiceRejectsUnknownCurrency(t *testing.T) {
	row := validRow()
	row[ColInvoiceCurrency] = "JPY"

	_, err := ValidateInvoice(row)
	require.ErrorIs(t, err, shared.ErrValidationFailed)
	assert.Equal(t, "oneof", fieldRules(t, err)[ColInvoiceCurrency])
}

func TestValidateEnumerationsAreCaseSensitive(t *testing.T) {
	cases := []struct {
		name  string
		col   string
		value string
		run   func(RawRow) error
	}{
		{name: "lowercase currency", col: ColInvoiceCurrency, value: "usd", run: invoiceErr},
		{name: "lowercase invoice status", col: ColInvoiceStatus, value: "pending", run: invoiceErr},
		{name: "mixed case currency", col: ColInvoiceCurrency, value: "Eur", run: invoiceErr},
		{name: "lowercase supplier status", col: ColSupplierStatus, value: "active", run: supplierErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			row[tc.col] = tc.value
			err := tc.run(row)
			require.ErrorIs(t, err, shared.ErrValidationFailed)
			assert.Equal(t, "oneof", fieldRules(t, err)[tc.col])
		})
	}
}

func invoiceErr(row RawRow) error {
	_, err := ValidateInvoice(row)
	return err
}

func supplierErr(row RawRow) error {
	_, err := ValidateSupplier(row)
	return err
}

func TestSupplierKeyTrims(t *testing.T) {
	assert.Equal(t, "S1", SupplierKey(RawRow{ColSupplierInternalID: "  S1\t"}))
	assert.Empty(t, SupplierKey(RawRow{}))
}

func TestValidateInvoiceDateErrors(t *testing.T) {
	cases := []struct {
		name  string
		value string
		rule  string
	}{
		{name: "iso format", value: "2024-03-05", rule: "ddmmyyyy"},
		{name: "single digit day", value: "5/03/2024", rule: "ddmmyyyy"},
		{name: "month thirteen", value: "05/13/2024", rule: "ddmmyyyy"},
		{name: "february thirty first", value: "31/02/2024", rule: "calendar_date"},
		{name: "non leap year", value: "29/02/2023", rule: "calendar_date"},
		{name: "missing", value: "", rule: "required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			row[ColInvoiceDueDate] = tc.value
			_, err := ValidateInvoice(row)
			require.ErrorIs(t, err, shared.ErrValidationFailed)
			assert.Equal(t, tc.rule, fieldRules(t, err)[ColInvoiceDueDate])
		})
	}
}

func TestValidateInvoiceAcceptsLeapDay(t *testing.T) {
	row := validRow()
	row[ColInvoiceDate] = "29/02/2024"
	_, err := ValidateInvoice(row)
	require.NoError(t, err)
}

func TestValidateCollectsAllViolations(t *testing.T) {
	row := validRow()
	row[ColInvoiceCost] = "-3"
	row[ColInvoiceStatus] = "VOID"
	delete(row, ColInvoiceID)

	_, err := ValidateInvoice(row)
	rules := fieldRules(t, err)
	assert.Equal(t, map[string]string{
		ColInvoiceCost:   "positive_decimal",
		ColInvoiceStatus: "oneof",
		ColInvoiceID:     "required",
	}, rules)
	assert.Contains(t, err.Error(), "ValidationFailed")
}

func TestValidateSupplierRules(t *testing.T) {
	cases := []struct {
		name  string
		col   string
		value string
		rule  string
	}{
		{name: "bad email", col: ColSupplierEmail, value: "not-an-email", rule: "email"},
		{name: "unknown status", col: ColSupplierStatus, value: "SUSPENDED", rule: "oneof"},
		{name: "zero stock", col: ColSupplierStockValue, value: "0", rule: "positive_decimal"},
		{name: "text tax", col: ColSupplierWithholdingTax, value: "ten", rule: "positive_decimal"},
		{name: "empty company", col: ColSupplierCompanyName, value: "  ", rule: "required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			row[tc.col] = tc.value
			_, err := ValidateSupplier(row)
			require.ErrorIs(t, err, shared.ErrValidationFailed)
			assert.Equal(t, tc.rule, fieldRules(t, err)[tc.col])
		})
	}
}

func TestMissingColumns(t *testing.T) {
	header := RequiredColumns()[:len(RequiredColumns())-2]
	assert.Equal(t, []string{ColSupplierStockValue, ColSupplierWithholdingTax}, MissingColumns(header))
	assert.Empty(t, MissingColumns(append(RequiredColumns(), "extra")))
}
