package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := &Error{Kind: KindDuplicateInvoice, Op: "ingest", Key: "INV-1", Err: errors.New("exists")}
	wrapped := fmt.Errorf("run: %w", err)

	require.ErrorIs(t, wrapped, ErrDuplicateInvoice)
	require.NotErrorIs(t, wrapped, ErrValidationFailed)
	assert.Equal(t, KindDuplicateInvoice, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := (&Error{
		Kind:   KindValidationFailed,
		Op:     "validate",
		Key:    "INV-9",
		Fields: []FieldError{{Field: "invoice_cost", Rule: "positive_decimal", Message: "must be a positive number"}},
	}).WithRow(3)

	assert.Equal(t, "validate: ValidationFailed (row 3) [INV-9]: invoice_cost: must be a positive number", err.Error())
}

func TestWithRowCopies(t *testing.T) {
	base := E(KindSupplierNotFound, "build", nil)
	pinned := base.WithRow(7)
	assert.Zero(t, base.Row)
	assert.Equal(t, 7, pinned.Row)
	require.ErrorIs(t, pinned, ErrSupplierNotFound)
}
