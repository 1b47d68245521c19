package suppliers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
	"github.com/odyssey-erp/invoice-insights/internal/validation"
)

type mockRepository struct {
	mu        sync.Mutex
	suppliers map[string]Supplier
	getCalls  atomic.Int32
	getErr    error
	listErr   error
}

func newMockRepository(existing ...Supplier) *mockRepository {
	m := &mockRepository{suppliers: make(map[string]Supplier)}
	for _, s := range existing {
		m.suppliers[s.InternalID] = s
	}
	return m
}

func (m *mockRepository) Get(_ context.Context, id string) (Supplier, error) {
	m.getCalls.Add(1)
	if m.getErr != nil {
		return Supplier{}, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) List(_ context.Context, filters ListFilters) ([]Supplier, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Supplier
	for _, s := range m.suppliers {
		if filters.Status == "" || s.Status == filters.Status {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) InsertBatch(_ context.Context, suppliers []Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range suppliers {
		m.suppliers[s.InternalID] = s
	}
	return nil
}

func (m *mockRepository) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.suppliers))
	m.suppliers = make(map[string]Supplier)
	return n, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func supplierRow(id, company string) validation.RawRow {
	return validation.RawRow{
		validation.ColSupplierInternalID:        id,
		validation.ColSupplierExternalID:        "EXT-" + id,
		validation.ColSupplierCompanyName:       company,
		validation.ColSupplierAddress:           "1 Main St",
		validation.ColSupplierCity:              "Leeds",
		validation.ColSupplierCountry:           "UK",
		validation.ColSupplierContactName:       "Sam Doe",
		validation.ColSupplierPhone:             "0113 000",
		validation.ColSupplierEmail:             "sam@example.com",
		validation.ColSupplierBankCode:          "01",
		validation.ColSupplierBankBranchCode:    "02",
		validation.ColSupplierBankAccountNumber: "0003",
		validation.ColSupplierStatus:            "ACTIVE",
		validation.ColSupplierStockValue:        "10",
		validation.ColSupplierWithholdingTax:    "1.5",
	}
}

func TestResolveFirstSeenWins(t *testing.T) {
	repo := newMockRepository()
	resolver := NewResolver(repo, 4, quietLogger())

	res, err := resolver.Resolve(context.Background(), []validation.RawRow{
		supplierRow("S1", "First Name Ltd"),
		supplierRow("S1", "Second Name Ltd"),
		supplierRow("S2", "Other Co"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Len())
	s1, ok := res.Lookup("S1")
	require.True(t, ok)
	assert.Equal(t, "First Name Ltd", s1.CompanyName)
	assert.Equal(t, int32(2), repo.getCalls.Load(), "one lookup per distinct id")

	created := res.Created()
	require.Len(t, created, 2)
	assert.Equal(t, "S1", created[0].InternalID)
	assert.Equal(t, "S2", created[1].InternalID)
}

func TestResolveReusesStoredSuppliers(t *testing.T) {
	stored := Supplier{InternalID: "S1", CompanyName: "Stored Ltd", Status: "INACTIVE"}
	resolver := NewResolver(newMockRepository(stored), 2, quietLogger())

	res, err := resolver.Resolve(context.Background(), []validation.RawRow{
		supplierRow("S1", "Uploaded Name"),
		supplierRow("S3", "New Co"),
	})
	require.NoError(t, err)

	s1, _ := res.Lookup("S1")
	assert.Equal(t, stored, s1)
	created := res.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "S3", created[0].InternalID)
}

func TestResolvePaddedIDsShareOneSupplier(t *testing.T) {
	repo := newMockRepository()
	resolver := NewResolver(repo, 4, quietLogger())

	res, err := resolver.Resolve(context.Background(), []validation.RawRow{
		supplierRow("S1", "First Ltd"),
		supplierRow(" S1", "Second Ltd"),
		supplierRow("S1 ", "Third Ltd"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Len())
	assert.Equal(t, int32(1), repo.getCalls.Load())
	created := res.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "S1", created[0].InternalID)
	assert.Equal(t, "First Ltd", created[0].CompanyName)
}

func TestResolvePaddedIDReusesStoredSupplier(t *testing.T) {
	stored := Supplier{InternalID: "S1", CompanyName: "Stored Ltd", Status: "ACTIVE"}
	resolver := NewResolver(newMockRepository(stored), 2, quietLogger())

	res, err := resolver.Resolve(context.Background(), []validation.RawRow{supplierRow("S1 ", "Uploaded Ltd")})
	require.NoError(t, err)

	s1, ok := res.Lookup("S1")
	require.True(t, ok)
	assert.Equal(t, stored, s1)
	assert.Empty(t, res.Created())
}

func TestResolveLaterDuplicatesAreNotValidated(t *testing.T) {
	bad := supplierRow("S1", "")
	resolver := NewResolver(newMockRepository(), 1, quietLogger())

	_, err := resolver.Resolve(context.Background(), []validation.RawRow{supplierRow("S1", "Good Ltd"), bad})
	require.NoError(t, err)
}

func TestResolveValidationFailureCarriesRow(t *testing.T) {
	bad := supplierRow("S2", "Bad Co")
	bad[validation.ColSupplierEmail] = "nope"
	resolver := NewResolver(newMockRepository(), 4, quietLogger())

	_, err := resolver.Resolve(context.Background(), []validation.RawRow{supplierRow("S1", "Fine"), bad})
	require.ErrorIs(t, err, shared.ErrValidationFailed)

	var tagged *shared.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, 2, tagged.Row)
}

func TestResolveStorageFailure(t *testing.T) {
	repo := newMockRepository()
	repo.getErr = errors.New("connection refused")
	resolver := NewResolver(repo, 4, quietLogger())

	_, err := resolver.Resolve(context.Background(), []validation.RawRow{supplierRow("S1", "A")})
	require.ErrorIs(t, err, shared.ErrStorageFailure)
}

func TestResolveSkipsRowsWithoutSupplierID(t *testing.T) {
	resolver := NewResolver(newMockRepository(), 4, quietLogger())
	res, err := resolver.Resolve(context.Background(), []validation.RawRow{{validation.ColInvoiceID: "INV1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Empty(t, res.Created())
}
