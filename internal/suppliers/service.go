package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// Service exposes read access to persisted suppliers.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Page is one page of a supplier listing.
type Page struct {
	Suppliers  []Supplier        `json:"suppliers"`
	Pagination shared.Pagination `json:"pagination"`
}

// List returns suppliers matching filters.
func (s *Service) List(ctx context.Context, filters ListFilters) (Page, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return Page{}, shared.E(shared.KindStorageFailure, "suppliers: list", err)
	}
	if items == nil {
		items = []Supplier{}
	}
	return Page{Suppliers: items, Pagination: shared.NewPagination(filters.Page, filters.PerPage, total)}, nil
}

// Get returns one supplier or a SupplierNotFound error.
func (s *Service) Get(ctx context.Context, internalID string) (Supplier, error) {
	sup, err := s.repo.Get(ctx, internalID)
	if errors.Is(err, shared.ErrNotFound) {
		return Supplier{}, &shared.Error{
			Kind: shared.KindSupplierNotFound,
			Op:   "suppliers: get",
			Key:  internalID,
			Err:  fmt.Errorf("supplier %s not found", internalID),
		}
	}
	if err != nil {
		return Supplier{}, shared.E(shared.KindStorageFailure, "suppliers: get", err)
	}
	return sup, nil
}
