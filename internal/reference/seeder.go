package reference

import (
	"context"
	"fmt"
	"log/slog"
)

// Seeder populates the fixed reference enumerations.
type Seeder struct {
	repo   Repository
	logger *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(repo Repository, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{repo: repo, logger: logger}
}

// Seed inserts every missing currency and invoice status. Existing rows are left untouched.
func (s *Seeder) Seed(ctx context.Context) error {
	for _, name := range Currencies() {
		created, err := s.repo.EnsureCurrency(ctx, name)
		if err != nil {
			s.logger.Error("seed currency", slog.String("currency", name), slog.Any("error", err))
			return fmt.Errorf("reference: seed currency %s: %w", name, err)
		}
		if created {
			s.logger.Info("currency seeded", slog.String("currency", name))
		}
	}
	for _, name := range InvoiceStatuses() {
		created, err := s.repo.EnsureStatus(ctx, name)
		if err != nil {
			s.logger.Error("seed invoice status", slog.String("status", name), slog.Any("error", err))
			return fmt.Errorf("reference: seed invoice status %s: %w", name, err)
		}
		if created {
			s.logger.Info("invoice status seeded", slog.String("status", name))
		}
	}
	return nil
}
