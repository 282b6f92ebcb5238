package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type taxCodeRepo struct {
	db *sqlx.DB
}

// NewTaxCodeRepo creates a new PostgreSQL-backed TaxCodeRepository.
func NewTaxCodeRepo(db *sqlx.DB) port.TaxCodeRepository {
	return &taxCodeRepo{db: db}
}

func (r *taxCodeRepo) LoadAll(ctx context.Context) ([]domain.TaxCode, error) {
	var codes []domain.TaxCode
	err := r.db.SelectContext(ctx, &codes,
		"SELECT * FROM tax_codes ORDER BY category, code")
	if err != nil {
		return nil, fmt.Errorf("taxCodeRepo.LoadAll: %w", err)
	}
	return codes, nil
}
