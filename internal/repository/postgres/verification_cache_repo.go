package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type verificationCacheRepo struct {
	db *sqlx.DB
}

// NewVerificationCacheRepo creates a new PostgreSQL-backed VerificationCacheRepository.
func NewVerificationCacheRepo(db *sqlx.DB) port.VerificationCacheRepository {
	return &verificationCacheRepo{db: db}
}

// Lookup returns the cached registry record for a tax ID and bumps its hit
// counter in the same statement.
func (r *verificationCacheRepo) Lookup(ctx context.Context, taxID string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := r.db.GetContext(ctx, &entry,
		`UPDATE verification_cache SET hit_count = hit_count + 1
		 WHERE tax_id = $1
		 RETURNING *`,
		taxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("verificationCacheRepo.Lookup: %w", err)
	}
	return &entry, nil
}

func (r *verificationCacheRepo) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now().UTC()
	entry.LastVerifiedAt = now
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_cache (
			id, tax_id, legal_name, trade_name, registry_status,
			registration_date, constitution, address, hit_count, last_verified_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
		ON CONFLICT (tax_id) DO UPDATE SET
			legal_name = EXCLUDED.legal_name,
			trade_name = EXCLUDED.trade_name,
			registry_status = EXCLUDED.registry_status,
			registration_date = EXCLUDED.registration_date,
			constitution = EXCLUDED.constitution,
			address = EXCLUDED.address,
			last_verified_at = EXCLUDED.last_verified_at`,
		entry.ID, entry.TaxID, entry.LegalName, entry.TradeName, entry.RegistryStatus,
		entry.RegistrationDate, entry.Constitution, entry.Address, entry.LastVerifiedAt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("verificationCacheRepo.Upsert: %w", err)
	}
	return nil
}

func (r *verificationCacheRepo) List(ctx context.Context, search string) ([]domain.CacheEntry, error) {
	var entries []domain.CacheEntry
	var err error
	if search == "" {
		err = r.db.SelectContext(ctx, &entries,
			"SELECT * FROM verification_cache ORDER BY last_verified_at DESC")
	} else {
		pattern := "%" + search + "%"
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM verification_cache
			 WHERE tax_id ILIKE $1 OR legal_name ILIKE $1 OR trade_name ILIKE $1
			 ORDER BY last_verified_at DESC`,
			pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("verificationCacheRepo.List: %w", err)
	}
	return entries, nil
}
