package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type credentialUsageRepo struct {
	db *sqlx.DB
}

// NewCredentialUsageRepo creates a new PostgreSQL-backed CredentialUsageRepository.
func NewCredentialUsageRepo(db *sqlx.DB) port.CredentialUsageRepository {
	return &credentialUsageRepo{db: db}
}

// EnsureTracked inserts a usage row for the key hash if one does not exist.
// Only the one-way hash is ever stored.
func (r *credentialUsageRepo) EnsureTracked(ctx context.Context, keyHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credential_usage (key_hash, is_active, usage_count, created_at)
		 VALUES ($1, TRUE, 0, $2)
		 ON CONFLICT (key_hash) DO NOTHING`,
		keyHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credentialUsageRepo.EnsureTracked: %w", err)
	}
	return nil
}

func (r *credentialUsageRepo) Statuses(ctx context.Context, keyHashes []string) ([]domain.CredentialUsage, error) {
	if len(keyHashes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT * FROM credential_usage WHERE key_hash IN (?) ORDER BY created_at", keyHashes)
	if err != nil {
		return nil, fmt.Errorf("credentialUsageRepo.Statuses: %w", err)
	}
	query = r.db.Rebind(query)

	var usages []domain.CredentialUsage
	if err := r.db.SelectContext(ctx, &usages, query, args...); err != nil {
		return nil, fmt.Errorf("credentialUsageRepo.Statuses: %w", err)
	}
	return usages, nil
}

func (r *credentialUsageRepo) RecordUse(ctx context.Context, keyHash string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`UPDATE credential_usage SET usage_count = usage_count + 1, last_used_at = $1
		 WHERE key_hash = $2
		 RETURNING usage_count`,
		time.Now().UTC(), keyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrCredentialNotFound
		}
		return 0, fmt.Errorf("credentialUsageRepo.RecordUse: %w", err)
	}
	return count, nil
}

func (r *credentialUsageRepo) MarkExhausted(ctx context.Context, keyHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE credential_usage SET is_active = FALSE, exhausted_at = $1
		 WHERE key_hash = $2`,
		time.Now().UTC(), keyHash)
	if err != nil {
		return fmt.Errorf("credentialUsageRepo.MarkExhausted: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func (r *credentialUsageRepo) CountActive(ctx context.Context, keyHashes []string) (int, error) {
	if len(keyHashes) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		"SELECT COUNT(*) FROM credential_usage WHERE key_hash IN (?) AND is_active", keyHashes)
	if err != nil {
		return 0, fmt.Errorf("credentialUsageRepo.CountActive: %w", err)
	}
	query = r.db.Rebind(query)

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("credentialUsageRepo.CountActive: %w", err)
	}
	return count, nil
}

func (r *credentialUsageRepo) ResetAll(ctx context.Context, keyHashes []string) (int64, error) {
	if len(keyHashes) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		"UPDATE credential_usage SET is_active = TRUE, exhausted_at = NULL WHERE key_hash IN (?)", keyHashes)
	if err != nil {
		return 0, fmt.Errorf("credentialUsageRepo.ResetAll: %w", err)
	}
	query = r.db.Rebind(query)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("credentialUsageRepo.ResetAll: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
