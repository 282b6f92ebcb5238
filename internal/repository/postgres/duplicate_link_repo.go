package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type duplicateLinkRepo struct {
	db *sqlx.DB
}

// NewDuplicateLinkRepo creates a new PostgreSQL-backed DuplicateLinkRepository.
func NewDuplicateLinkRepo(db *sqlx.DB) port.DuplicateLinkRepository {
	return &duplicateLinkRepo{db: db}
}

func (r *duplicateLinkRepo) Create(ctx context.Context, link *domain.DuplicateLink) error {
	if link.DuplicateID == link.OriginalID {
		return domain.ErrSelfLink
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	link.DetectedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO duplicate_links (id, duplicate_id, original_id, detected_at)
		 VALUES ($1, $2, $3, $4)`,
		link.ID, link.DuplicateID, link.OriginalID, link.DetectedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyLinked
		}
		return fmt.Errorf("duplicateLinkRepo.Create: %w", err)
	}
	return nil
}

func (r *duplicateLinkRepo) GetByDuplicate(ctx context.Context, duplicateID uuid.UUID) (*domain.DuplicateLink, error) {
	var link domain.DuplicateLink
	err := r.db.GetContext(ctx, &link,
		"SELECT * FROM duplicate_links WHERE duplicate_id = $1", duplicateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("duplicateLinkRepo.GetByDuplicate: %w", err)
	}
	return &link, nil
}

func (r *duplicateLinkRepo) ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]domain.DuplicateLink, error) {
	var links []domain.DuplicateLink
	err := r.db.SelectContext(ctx, &links,
		"SELECT * FROM duplicate_links WHERE original_id = $1 ORDER BY detected_at", originalID)
	if err != nil {
		return nil, fmt.Errorf("duplicateLinkRepo.ListByOriginal: %w", err)
	}
	return links, nil
}
