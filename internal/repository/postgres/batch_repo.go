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

type batchRepo struct {
	db *sqlx.DB
}

// NewBatchRepo creates a new PostgreSQL-backed BatchRepository.
func NewBatchRepo(db *sqlx.DB) port.BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, batch *domain.Batch) error {
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	batch.Status = domain.BatchStatusProcessing

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO batches (id, total_count, processed_count, failed_count, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		batch.ID, batch.TotalCount, batch.ProcessedCount, batch.FailedCount,
		batch.Status, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("batchRepo.Create: %w", err)
	}
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	var batch domain.Batch
	err := r.db.GetContext(ctx, &batch, "SELECT * FROM batches WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("batchRepo.GetByID: %w", err)
	}
	return &batch, nil
}

// RecordResult bumps the processed or failed counter under a row lock and
// recomputes the batch status, so concurrent workers never lose an update.
func (r *batchRepo) RecordResult(ctx context.Context, batchID uuid.UUID, failed bool) (*domain.Batch, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.RecordResult: begin tx: %w", err)
	}
	defer tx.Rollback()

	var batch domain.Batch
	err = tx.GetContext(ctx, &batch, "SELECT * FROM batches WHERE id = $1 FOR UPDATE", batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("batchRepo.RecordResult: %w", err)
	}

	if failed {
		batch.FailedCount++
	} else {
		batch.ProcessedCount++
	}
	batch.Status = domain.NextBatchStatus(batch.ProcessedCount, batch.FailedCount, batch.TotalCount)
	batch.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE batches SET processed_count = $1, failed_count = $2, status = $3, updated_at = $4
		 WHERE id = $5`,
		batch.ProcessedCount, batch.FailedCount, batch.Status, batch.UpdatedAt, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.RecordResult: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("batchRepo.RecordResult: commit: %w", err)
	}
	return &batch, nil
}
