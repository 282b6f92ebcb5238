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

type healthScoreRepo struct {
	db *sqlx.DB
}

// NewHealthScoreRepo creates a new PostgreSQL-backed HealthScoreRepository.
func NewHealthScoreRepo(db *sqlx.DB) port.HealthScoreRepository {
	return &healthScoreRepo{db: db}
}

// Upsert writes the score keyed by invoice so each invoice carries exactly
// one health record across reprocessing runs.
func (r *healthScoreRepo) Upsert(ctx context.Context, score *domain.HealthScore) error {
	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO health_scores (
			id, invoice_id, overall_score, status,
			completeness_score, verification_score, compliance_score,
			fraud_score, confidence_score, key_flags, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (invoice_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			status = EXCLUDED.status,
			completeness_score = EXCLUDED.completeness_score,
			verification_score = EXCLUDED.verification_score,
			compliance_score = EXCLUDED.compliance_score,
			fraud_score = EXCLUDED.fraud_score,
			confidence_score = EXCLUDED.confidence_score,
			key_flags = EXCLUDED.key_flags,
			updated_at = EXCLUDED.updated_at`,
		score.ID, score.InvoiceID, score.OverallScore, score.Status,
		score.CompletenessScore, score.VerificationScore, score.ComplianceScore,
		score.FraudScore, score.ConfidenceScore, score.KeyFlags, score.CreatedAt, score.UpdatedAt)
	if err != nil {
		return fmt.Errorf("healthScoreRepo.Upsert: %w", err)
	}
	return nil
}

func (r *healthScoreRepo) GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.HealthScore, error) {
	var score domain.HealthScore
	err := r.db.GetContext(ctx, &score,
		"SELECT * FROM health_scores WHERE invoice_id = $1", invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHealthScoreNotFound
		}
		return nil, fmt.Errorf("healthScoreRepo.GetByInvoice: %w", err)
	}
	return &score, nil
}
