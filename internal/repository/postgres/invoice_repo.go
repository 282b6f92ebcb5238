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

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	query := `INSERT INTO invoices (
		id, document_number, issue_date, vendor_name, vendor_tax_id, buyer_tax_id,
		grand_total, status, verification_status, extraction_method,
		extraction_failure_reason, confidence_score, batch_id,
		original_name, content_type, s3_bucket, s3_key,
		queue_status, attempts, next_attempt_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12, $13,
		$14, $15, $16, $17,
		$18, $19, $20, $21, $22
	)`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.DocumentNumber, inv.IssueDate, inv.VendorName, inv.VendorTaxID, inv.BuyerTaxID,
		inv.GrandTotal, inv.Status, inv.VerificationStatus, inv.ExtractionMethod,
		inv.ExtractionFailureReason, inv.ConfidenceScore, inv.BatchID,
		inv.OriginalName, inv.ContentType, inv.S3Bucket, inv.S3Key,
		inv.QueueStatus, inv.Attempts, inv.NextAttemptAt, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET
			document_number = $1, issue_date = $2, vendor_name = $3,
			vendor_tax_id = $4, buyer_tax_id = $5, grand_total = $6,
			status = $7, verification_status = $8, extraction_method = $9,
			extraction_failure_reason = $10, confidence_score = $11, updated_at = $12
		 WHERE id = $13`,
		inv.DocumentNumber, inv.IssueDate, inv.VendorName,
		inv.VendorTaxID, inv.BuyerTaxID, inv.GrandTotal,
		inv.Status, inv.VerificationStatus, inv.ExtractionMethod,
		inv.ExtractionFailureReason, inv.ConfidenceScore, inv.UpdatedAt,
		inv.ID)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Invoice, error) {
	var invs []domain.Invoice
	err := r.db.SelectContext(ctx, &invs,
		"SELECT * FROM invoices WHERE batch_id = $1 ORDER BY created_at", batchID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListByBatch: %w", err)
	}
	return invs, nil
}

func (r *invoiceRepo) FindOriginal(ctx context.Context, vendorTaxID, documentNumber string, exclude uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv,
		`SELECT * FROM invoices
		 WHERE vendor_tax_id = $1 AND document_number = $2
		   AND status <> $3 AND id <> $4
		 ORDER BY created_at ASC LIMIT 1`,
		vendorTaxID, documentNumber, domain.InvoiceStatusPendingAnalysis, exclude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.FindOriginal: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) SetVerificationByVendor(ctx context.Context, vendorTaxID string, status domain.VerificationStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET verification_status = $1, updated_at = $2
		 WHERE vendor_tax_id = $3 AND verification_status <> $1`,
		status, time.Now().UTC(), vendorTaxID)
	if err != nil {
		return 0, fmt.Errorf("invoiceRepo.SetVerificationByVendor: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *invoiceRepo) MarkQueued(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET queue_status = $1, next_attempt_at = NULL, updated_at = $2
		 WHERE id = $3`,
		domain.QueueStatusQueued, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.MarkQueued: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// ClaimQueued claims due invoices with SKIP LOCKED so concurrent workers never
// grab the same row.
func (r *invoiceRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Invoice, error) {
	var invs []domain.Invoice
	err := r.db.SelectContext(ctx, &invs,
		`UPDATE invoices SET queue_status = $1, attempts = attempts + 1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM invoices
			WHERE queue_status = $3
			  AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.QueueStatusProcessing, time.Now().UTC(), domain.QueueStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ClaimQueued: %w", err)
	}
	return invs, nil
}

func (r *invoiceRepo) Requeue(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET queue_status = $1, next_attempt_at = $2, updated_at = $3
		 WHERE id = $4`,
		domain.QueueStatusQueued, nextAttemptAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Requeue: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) FinishQueue(ctx context.Context, id uuid.UUID, status domain.QueueStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET queue_status = $1, next_attempt_at = NULL, updated_at = $2
		 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.FinishQueue: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}
