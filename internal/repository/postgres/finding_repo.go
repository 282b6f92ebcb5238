package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type findingRepo struct {
	db *sqlx.DB
}

// NewFindingRepo creates a new PostgreSQL-backed FindingRepository.
func NewFindingRepo(db *sqlx.DB) port.FindingRepository {
	return &findingRepo{db: db}
}

// ReplaceForInvoice clears prior findings before writing the new set so a
// reprocessed invoice reflects only its latest analysis run.
func (r *findingRepo) ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, findings []domain.ComplianceFinding) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("findingRepo.ReplaceForInvoice: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM compliance_findings WHERE invoice_id = $1", invoiceID); err != nil {
		return fmt.Errorf("findingRepo.ReplaceForInvoice: delete: %w", err)
	}

	now := time.Now().UTC()
	for i := range findings {
		f := &findings[i]
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		f.InvoiceID = invoiceID
		f.CreatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO compliance_findings (id, invoice_id, line_item_id, kind, severity, description, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.InvoiceID, f.LineItemID, f.Kind, f.Severity, f.Description, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("findingRepo.ReplaceForInvoice: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("findingRepo.ReplaceForInvoice: commit: %w", err)
	}
	return nil
}

func (r *findingRepo) Create(ctx context.Context, f *domain.ComplianceFinding) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO compliance_findings (id, invoice_id, line_item_id, kind, severity, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.InvoiceID, f.LineItemID, f.Kind, f.Severity, f.Description, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("findingRepo.Create: %w", err)
	}
	return nil
}

func (r *findingRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.ComplianceFinding, error) {
	var findings []domain.ComplianceFinding
	err := r.db.SelectContext(ctx, &findings,
		"SELECT * FROM compliance_findings WHERE invoice_id = $1 ORDER BY created_at, id", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("findingRepo.ListByInvoice: %w", err)
	}
	return findings, nil
}
