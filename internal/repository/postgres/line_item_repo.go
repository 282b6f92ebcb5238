package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

type lineItemRepo struct {
	db *sqlx.DB
}

// NewLineItemRepo creates a new PostgreSQL-backed LineItemRepository.
func NewLineItemRepo(db *sqlx.DB) port.LineItemRepository {
	return &lineItemRepo{db: db}
}

// ReplaceForInvoice swaps an invoice's line items atomically so a reprocessed
// invoice never mixes old and new rows.
func (r *lineItemRepo) ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, items []domain.LineItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lineItemRepo.ReplaceForInvoice: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM line_items WHERE invoice_id = $1", invoiceID); err != nil {
		return fmt.Errorf("lineItemRepo.ReplaceForInvoice: delete: %w", err)
	}

	now := time.Now().UTC()
	for i := range items {
		item := &items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.InvoiceID = invoiceID
		item.CreatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO line_items (
				id, invoice_id, description, normalized_key, tax_code,
				quantity, unit_price, tax_rate, line_total, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, item.InvoiceID, item.Description, item.NormalizedKey, item.TaxCode,
			item.Quantity, item.UnitPrice, item.TaxRate, item.LineTotal, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("lineItemRepo.ReplaceForInvoice: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lineItemRepo.ReplaceForInvoice: commit: %w", err)
	}
	return nil
}

func (r *lineItemRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := r.db.SelectContext(ctx, &items,
		"SELECT * FROM line_items WHERE invoice_id = $1 ORDER BY created_at, id", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("lineItemRepo.ListByInvoice: %w", err)
	}
	return items, nil
}

// HistoricalUnitPrices returns unit prices for the same vendor and normalized
// item key from invoices that already finished analysis.
func (r *lineItemRepo) HistoricalUnitPrices(ctx context.Context, vendorTaxID, normalizedKey string, exclude uuid.UUID) ([]decimal.Decimal, error) {
	var prices []decimal.Decimal
	err := r.db.SelectContext(ctx, &prices,
		`SELECT li.unit_price FROM line_items li
		 JOIN invoices i ON i.id = li.invoice_id
		 WHERE i.vendor_tax_id = $1
		   AND li.normalized_key = $2
		   AND i.status IN ($3, $4)
		   AND i.id <> $5`,
		vendorTaxID, normalizedKey,
		domain.InvoiceStatusCleared, domain.InvoiceStatusHasAnomalies, exclude)
	if err != nil {
		return nil, fmt.Errorf("lineItemRepo.HistoricalUnitPrices: %w", err)
	}
	return prices, nil
}
