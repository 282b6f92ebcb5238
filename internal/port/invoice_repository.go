package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerlens/internal/domain"
)

// InvoiceRepository persists invoices and drives the processing queue.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	Update(ctx context.Context, inv *domain.Invoice) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Invoice, error)

	// FindOriginal returns the earliest non-pending invoice sharing
	// vendor tax ID + document number, excluding the given invoice.
	// Returns domain.ErrInvoiceNotFound when no match exists.
	FindOriginal(ctx context.Context, vendorTaxID, documentNumber string, exclude uuid.UUID) (*domain.Invoice, error)

	// SetVerificationByVendor stamps a verification status onto every invoice
	// carrying the vendor tax ID, returning how many were updated.
	SetVerificationByVendor(ctx context.Context, vendorTaxID string, status domain.VerificationStatus) (int64, error)

	// MarkQueued puts the invoice (back) on the processing queue.
	MarkQueued(ctx context.Context, id uuid.UUID) error

	// ClaimQueued atomically claims up to limit due invoices for processing,
	// incrementing their attempt counter.
	ClaimQueued(ctx context.Context, limit int) ([]domain.Invoice, error)

	// Requeue schedules another attempt at nextAttemptAt.
	Requeue(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error

	// FinishQueue marks a claimed invoice as done or failed.
	FinishQueue(ctx context.Context, id uuid.UUID, status domain.QueueStatus) error
}

// LineItemRepository persists invoice line items.
type LineItemRepository interface {
	// ReplaceForInvoice atomically swaps all line items for an invoice.
	ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, items []domain.LineItem) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.LineItem, error)

	// HistoricalUnitPrices returns unit prices of processed line items from
	// the same vendor matching the normalized product key, excluding the
	// invoice currently being processed.
	HistoricalUnitPrices(ctx context.Context, vendorTaxID, normalizedKey string, exclude uuid.UUID) ([]decimal.Decimal, error)
}

// FindingRepository persists compliance findings.
type FindingRepository interface {
	// ReplaceForInvoice atomically swaps all findings for an invoice.
	// A reprocessing pass purges stale findings rather than accumulating them.
	ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, findings []domain.ComplianceFinding) error
	Create(ctx context.Context, finding *domain.ComplianceFinding) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.ComplianceFinding, error)
}
