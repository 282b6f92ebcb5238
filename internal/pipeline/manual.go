package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/analysis"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// ManualEntryInput is the operator-supplied replacement for failed or wrong
// extraction data.
type ManualEntryInput struct {
	DocumentNumber string
	IssueDate      *time.Time
	VendorName     string
	VendorTaxID    string
	BuyerTaxID     string
	GrandTotal     decimal.Decimal
	LineItems      []ManualLineItem
}

// ManualLineItem is one operator-entered line item.
type ManualLineItem struct {
	Description string
	TaxCode     string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	LineTotal   decimal.Decimal
}

// ManualEntryService applies operator-entered invoice data and re-runs the
// downstream checks, so manually entered invoices get the same scrutiny as
// extracted ones.
type ManualEntryService struct {
	invoices  port.InvoiceRepository
	lineItems port.LineItemRepository
	processor *Processor
}

// NewManualEntryService creates a manual entry service.
func NewManualEntryService(invoices port.InvoiceRepository, lineItems port.LineItemRepository, processor *Processor) *ManualEntryService {
	return &ManualEntryService{
		invoices:  invoices,
		lineItems: lineItems,
		processor: processor,
	}
}

// Apply overwrites the invoice with the operator's data and re-runs
// compliance analysis, duplicate linking, verification, and health scoring.
func (s *ManualEntryService) Apply(ctx context.Context, invoiceID uuid.UUID, in ManualEntryInput) (*domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoiceStatusPendingAnalysis && inv.QueueStatus == domain.QueueStatusProcessing {
		return nil, domain.ErrInvoiceStillPending
	}
	if len(in.LineItems) == 0 {
		return nil, domain.ErrMissingLineItems
	}
	if in.VendorTaxID != "" && len(in.VendorTaxID) != 15 {
		return nil, domain.ErrInvalidTaxID
	}

	inv.DocumentNumber = in.DocumentNumber
	inv.IssueDate = in.IssueDate
	inv.VendorName = in.VendorName
	inv.VendorTaxID = in.VendorTaxID
	inv.BuyerTaxID = in.BuyerTaxID
	inv.GrandTotal = in.GrandTotal
	inv.ExtractionMethod = domain.ExtractionMethodManual
	inv.ExtractionFailureReason = ""
	inv.ConfidenceScore = nil

	items := make([]domain.LineItem, 0, len(in.LineItems))
	for _, li := range in.LineItems {
		items = append(items, domain.LineItem{
			InvoiceID:     inv.ID,
			Description:   li.Description,
			NormalizedKey: analysis.NormalizeKey(li.Description),
			TaxCode:       li.TaxCode,
			Quantity:      li.Quantity,
			UnitPrice:     li.UnitPrice,
			TaxRate:       li.TaxRate,
			LineTotal:     li.LineTotal,
		})
	}
	if err := s.lineItems.ReplaceForInvoice(ctx, inv.ID, items); err != nil {
		return nil, fmt.Errorf("manualEntryService.Apply: storing line items: %w", err)
	}

	if err := s.processor.finalize(ctx, inv, items); err != nil {
		return nil, fmt.Errorf("manualEntryService.Apply: %w", err)
	}

	log.Printf("manualEntryService: invoice %s updated by manual entry", inv.ID)
	return inv, nil
}
