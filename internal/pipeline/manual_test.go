package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/domain"
)

func manualInput() ManualEntryInput {
	issueDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	return ManualEntryInput{
		DocumentNumber: "INV-001",
		IssueDate:      &issueDate,
		VendorName:     "Acme Supplies",
		VendorTaxID:    "27AAPFU0939F1ZV",
		BuyerTaxID:     "29AABCU9603R1ZM",
		GrandTotal:     decimal.RequireFromString("590.00"),
		LineItems: []ManualLineItem{
			{
				Description: "Steel Bolt",
				TaxCode:     "8481",
				Quantity:    decimal.RequireFromString("10"),
				UnitPrice:   decimal.RequireFromString("50.00"),
				TaxRate:     decimal.RequireFromString("18"),
				LineTotal:   decimal.RequireFromString("590.00"),
			},
		},
	}
}

func TestManualEntryService_Apply_RejectsInFlightInvoice(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

	svc := NewManualEntryService(f.invoices, f.lineItems, f.processor)

	_, err := svc.Apply(context.Background(), inv.ID, manualInput())
	assert.ErrorIs(t, err, domain.ErrInvoiceStillPending)
}

func TestManualEntryService_Apply_RequiresLineItems(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	inv.Status = domain.InvoiceStatusHasAnomalies
	inv.QueueStatus = domain.QueueStatusFailed
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

	svc := NewManualEntryService(f.invoices, f.lineItems, f.processor)

	in := manualInput()
	in.LineItems = nil
	_, err := svc.Apply(context.Background(), inv.ID, in)
	assert.ErrorIs(t, err, domain.ErrMissingLineItems)
}

func TestManualEntryService_Apply_ValidatesTaxIDLength(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	inv.Status = domain.InvoiceStatusHasAnomalies
	inv.QueueStatus = domain.QueueStatusFailed
	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

	svc := NewManualEntryService(f.invoices, f.lineItems, f.processor)

	in := manualInput()
	in.VendorTaxID = "TOOSHORT"
	_, err := svc.Apply(context.Background(), inv.ID, in)
	assert.ErrorIs(t, err, domain.ErrInvalidTaxID)
}

func TestManualEntryService_Apply_RerunsDownstreamChecks(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	inv.Status = domain.InvoiceStatusHasAnomalies
	inv.QueueStatus = domain.QueueStatusFailed
	inv.ExtractionMethod = domain.ExtractionMethodManual
	inv.ExtractionFailureReason = "The document could not be read automatically. Please enter its details manually."

	f.invoices.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	f.lineItems.On("ReplaceForInvoice", mock.Anything, inv.ID,
		mock.MatchedBy(func(items []domain.LineItem) bool {
			return len(items) == 1 && items[0].NormalizedKey == "steel bolt"
		})).Return(nil)
	f.invoices.On("FindOriginal", mock.Anything, "27AAPFU0939F1ZV", "INV-001", inv.ID).
		Return(nil, domain.ErrInvoiceNotFound)
	f.lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)
	f.findings.On("ReplaceForInvoice", mock.Anything, inv.ID,
		mock.MatchedBy(func(fs []domain.ComplianceFinding) bool { return len(fs) == 0 })).
		Return(nil)
	f.cache.On("Lookup", mock.Anything, "27AAPFU0939F1ZV").Return(nil, domain.ErrCacheMiss)
	f.invoices.On("Update", mock.Anything, mock.MatchedBy(func(got *domain.Invoice) bool {
		return got.Status == domain.InvoiceStatusCleared &&
			got.ExtractionMethod == domain.ExtractionMethodManual &&
			got.ExtractionFailureReason == "" &&
			got.ConfidenceScore == nil
	})).Return(nil)
	f.healthScores.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	svc := NewManualEntryService(f.invoices, f.lineItems, f.processor)

	updated, err := svc.Apply(context.Background(), inv.ID, manualInput())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusCleared, updated.Status)

	// Manual entry settles nothing: the batch was already accounted for when
	// extraction failed.
	f.batches.AssertNotCalled(t, "RecordResult", mock.Anything, mock.Anything, mock.Anything)
	f.invoices.AssertNotCalled(t, "FinishQueue", mock.Anything, mock.Anything, mock.Anything)
}
