package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/domain"
	"ledgerlens/mocks"
)

func testLookup() *TaxCodeLookup {
	return NewTaxCodeLookup([]domain.TaxCode{
		{Code: "8481", Category: domain.TaxCodeGoods, Rate: 18.0},
		{Code: "998311", Category: domain.TaxCodeServices, Rate: 18.0},
	})
}

func noDuplicate(invoices *mocks.MockInvoiceRepo) {
	invoices.On("FindOriginal", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrInvoiceNotFound)
}

func lineItem(qty, price, rate, total string) domain.LineItem {
	return domain.LineItem{
		ID:            uuid.New(),
		Description:   "Steel Bolt",
		NormalizedKey: "steel bolt",
		TaxCode:       "8481",
		Quantity:      decimal.RequireFromString(qty),
		UnitPrice:     decimal.RequireFromString(price),
		TaxRate:       decimal.RequireFromString(rate),
		LineTotal:     decimal.RequireFromString(total),
	}
}

func TestEngine_Analyze_CleanInvoice(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	// 10 x 50.00 at 18% = 590.00
	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("590.00"),
	}
	items := []domain.LineItem{lineItem("10", "50.00", "18", "590.00")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Nil(t, result.DuplicateOf)
}

func TestEngine_Analyze_ArithmeticToleranceBoundary(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	// Expected line total 590.00; difference of exactly 0.01 passes,
	// anything larger is an error.
	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("590.01"),
	}
	within := []domain.LineItem{lineItem("10", "50.00", "18", "590.01")}

	result, err := engine.Analyze(context.Background(), inv, within)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)

	inv.GrandTotal = decimal.RequireFromString("590.02")
	beyond := []domain.LineItem{lineItem("10", "50.00", "18", "590.02")}

	result, err = engine.Analyze(context.Background(), inv, beyond)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingKindArithmeticError, result.Findings[0].Kind)
	assert.Equal(t, domain.FindingSeverityCritical, result.Findings[0].Severity)
}

func TestEngine_Analyze_GrandTotalChecksAgainstStatedLineTotals(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	// The stated line total is wrong (999.00 instead of 590.00), but it is
	// what the vendor billed, so the grand total reconciles against it. A
	// grand total of 999.00 only flags the line.
	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("999.00"),
	}
	items := []domain.LineItem{lineItem("10", "50.00", "18", "999.00")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingKindArithmeticError, result.Findings[0].Kind)
	assert.NotNil(t, result.Findings[0].LineItemID)

	// A grand total matching the computed value instead gets its own finding.
	inv.GrandTotal = decimal.RequireFromString("590.00")

	result, err = engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	require.Len(t, result.Findings, 2)
	assert.Nil(t, result.Findings[1].LineItemID)
	assert.Contains(t, result.Findings[1].Description, "sum of line totals")
}

func TestEngine_Analyze_MissingLineTotalFallsBackToComputed(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	// No stated total on the line: the computed 590.00 feeds the sum and the
	// line itself is not an arithmetic error.
	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("590.00"),
	}
	items := []domain.LineItem{lineItem("10", "50.00", "18", "0")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestEngine_Analyze_TaxCodeChecks(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	unknown := lineItem("1", "500.00", "18", "590.00")
	unknown.TaxCode = "0000"
	mismatch := lineItem("1", "500.00", "12", "560.00")
	missing := lineItem("1", "500.00", "0", "500.00")
	missing.TaxCode = ""

	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("1650.00"),
	}
	result, err := engine.Analyze(context.Background(), inv,
		[]domain.LineItem{unknown, mismatch, missing})
	require.NoError(t, err)

	kinds := map[domain.FindingKind]int{}
	severities := map[domain.FindingSeverity]int{}
	for _, f := range result.Findings {
		kinds[f.Kind]++
		severities[f.Severity]++
	}
	assert.Equal(t, 2, kinds[domain.FindingKindUnknownTaxCode])
	assert.Equal(t, 1, kinds[domain.FindingKindTaxRateMismatch])
	assert.Equal(t, 1, severities[domain.FindingSeverityCritical])
}

func TestEngine_Analyze_PriceOutlier(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)

	history := []decimal.Decimal{
		decimal.RequireFromString("50"),
		decimal.RequireFromString("50"),
		decimal.RequireFromString("50"),
	}
	lineItems.On("HistoricalUnitPrices", mock.Anything, "27AAPFU0939F1ZV", "steel bolt", mock.Anything).
		Return(history, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("1180.00"),
	}
	items := []domain.LineItem{lineItem("10", "100.00", "18", "1180.00")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingKindPriceAnomaly, result.Findings[0].Kind)
	assert.Equal(t, domain.FindingSeverityWarning, result.Findings[0].Severity)
	assert.Contains(t, result.Findings[0].Description, "100.0%")
}

func TestEngine_Analyze_PriceOutlierNeedsEnoughHistory(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)
	noDuplicate(invoices)

	history := []decimal.Decimal{
		decimal.RequireFromString("50"),
		decimal.RequireFromString("50"),
	}
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(history, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("1180.00"),
	}
	items := []domain.LineItem{lineItem("10", "100.00", "18", "1180.00")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestEngine_Analyze_DuplicateSkipsPriceCheck(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)

	original := &domain.Invoice{
		ID:        uuid.New(),
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	invoices.On("FindOriginal", mock.Anything, "27AAPFU0939F1ZV", "INV-001", mock.Anything).
		Return(original, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("590.00"),
	}
	items := []domain.LineItem{lineItem("10", "50.00", "18", "590.00")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	require.NotNil(t, result.DuplicateOf)
	assert.Equal(t, original.ID, *result.DuplicateOf)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingKindDuplicate, result.Findings[0].Kind)
	assert.Contains(t, result.Findings[0].Description, "2026-03-01")

	// No HistoricalUnitPrices expectation was set: the price check must not
	// have run for a duplicate.
	lineItems.AssertNotCalled(t, "HistoricalUnitPrices",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Analyze_CheckFailureIsIsolated(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	lineItems := new(mocks.MockLineItemRepo)

	invoices.On("FindOriginal", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	lineItems.On("HistoricalUnitPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]decimal.Decimal{}, nil)

	engine := NewEngine(invoices, lineItems, testLookup())

	inv := &domain.Invoice{
		ID:             uuid.New(),
		DocumentNumber: "INV-001",
		VendorTaxID:    "27AAPFU0939F1ZV",
		GrandTotal:     decimal.RequireFromString("590.00"),
	}
	items := []domain.LineItem{lineItem("10", "50.00", "18", "590.00")}

	result, err := engine.Analyze(context.Background(), inv, items)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingKindSystemError, result.Findings[0].Kind)
	assert.Equal(t, domain.FindingSeverityCritical, result.Findings[0].Severity)
}
