package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

const (
	// amountTolerance is the largest stated-vs-computed difference treated as
	// rounding noise rather than an arithmetic error.
	amountTolerance = 0.01
	// outlierMinSamples is the smallest price history that supports an
	// outlier judgement.
	outlierMinSamples = 3
	// outlierThreshold is the relative deviation from the historical average
	// above which a unit price is flagged.
	outlierThreshold = 0.25
)

// Result is the outcome of one analysis run over an invoice.
type Result struct {
	Findings []domain.ComplianceFinding
	// DuplicateOf is set when an earlier invoice with the same vendor and
	// document number exists.
	DuplicateOf *uuid.UUID
}

// HasCritical reports whether any finding is critical.
func (r *Result) HasCritical() bool {
	for _, f := range r.Findings {
		if f.Severity == domain.FindingSeverityCritical {
			return true
		}
	}
	return false
}

// Engine runs the compliance and fraud checks over an extracted invoice.
// Each check is isolated: a failing check records a system-error finding and
// the remaining checks still run.
type Engine struct {
	invoices  port.InvoiceRepository
	lineItems port.LineItemRepository
	lookup    *TaxCodeLookup
}

// NewEngine creates an analysis engine.
func NewEngine(invoices port.InvoiceRepository, lineItems port.LineItemRepository, lookup *TaxCodeLookup) *Engine {
	return &Engine{invoices: invoices, lineItems: lineItems, lookup: lookup}
}

// Analyze runs all checks and returns the accumulated findings. The error
// return is always nil today; callers should still check it so check-level
// isolation can be tightened later without signature churn.
func (e *Engine) Analyze(ctx context.Context, inv *domain.Invoice, items []domain.LineItem) (*Result, error) {
	result := &Result{}

	e.runCheck(result, "duplicate", func() error {
		return e.checkDuplicate(ctx, inv, result)
	})
	e.runCheck(result, "arithmetic", func() error {
		return e.checkArithmetic(inv, items, result)
	})
	e.runCheck(result, "tax codes", func() error {
		return e.checkTaxCodes(items, result)
	})
	if result.DuplicateOf == nil {
		e.runCheck(result, "price history", func() error {
			return e.checkPriceOutliers(ctx, inv, items, result)
		})
	}

	return result, nil
}

func (e *Engine) runCheck(result *Result, name string, check func() error) {
	if err := check(); err != nil {
		log.Errorf("analysisEngine: %s check failed: %v", name, err)
		result.Findings = append(result.Findings, domain.ComplianceFinding{
			Kind:        domain.FindingKindSystemError,
			Severity:    domain.FindingSeverityCritical,
			Description: fmt.Sprintf("The %s check could not be completed and needs a manual review.", name),
		})
	}
}

func (e *Engine) checkDuplicate(ctx context.Context, inv *domain.Invoice, result *Result) error {
	if inv.VendorTaxID == "" || inv.DocumentNumber == "" {
		return nil
	}

	original, err := e.invoices.FindOriginal(ctx, inv.VendorTaxID, inv.DocumentNumber, inv.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return nil
		}
		return err
	}

	result.DuplicateOf = &original.ID
	result.Findings = append(result.Findings, domain.ComplianceFinding{
		Kind:     domain.FindingKindDuplicate,
		Severity: domain.FindingSeverityCritical,
		Description: fmt.Sprintf(
			"Invoice %s from this vendor was already received on %s.",
			inv.DocumentNumber, original.CreatedAt.Format("2006-01-02")),
	})
	return nil
}

func (e *Engine) checkArithmetic(inv *domain.Invoice, items []domain.LineItem, result *Result) error {
	tolerance := decimal.NewFromFloat(amountTolerance)
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)

	computedTotal := decimal.Zero
	for i := range items {
		item := &items[i]
		expected := item.Quantity.Mul(item.UnitPrice).
			Mul(one.Add(item.TaxRate.Div(hundred))).
			Round(2)

		// A missing line total cannot be an arithmetic error; the computed
		// value stands in for the grand-total sum.
		if item.LineTotal.IsZero() {
			computedTotal = computedTotal.Add(expected)
			continue
		}

		if item.LineTotal.Sub(expected).Abs().GreaterThan(tolerance) {
			id := item.ID
			result.Findings = append(result.Findings, domain.ComplianceFinding{
				LineItemID: &id,
				Kind:       domain.FindingKindArithmeticError,
				Severity:   domain.FindingSeverityCritical,
				Description: fmt.Sprintf(
					"Line total %s does not match quantity x price with tax (expected %s).",
					item.LineTotal.StringFixed(2), expected.StringFixed(2)),
			})
		}
		// The grand total reconciles against what was actually billed, even
		// when a stated line total is wrong.
		computedTotal = computedTotal.Add(item.LineTotal)
	}

	if len(items) > 0 && inv.GrandTotal.Sub(computedTotal).Abs().GreaterThan(tolerance) {
		result.Findings = append(result.Findings, domain.ComplianceFinding{
			Kind:     domain.FindingKindArithmeticError,
			Severity: domain.FindingSeverityCritical,
			Description: fmt.Sprintf(
				"Grand total %s does not match the sum of line totals (expected %s).",
				inv.GrandTotal.StringFixed(2), computedTotal.StringFixed(2)),
		})
	}
	return nil
}

func (e *Engine) checkTaxCodes(items []domain.LineItem, result *Result) error {
	for i := range items {
		item := &items[i]
		id := item.ID

		if item.TaxCode == "" {
			result.Findings = append(result.Findings, domain.ComplianceFinding{
				LineItemID:  &id,
				Kind:        domain.FindingKindUnknownTaxCode,
				Severity:    domain.FindingSeverityWarning,
				Description: fmt.Sprintf("Line item %q has no tax code.", item.Description),
			})
			continue
		}

		rate, _ := item.TaxRate.Float64()
		found, matched, expected := e.lookup.RateMatches(item.TaxCode, rate)
		if !found {
			result.Findings = append(result.Findings, domain.ComplianceFinding{
				LineItemID:  &id,
				Kind:        domain.FindingKindUnknownTaxCode,
				Severity:    domain.FindingSeverityInfo,
				Description: fmt.Sprintf("Tax code %s is not in the registered code list.", item.TaxCode),
			})
			continue
		}
		if !matched {
			result.Findings = append(result.Findings, domain.ComplianceFinding{
				LineItemID: &id,
				Kind:       domain.FindingKindTaxRateMismatch,
				Severity:   domain.FindingSeverityCritical,
				Description: fmt.Sprintf(
					"Tax rate %.2f%% does not match the registered rate %.2f%% for code %s.",
					rate, expected, item.TaxCode),
			})
		}
	}
	return nil
}

func (e *Engine) checkPriceOutliers(ctx context.Context, inv *domain.Invoice, items []domain.LineItem, result *Result) error {
	if inv.VendorTaxID == "" {
		return nil
	}

	for i := range items {
		item := &items[i]
		if item.NormalizedKey == "" || item.UnitPrice.IsZero() {
			continue
		}

		history, err := e.lineItems.HistoricalUnitPrices(ctx, inv.VendorTaxID, item.NormalizedKey, inv.ID)
		if err != nil {
			return err
		}
		if len(history) < outlierMinSamples {
			continue
		}

		sum := decimal.Zero
		for _, p := range history {
			sum = sum.Add(p)
		}
		avg := sum.Div(decimal.NewFromInt(int64(len(history))))
		if avg.IsZero() {
			continue
		}

		deviation := item.UnitPrice.Sub(avg).Abs().Div(avg)
		if deviation.GreaterThan(decimal.NewFromFloat(outlierThreshold)) {
			id := item.ID
			pct, _ := deviation.Mul(decimal.NewFromInt(100)).Float64()
			result.Findings = append(result.Findings, domain.ComplianceFinding{
				LineItemID: &id,
				Kind:       domain.FindingKindPriceAnomaly,
				Severity:   domain.FindingSeverityWarning,
				Description: fmt.Sprintf(
					"Unit price %s deviates %.1f%% from the vendor's average %s over %d prior purchases.",
					item.UnitPrice.StringFixed(2), pct, avg.StringFixed(2), len(history)),
			})
		}
	}
	return nil
}
