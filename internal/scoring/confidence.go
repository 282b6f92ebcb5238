package scoring

import (
	"math"
	"strconv"
	"strings"

	"ledgerlens/internal/port"
)

// Confidence level thresholds.
const (
	confidenceHighThreshold   = 80.0
	confidenceMediumThreshold = 50.0
)

// Confidence scores how trustworthy an extraction result is, from 0 to 100.
// It weighs field completeness (40%), data quality (30%), and internal
// consistency of the response (30%).
func Confidence(ext *port.ExtractedInvoice) float64 {
	if ext == nil || !ext.IsDocument {
		return 0.0
	}

	score := completenessComponent(ext)*0.40 +
		qualityComponent(ext)*0.30 +
		certaintyComponent(ext)*0.30

	score = math.Max(0.0, math.Min(100.0, score))
	return math.Round(score*100) / 100
}

// ConfidenceLevel buckets a confidence score into HIGH, MEDIUM, or LOW.
func ConfidenceLevel(score float64) string {
	switch {
	case score >= confidenceHighThreshold:
		return "HIGH"
	case score >= confidenceMediumThreshold:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// completenessComponent checks required fields (60), important fields (30),
// and line item completeness (10).
func completenessComponent(ext *port.ExtractedInvoice) float64 {
	score := 0.0

	required := []*string{ext.DocumentNumber, ext.VendorName}
	requiredPresent := 0
	for _, f := range required {
		if present(f) {
			requiredPresent++
		}
	}
	if ext.GrandTotal != nil {
		requiredPresent++
	}
	score += float64(requiredPresent) / 3.0 * 60.0

	important := []*string{ext.IssueDate, ext.VendorTaxID, ext.BuyerTaxID}
	importantPresent := 0
	for _, f := range important {
		if present(f) {
			importantPresent++
		}
	}
	score += float64(importantPresent) / 3.0 * 30.0

	if n := len(ext.LineItems); n > 0 {
		complete := 0
		for _, item := range ext.LineItems {
			if present(item.Description) && item.Quantity != nil && item.UnitPrice != nil {
				complete++
			}
		}
		score += float64(complete) / float64(n) * 10.0
	}

	return score
}

// qualityComponent checks tax ID shape (30), date format (20), numeric
// validity (30), and tax code coverage (20).
func qualityComponent(ext *port.ExtractedInvoice) float64 {
	score := 0.0

	if ext.VendorTaxID != nil && len(strings.TrimSpace(*ext.VendorTaxID)) == 15 {
		score += 15.0
	}
	if ext.BuyerTaxID != nil && len(strings.TrimSpace(*ext.BuyerTaxID)) == 15 {
		score += 15.0
	}

	if ext.IssueDate != nil && validDate(*ext.IssueDate) {
		score += 20.0
	}

	if ext.GrandTotal != nil && validNumber(*ext.GrandTotal) {
		score += 15.0
	}
	if n := len(ext.LineItems); n > 0 {
		validNumeric := 0
		withCode := 0
		for _, item := range ext.LineItems {
			if numPresent(item.Quantity) && numPresent(item.UnitPrice) && numPresent(item.LineTotal) {
				validNumeric++
			}
			if present(item.TaxCode) {
				withCode++
			}
		}
		score += float64(validNumeric) / float64(n) * 15.0
		score += float64(withCode) / float64(n) * 20.0
	}

	return score
}

// certaintyComponent checks critical non-null fields (40), arithmetic
// consistency of line items (30), and vendor identity completeness (30).
func certaintyComponent(ext *port.ExtractedInvoice) float64 {
	score := 0.0

	nonNullCritical := 0
	if ext.DocumentNumber != nil {
		nonNullCritical++
	}
	if ext.VendorName != nil {
		nonNullCritical++
	}
	if ext.GrandTotal != nil {
		nonNullCritical++
	}
	if ext.IssueDate != nil {
		nonNullCritical++
	}
	score += float64(nonNullCritical) / 4.0 * 40.0

	if n := len(ext.LineItems); n > 0 {
		consistent := 0.0
		for _, item := range ext.LineItems {
			if item.Quantity == nil || item.UnitPrice == nil || item.LineTotal == nil {
				continue
			}
			expected := *item.Quantity * *item.UnitPrice
			if math.Abs(expected-*item.LineTotal)/math.Max(expected, 0.01) < 0.01 {
				consistent += 1.0
			} else {
				// Values exist but disagree, count as partially consistent.
				consistent += 0.5
			}
		}
		score += consistent / float64(n) * 30.0
	} else {
		score += 15.0
	}

	vendorComplete := 0
	if present(ext.VendorName) {
		vendorComplete++
	}
	if present(ext.VendorTaxID) {
		vendorComplete++
	}
	score += float64(vendorComplete) / 2.0 * 30.0

	return score
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func numPresent(f *float64) bool {
	return f != nil && validNumber(*f)
}

// validNumber rejects negatives, which are suspicious on an invoice.
func validNumber(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// validDate checks the YYYY-MM-DD shape with plausible ranges.
func validDate(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil {
		return false
	}
	return y >= 1900 && y <= 2100 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}
