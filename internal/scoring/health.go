package scoring

import (
	"fmt"
	"math"
	"strings"

	"ledgerlens/internal/domain"
)

// Category weights, summing to 1.0.
const (
	weightCompleteness = 0.25
	weightVerification = 0.30
	weightCompliance   = 0.25
	weightFraud        = 0.15
	weightConfidence   = 0.05

	thresholdHealthy = 8.0
	thresholdReview  = 5.0
)

// HealthInput gathers everything the health rubric looks at.
type HealthInput struct {
	Invoice       *domain.Invoice
	LineItemCount int
	Findings      []domain.ComplianceFinding
	// LinkedAsDuplicate is true when the invoice points at an earlier
	// original through a duplicate link.
	LinkedAsDuplicate bool
}

// Health applies the weighted rubric and returns the invoice's health score
// record, ready for upsert. The overall score is on a 0-10 scale.
func Health(in HealthInput) *domain.HealthScore {
	completeness := scoreCompleteness(in)
	verification := scoreVerification(in.Invoice)
	compliance := scoreCompliance(in.Findings)
	fraud := scoreFraud(in)
	confidence := scoreConfidence(in.Invoice)

	overall := (completeness*weightCompleteness +
		verification*weightVerification +
		compliance*weightCompliance +
		fraud*weightFraud +
		confidence*weightConfidence) / 10.0
	overall = math.Round(overall*10) / 10

	var tier domain.HealthTier
	switch {
	case overall >= thresholdHealthy:
		tier = domain.HealthTierHealthy
	case overall >= thresholdReview:
		tier = domain.HealthTierReview
	default:
		tier = domain.HealthTierAtRisk
	}

	return &domain.HealthScore{
		InvoiceID:         in.Invoice.ID,
		OverallScore:      overall,
		Status:            tier,
		CompletenessScore: round2(completeness),
		VerificationScore: round2(verification),
		ComplianceScore:   round2(compliance),
		FraudScore:        round2(fraud),
		ConfidenceScore:   round2(confidence),
		KeyFlags:          keyFlags(in, completeness, verification, compliance, fraud, confidence),
	}
}

// FallbackHealth is the minimal safe record stored when scoring itself
// cannot complete.
func FallbackHealth(inv *domain.Invoice, reason string) *domain.HealthScore {
	return &domain.HealthScore{
		InvoiceID:    inv.ID,
		OverallScore: 0.0,
		Status:       domain.HealthTierAtRisk,
		KeyFlags:     domain.KeyFlagList{reason},
	}
}

func scoreCompleteness(in HealthInput) float64 {
	score := 100.0
	for _, missing := range missingFields(in) {
		if missing == "line items" {
			score -= 20.0
		} else {
			score -= 16.67
		}
	}
	return math.Max(0.0, score)
}

func scoreVerification(inv *domain.Invoice) float64 {
	switch inv.VerificationStatus {
	case domain.VerificationStatusVerified:
		return 100.0
	case domain.VerificationStatusPending:
		return 50.0
	default:
		return 0.0
	}
}

// complianceKinds are the finding kinds that count against the compliance
// category; duplicates and price anomalies belong to the fraud category.
func isComplianceKind(kind domain.FindingKind) bool {
	switch kind {
	case domain.FindingKindArithmeticError,
		domain.FindingKindTaxRateMismatch,
		domain.FindingKindUnknownTaxCode:
		return true
	}
	return false
}

func scoreCompliance(findings []domain.ComplianceFinding) float64 {
	score := 100.0
	for _, f := range findings {
		if !isComplianceKind(f.Kind) {
			continue
		}
		switch f.Severity {
		case domain.FindingSeverityCritical:
			score -= 30.0
		case domain.FindingSeverityWarning:
			score -= 15.0
		case domain.FindingSeverityInfo:
			score -= 5.0
		}
	}
	return math.Max(0.0, score)
}

func scoreFraud(in HealthInput) float64 {
	score := 100.0

	if hasKind(in.Findings, domain.FindingKindDuplicate) {
		score -= 50.0
	}
	if in.LinkedAsDuplicate {
		score -= 50.0
	}

	anomalies := countKind(in.Findings, domain.FindingKindPriceAnomaly)
	if anomalies > 0 {
		score -= math.Min(float64(anomalies)*10.0, 50.0)
	}

	return math.Max(0.0, score)
}

func scoreConfidence(inv *domain.Invoice) float64 {
	// Manual entry gets a neutral score rather than a penalty.
	if inv.ExtractionMethod == domain.ExtractionMethodManual {
		return 75.0
	}
	if inv.ConfidenceScore != nil {
		return *inv.ConfidenceScore
	}
	return 70.0
}

func keyFlags(in HealthInput, completeness, verification, compliance, fraud, confidence float64) domain.KeyFlagList {
	flags := domain.KeyFlagList{}

	if completeness < 80.0 {
		if missing := missingFields(in); len(missing) > 0 {
			flags = append(flags, "Missing required data: "+strings.Join(missing, ", "))
		}
	}

	if verification < 100.0 {
		switch in.Invoice.VerificationStatus {
		case domain.VerificationStatusFailed:
			flags = append(flags, "Registry verification failed")
		case domain.VerificationStatusPending:
			flags = append(flags, "Registry verification pending")
		}
	}

	if compliance < 100.0 {
		shown := 0
		for _, f := range in.Findings {
			if shown == 3 {
				break
			}
			if isComplianceKind(f.Kind) && f.Severity == domain.FindingSeverityCritical {
				flags = append(flags, truncateFlag(f.Description, 100))
				shown++
			}
		}
	}

	if fraud < 100.0 {
		if hasKind(in.Findings, domain.FindingKindDuplicate) {
			flags = append(flags, "Duplicate invoice detected")
		}
		if in.LinkedAsDuplicate {
			flags = append(flags, "Invoice is a duplicate of an earlier submission")
		}
		if n := countKind(in.Findings, domain.FindingKindPriceAnomaly); n > 0 {
			flags = append(flags, fmt.Sprintf("%d price anomaly(ies) detected", n))
		}
	}

	if confidence < 60.0 {
		if in.Invoice.ExtractionMethod == domain.ExtractionMethodManual {
			flags = append(flags, "Manual data entry (automatic extraction failed)")
		} else {
			flags = append(flags, fmt.Sprintf("Low extraction confidence score (%.0f%%)", confidence))
		}
	}

	return flags
}

func missingFields(in HealthInput) []string {
	var missing []string
	inv := in.Invoice
	if strings.TrimSpace(inv.DocumentNumber) == "" {
		missing = append(missing, "document number")
	}
	if inv.IssueDate == nil {
		missing = append(missing, "issue date")
	}
	if strings.TrimSpace(inv.VendorName) == "" {
		missing = append(missing, "vendor name")
	}
	if strings.TrimSpace(inv.VendorTaxID) == "" {
		missing = append(missing, "vendor tax ID")
	}
	if strings.TrimSpace(inv.BuyerTaxID) == "" {
		missing = append(missing, "buyer tax ID")
	}
	if inv.GrandTotal.IsZero() {
		missing = append(missing, "grand total")
	}
	if in.LineItemCount == 0 {
		missing = append(missing, "line items")
	}
	return missing
}

func hasKind(findings []domain.ComplianceFinding, kind domain.FindingKind) bool {
	for _, f := range findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

func countKind(findings []domain.ComplianceFinding, kind domain.FindingKind) int {
	n := 0
	for _, f := range findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func truncateFlag(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
