package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/domain"
)

func cleanInvoice() *domain.Invoice {
	issueDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	conf := 95.0
	return &domain.Invoice{
		ID:                 uuid.New(),
		DocumentNumber:     "INV-001",
		IssueDate:          &issueDate,
		VendorName:         "Acme Supplies",
		VendorTaxID:        "27AAPFU0939F1ZV",
		BuyerTaxID:         "29AABCU9603R1ZM",
		GrandTotal:         decimal.RequireFromString("590.00"),
		VerificationStatus: domain.VerificationStatusVerified,
		ExtractionMethod:   domain.ExtractionMethodAI,
		ConfidenceScore:    &conf,
	}
}

func TestHealth_CleanVerifiedInvoiceIsHealthy(t *testing.T) {
	score := Health(HealthInput{Invoice: cleanInvoice(), LineItemCount: 2})

	// 100*0.25 + 100*0.30 + 100*0.25 + 100*0.15 + 95*0.05 = 99.75 -> 10.0
	assert.Equal(t, 10.0, score.OverallScore)
	assert.Equal(t, domain.HealthTierHealthy, score.Status)
	assert.Empty(t, score.KeyFlags)
}

func TestHealth_PendingVerificationFlagsAndScores(t *testing.T) {
	inv := cleanInvoice()
	inv.VerificationStatus = domain.VerificationStatusPending

	score := Health(HealthInput{Invoice: inv, LineItemCount: 2})

	assert.Equal(t, 50.0, score.VerificationScore)
	assert.Contains(t, score.KeyFlags, "Registry verification pending")
}

func TestHealth_MissingFieldsLowerCompleteness(t *testing.T) {
	inv := cleanInvoice()
	inv.BuyerTaxID = ""
	inv.VendorTaxID = ""

	score := Health(HealthInput{Invoice: inv, LineItemCount: 0})

	// Two missing fields at 16.67 plus missing line items at 20.
	assert.InDelta(t, 46.66, score.CompletenessScore, 0.01)

	var missingFlag string
	for _, f := range score.KeyFlags {
		if strings.HasPrefix(f, "Missing required data:") {
			missingFlag = f
		}
	}
	require.NotEmpty(t, missingFlag)
	assert.Contains(t, missingFlag, "vendor tax ID")
	assert.Contains(t, missingFlag, "buyer tax ID")
	assert.Contains(t, missingFlag, "line items")
}

func TestHealth_ComplianceFindingsAreGraded(t *testing.T) {
	findings := []domain.ComplianceFinding{
		{Kind: domain.FindingKindArithmeticError, Severity: domain.FindingSeverityCritical,
			Description: "Grand total does not match."},
		{Kind: domain.FindingKindTaxRateMismatch, Severity: domain.FindingSeverityCritical,
			Description: "Stated rate disagrees with the registered rate."},
		{Kind: domain.FindingKindUnknownTaxCode, Severity: domain.FindingSeverityInfo,
			Description: "Unregistered code."},
	}

	score := Health(HealthInput{Invoice: cleanInvoice(), LineItemCount: 2, Findings: findings})

	// 100 - 30 - 30 - 5
	assert.Equal(t, 35.0, score.ComplianceScore)
	assert.Contains(t, score.KeyFlags, "Grand total does not match.")
}

func TestHealth_DuplicatesAndAnomaliesHitFraud(t *testing.T) {
	findings := []domain.ComplianceFinding{
		{Kind: domain.FindingKindDuplicate, Severity: domain.FindingSeverityCritical},
		{Kind: domain.FindingKindPriceAnomaly, Severity: domain.FindingSeverityWarning},
		{Kind: domain.FindingKindPriceAnomaly, Severity: domain.FindingSeverityWarning},
	}

	score := Health(HealthInput{
		Invoice:           cleanInvoice(),
		LineItemCount:     2,
		Findings:          findings,
		LinkedAsDuplicate: true,
	})

	// 100 - 50 (duplicate finding) - 50 (linked) - 20 (two anomalies), floored at 0.
	assert.Equal(t, 0.0, score.FraudScore)
	assert.Contains(t, score.KeyFlags, "Duplicate invoice detected")
	assert.Contains(t, score.KeyFlags, "Invoice is a duplicate of an earlier submission")
	assert.Contains(t, score.KeyFlags, "2 price anomaly(ies) detected")
}

func TestHealth_ManualEntryGetsNeutralConfidence(t *testing.T) {
	inv := cleanInvoice()
	inv.ExtractionMethod = domain.ExtractionMethodManual
	inv.ConfidenceScore = nil

	score := Health(HealthInput{Invoice: inv, LineItemCount: 2})
	assert.Equal(t, 75.0, score.ConfidenceScore)
}

func TestHealth_UnknownConfidenceDefaults(t *testing.T) {
	inv := cleanInvoice()
	inv.ConfidenceScore = nil

	score := Health(HealthInput{Invoice: inv, LineItemCount: 2})
	assert.Equal(t, 70.0, score.ConfidenceScore)
}

func TestHealth_LowConfidenceIsFlagged(t *testing.T) {
	inv := cleanInvoice()
	low := 42.0
	inv.ConfidenceScore = &low

	score := Health(HealthInput{Invoice: inv, LineItemCount: 2})
	assert.Contains(t, score.KeyFlags, "Low extraction confidence score (42%)")
}

func TestHealth_CriticalComplianceFlagsCappedAtThree(t *testing.T) {
	var findings []domain.ComplianceFinding
	for i := 0; i < 5; i++ {
		findings = append(findings, domain.ComplianceFinding{
			Kind:        domain.FindingKindArithmeticError,
			Severity:    domain.FindingSeverityCritical,
			Description: strings.Repeat("x", 150),
		})
	}

	score := Health(HealthInput{Invoice: cleanInvoice(), LineItemCount: 2, Findings: findings})

	truncated := 0
	for _, f := range score.KeyFlags {
		if strings.HasPrefix(f, "x") {
			truncated++
			assert.Len(t, f, 100)
		}
	}
	assert.Equal(t, 3, truncated)
}

func TestHealth_TierThresholds(t *testing.T) {
	// AT_RISK: everything failing.
	inv := &domain.Invoice{
		ID:                 uuid.New(),
		VerificationStatus: domain.VerificationStatusFailed,
		ExtractionMethod:   domain.ExtractionMethodAI,
	}
	score := Health(HealthInput{Invoice: inv, LineItemCount: 0})
	assert.Equal(t, domain.HealthTierAtRisk, score.Status)

	// REVIEW: clean but unverified and middling confidence.
	mid := cleanInvoice()
	mid.VerificationStatus = domain.VerificationStatusFailed
	score = Health(HealthInput{Invoice: mid, LineItemCount: 2})
	assert.Equal(t, domain.HealthTierReview, score.Status)
}

func TestFallbackHealth(t *testing.T) {
	inv := cleanInvoice()
	score := FallbackHealth(inv, "Health scoring unavailable")

	assert.Equal(t, inv.ID, score.InvoiceID)
	assert.Equal(t, 0.0, score.OverallScore)
	assert.Equal(t, domain.HealthTierAtRisk, score.Status)
	assert.Equal(t, domain.KeyFlagList{"Health scoring unavailable"}, score.KeyFlags)
}
