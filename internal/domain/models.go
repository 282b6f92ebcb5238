package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice represents an uploaded commercial invoice and its pipeline state.
// Extracted header fields stay empty/nil until the pipeline (or manual entry)
// has populated them.
type Invoice struct {
	ID                      uuid.UUID          `db:"id" json:"id"`
	DocumentNumber          string             `db:"document_number" json:"document_number"`
	IssueDate               *time.Time         `db:"issue_date" json:"issue_date"`
	VendorName              string             `db:"vendor_name" json:"vendor_name"`
	VendorTaxID             string             `db:"vendor_tax_id" json:"vendor_tax_id"`
	BuyerTaxID              string             `db:"buyer_tax_id" json:"buyer_tax_id"`
	GrandTotal              decimal.Decimal    `db:"grand_total" json:"grand_total"`
	Status                  InvoiceStatus      `db:"status" json:"status"`
	VerificationStatus      VerificationStatus `db:"verification_status" json:"verification_status"`
	ExtractionMethod        ExtractionMethod   `db:"extraction_method" json:"extraction_method"`
	ExtractionFailureReason string             `db:"extraction_failure_reason" json:"extraction_failure_reason"`
	ConfidenceScore         *float64           `db:"confidence_score" json:"confidence_score"`
	BatchID                 *uuid.UUID         `db:"batch_id" json:"batch_id"`
	OriginalName            string             `db:"original_name" json:"original_name"`
	ContentType             string             `db:"content_type" json:"content_type"`
	S3Bucket                string             `db:"s3_bucket" json:"-"`
	S3Key                   string             `db:"s3_key" json:"-"`
	QueueStatus             QueueStatus        `db:"queue_status" json:"queue_status"`
	Attempts                int                `db:"attempts" json:"attempts"`
	NextAttemptAt           *time.Time         `db:"next_attempt_at" json:"-"`
	CreatedAt               time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `db:"updated_at" json:"updated_at"`
}

// LineItem represents a single billed line belonging to an invoice.
type LineItem struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	InvoiceID     uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Description   string          `db:"description" json:"description"`
	NormalizedKey string          `db:"normalized_key" json:"normalized_key"`
	TaxCode       string          `db:"tax_code" json:"tax_code"`
	Quantity      decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	TaxRate       decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	LineTotal     decimal.Decimal `db:"line_total" json:"line_total"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// ComplianceFinding represents a single compliance-check output for an invoice.
type ComplianceFinding struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	InvoiceID   uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	LineItemID  *uuid.UUID      `db:"line_item_id" json:"line_item_id"`
	Kind        FindingKind     `db:"kind" json:"kind"`
	Severity    FindingSeverity `db:"severity" json:"severity"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// DuplicateLink records that one invoice is a duplicate of an earlier original.
type DuplicateLink struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DuplicateID uuid.UUID `db:"duplicate_id" json:"duplicate_id"`
	OriginalID  uuid.UUID `db:"original_id" json:"original_id"`
	DetectedAt  time.Time `db:"detected_at" json:"detected_at"`
}

// CacheEntry holds a prior registry verification result keyed by tax ID.
type CacheEntry struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	TaxID            string     `db:"tax_id" json:"tax_id"`
	LegalName        string     `db:"legal_name" json:"legal_name"`
	TradeName        string     `db:"trade_name" json:"trade_name"`
	RegistryStatus   string     `db:"registry_status" json:"registry_status"`
	RegistrationDate *time.Time `db:"registration_date" json:"registration_date"`
	Constitution     string     `db:"constitution" json:"constitution"`
	Address          string     `db:"address" json:"address"`
	HitCount         int64      `db:"hit_count" json:"hit_count"`
	LastVerifiedAt   time.Time  `db:"last_verified_at" json:"last_verified_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// KeyFlagList is a list of human-readable health-score issues, stored as JSONB.
type KeyFlagList []string

// Value implements driver.Valuer.
func (k KeyFlagList) Value() (driver.Value, error) {
	if k == nil {
		k = KeyFlagList{}
	}
	return json.Marshal(k)
}

// Scan implements sql.Scanner.
func (k *KeyFlagList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*k = nil
		return nil
	case []byte:
		return json.Unmarshal(v, k)
	case string:
		return json.Unmarshal([]byte(v), k)
	default:
		return fmt.Errorf("cannot scan %T into KeyFlagList", src)
	}
}

// HealthScore is the composite trust rating for an invoice, one-to-one.
type HealthScore struct {
	ID                uuid.UUID   `db:"id" json:"id"`
	InvoiceID         uuid.UUID   `db:"invoice_id" json:"invoice_id"`
	OverallScore      float64     `db:"overall_score" json:"overall_score"`
	Status            HealthTier  `db:"status" json:"status"`
	CompletenessScore float64     `db:"completeness_score" json:"completeness_score"`
	VerificationScore float64     `db:"verification_score" json:"verification_score"`
	ComplianceScore   float64     `db:"compliance_score" json:"compliance_score"`
	FraudScore        float64     `db:"fraud_score" json:"fraud_score"`
	ConfidenceScore   float64     `db:"confidence_score" json:"confidence_score"`
	KeyFlags          KeyFlagList `db:"key_flags" json:"key_flags"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// CredentialUsage tracks one pooled extraction credential by its hash.
// The raw secret is never stored.
type CredentialUsage struct {
	KeyHash     string     `db:"key_hash" json:"key_hash"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	UsageCount  int64      `db:"usage_count" json:"usage_count"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at"`
	ExhaustedAt *time.Time `db:"exhausted_at" json:"exhausted_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Batch tracks the progress of a bulk upload.
type Batch struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	TotalCount     int         `db:"total_count" json:"total_count"`
	ProcessedCount int         `db:"processed_count" json:"processed_count"`
	FailedCount    int         `db:"failed_count" json:"failed_count"`
	Status         BatchStatus `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// TaxCode is one entry of the preloaded code-to-rate reference table.
type TaxCode struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Code        string          `db:"code" json:"code"`
	Category    TaxCodeCategory `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	Rate        float64         `db:"rate" json:"rate"`
}
