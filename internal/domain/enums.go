package domain

import (
	"path/filepath"
	"strings"
)

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// ContentTypeForFilename infers the MIME content type from a filename's
// extension. Browsers and API clients sometimes omit the part content type or
// send application/octet-stream, and the extension is the only signal left.
func ContentTypeForFilename(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	ft, ok := AllowedExtensions[ext]
	if !ok {
		return "", false
	}
	return AllowedFileTypes[ft], true
}

// InvoiceStatus represents the processing state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPendingAnalysis InvoiceStatus = "PENDING_ANALYSIS"
	InvoiceStatusCleared         InvoiceStatus = "CLEARED"
	InvoiceStatusHasAnomalies    InvoiceStatus = "HAS_ANOMALIES"
)

// VerificationStatus represents the counterparty registry verification state.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "PENDING"
	VerificationStatusVerified VerificationStatus = "VERIFIED"
	VerificationStatusFailed   VerificationStatus = "FAILED"
)

// ExtractionMethod records how an invoice's structured data was produced.
type ExtractionMethod string

const (
	ExtractionMethodAI     ExtractionMethod = "AI"
	ExtractionMethodManual ExtractionMethod = "MANUAL"
)

// FindingKind categorizes a compliance finding.
type FindingKind string

const (
	FindingKindDuplicate       FindingKind = "DUPLICATE"
	FindingKindArithmeticError FindingKind = "ARITHMETIC_ERROR"
	FindingKindTaxRateMismatch FindingKind = "TAX_RATE_MISMATCH"
	FindingKindUnknownTaxCode  FindingKind = "UNKNOWN_TAX_CODE"
	FindingKindPriceAnomaly    FindingKind = "PRICE_ANOMALY"
	FindingKindSystemError     FindingKind = "SYSTEM_ERROR"
)

// FindingSeverity grades a compliance finding.
type FindingSeverity string

const (
	FindingSeverityCritical FindingSeverity = "CRITICAL"
	FindingSeverityWarning  FindingSeverity = "WARNING"
	FindingSeverityInfo     FindingSeverity = "INFO"
)

// HealthTier buckets an overall health score.
type HealthTier string

const (
	HealthTierHealthy HealthTier = "HEALTHY"
	HealthTierReview  HealthTier = "REVIEW"
	HealthTierAtRisk  HealthTier = "AT_RISK"
)

// BatchStatus represents the aggregate state of a bulk submission.
type BatchStatus string

const (
	BatchStatusProcessing     BatchStatus = "PROCESSING"
	BatchStatusCompleted      BatchStatus = "COMPLETED"
	BatchStatusPartialFailure BatchStatus = "PARTIAL_FAILURE"
)

// NextBatchStatus computes the batch status after counters have been updated.
// The batch stays PROCESSING until every member has been accounted for.
func NextBatchStatus(processed, failed, total int) BatchStatus {
	if processed+failed < total {
		return BatchStatusProcessing
	}
	if failed == 0 {
		return BatchStatusCompleted
	}
	return BatchStatusPartialFailure
}

// QueueStatus represents the lifecycle of an invoice in the processing queue.
type QueueStatus string

const (
	QueueStatusQueued     QueueStatus = "queued"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusDone       QueueStatus = "done"
	QueueStatusFailed     QueueStatus = "failed"
)

// TaxCodeCategory distinguishes the two reference rate tables.
type TaxCodeCategory string

const (
	TaxCodeGoods    TaxCodeCategory = "goods"
	TaxCodeServices TaxCodeCategory = "services"
)
