package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/analysis"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/extraction"
	"ledgerlens/internal/linking"
	"ledgerlens/internal/port"
	"ledgerlens/internal/scoring"
)

// Placeholder values stored when extraction cannot recover a field, so a
// failed invoice still renders meaningfully.
const (
	unknownDocumentNumber = "UNKNOWN"
	unknownVendorName     = "Unknown Vendor"
)

// Processor runs an invoice through the full pipeline: download, extraction,
// compliance analysis, duplicate linking, verification, and health scoring.
type Processor struct {
	invoices     port.InvoiceRepository
	lineItems    port.LineItemRepository
	findings     port.FindingRepository
	batches      port.BatchRepository
	healthScores port.HealthScoreRepository
	cache        port.VerificationCacheRepository
	storage      port.ObjectStorage
	extractor    port.Extractor
	engine       *analysis.Engine
	linker       *linking.Service
}

// NewProcessor creates a pipeline processor.
func NewProcessor(
	invoices port.InvoiceRepository,
	lineItems port.LineItemRepository,
	findings port.FindingRepository,
	batches port.BatchRepository,
	healthScores port.HealthScoreRepository,
	cache port.VerificationCacheRepository,
	storage port.ObjectStorage,
	extractor port.Extractor,
	engine *analysis.Engine,
	linker *linking.Service,
) *Processor {
	return &Processor{
		invoices:     invoices,
		lineItems:    lineItems,
		findings:     findings,
		batches:      batches,
		healthScores: healthScores,
		cache:        cache,
		storage:      storage,
		extractor:    extractor,
		engine:       engine,
		linker:       linker,
	}
}

// Process runs one claimed invoice through the pipeline. A nil return means
// the invoice reached a terminal state (cleared, flagged, or routed to manual
// entry) and its queue and batch bookkeeping are settled. A non-nil return
// means a transient failure the worker should retry.
func (p *Processor) Process(ctx context.Context, inv *domain.Invoice) error {
	fileBytes, err := p.storage.Download(ctx, inv.S3Bucket, inv.S3Key)
	if err != nil {
		return fmt.Errorf("processor: downloading %s: %w", inv.ID, err)
	}

	ext, err := p.extractor.Extract(ctx, port.ExtractInput{
		FileBytes:   fileBytes,
		ContentType: inv.ContentType,
	})
	if err != nil {
		if extraction.IsTerminal(err) {
			return p.routeToManualEntry(ctx, inv, err.Error())
		}
		return fmt.Errorf("processor: extracting %s: %w", inv.ID, err)
	}

	confidence := scoring.Confidence(ext)
	applyExtraction(inv, ext, confidence)

	items := buildLineItems(inv, ext)
	if err := p.lineItems.ReplaceForInvoice(ctx, inv.ID, items); err != nil {
		return fmt.Errorf("processor: storing line items for %s: %w", inv.ID, err)
	}

	if err := p.finalize(ctx, inv, items); err != nil {
		return err
	}

	p.settle(ctx, inv, false)
	return nil
}

// finalize runs the post-extraction stages: compliance analysis, duplicate
// linking, verification, and health scoring. Manual entry reuses it so edited
// invoices go through the same checks as extracted ones.
func (p *Processor) finalize(ctx context.Context, inv *domain.Invoice, items []domain.LineItem) error {
	result, err := p.engine.Analyze(ctx, inv, items)
	if err != nil {
		// Analysis itself failing is recorded, not fatal.
		log.Errorf("processor: analysis failed for %s: %v", inv.ID, err)
		result = &analysis.Result{Findings: []domain.ComplianceFinding{{
			Kind:        domain.FindingKindSystemError,
			Severity:    domain.FindingSeverityCritical,
			Description: "Automated checks could not be completed and need a manual review.",
		}}}
	}

	if err := p.findings.ReplaceForInvoice(ctx, inv.ID, result.Findings); err != nil {
		return fmt.Errorf("processor: storing findings for %s: %w", inv.ID, err)
	}

	// Warnings and advisories alone do not block an invoice.
	if result.HasCritical() {
		inv.Status = domain.InvoiceStatusHasAnomalies
	} else {
		inv.Status = domain.InvoiceStatusCleared
	}

	linked := false
	if result.DuplicateOf != nil {
		if err := p.linker.Link(ctx, inv.ID, *result.DuplicateOf); err != nil {
			log.Errorf("processor: linking %s: %v", inv.ID, err)
		} else {
			linked = true
		}
	}

	p.verify(ctx, inv, linked, result.DuplicateOf)

	if err := p.invoices.Update(ctx, inv); err != nil {
		return fmt.Errorf("processor: updating %s: %w", inv.ID, err)
	}

	p.scoreHealth(ctx, inv, len(items), result.Findings, linked)
	return nil
}

// verify sets the invoice's verification status. A linked duplicate inherits
// from its original; otherwise a cache hit on the vendor tax ID counts as
// verified and anything else stays pending for an operator.
func (p *Processor) verify(ctx context.Context, inv *domain.Invoice, linked bool, originalID *uuid.UUID) {
	if linked && originalID != nil {
		original, err := p.invoices.GetByID(ctx, *originalID)
		if err == nil && original.VerificationStatus == domain.VerificationStatusVerified {
			inv.VerificationStatus = domain.VerificationStatusVerified
			return
		}
	}

	if len(inv.VendorTaxID) == 15 {
		if _, err := p.cache.Lookup(ctx, inv.VendorTaxID); err == nil {
			inv.VerificationStatus = domain.VerificationStatusVerified
			return
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			log.Errorf("processor: cache lookup for %s: %v", inv.ID, err)
		}
	}
	inv.VerificationStatus = domain.VerificationStatusPending
}

func (p *Processor) scoreHealth(ctx context.Context, inv *domain.Invoice, itemCount int, findings []domain.ComplianceFinding, linked bool) {
	score := scoring.Health(scoring.HealthInput{
		Invoice:           inv,
		LineItemCount:     itemCount,
		Findings:          findings,
		LinkedAsDuplicate: linked,
	})
	if err := p.healthScores.Upsert(ctx, score); err != nil {
		log.Errorf("processor: storing health score for %s: %v", inv.ID, err)
		fallback := scoring.FallbackHealth(inv, "Health score could not be calculated and needs a manual review.")
		if err := p.healthScores.Upsert(ctx, fallback); err != nil {
			log.Errorf("processor: storing fallback health score for %s: %v", inv.ID, err)
		}
	}
}

// routeToManualEntry stores the failure reason and parks the invoice for an
// operator to fill in. The batch counts it as a failure.
func (p *Processor) routeToManualEntry(ctx context.Context, inv *domain.Invoice, reason string) error {
	inv.ExtractionMethod = domain.ExtractionMethodManual
	inv.ExtractionFailureReason = reason
	inv.Status = domain.InvoiceStatusHasAnomalies
	inv.VerificationStatus = domain.VerificationStatusPending
	if inv.DocumentNumber == "" {
		inv.DocumentNumber = unknownDocumentNumber
	}
	if inv.VendorName == "" {
		inv.VendorName = unknownVendorName
	}

	if err := p.invoices.Update(ctx, inv); err != nil {
		return fmt.Errorf("processor: updating %s: %w", inv.ID, err)
	}

	p.scoreHealth(ctx, inv, 0, nil, false)
	p.settle(ctx, inv, true)

	log.Printf("processor: invoice %s routed to manual entry: %s", inv.ID, reason)
	return nil
}

// settle closes out the queue entry and records the outcome against the
// invoice's batch.
func (p *Processor) settle(ctx context.Context, inv *domain.Invoice, failed bool) {
	queueStatus := domain.QueueStatusDone
	if failed {
		queueStatus = domain.QueueStatusFailed
	}
	if err := p.invoices.FinishQueue(ctx, inv.ID, queueStatus); err != nil {
		log.Errorf("processor: finishing queue for %s: %v", inv.ID, err)
	}

	if inv.BatchID == nil {
		return
	}
	batch, err := p.batches.RecordResult(ctx, *inv.BatchID, failed)
	if err != nil {
		log.Errorf("processor: recording batch result for %s: %v", inv.ID, err)
		return
	}
	if batch.Status != domain.BatchStatusProcessing {
		log.Printf("processor: batch %s finished (%s, %d ok, %d failed)",
			batch.ID, batch.Status, batch.ProcessedCount, batch.FailedCount)
	}
}

// Abandon gives up on an invoice after retries are spent or its record has
// vanished. The stored reason is what the user sees.
func (p *Processor) Abandon(ctx context.Context, inv *domain.Invoice, cause error) {
	log.Errorf("processor: abandoning invoice %s: %v", inv.ID, cause)

	if !errors.Is(cause, domain.ErrInvoiceNotFound) {
		inv.ExtractionFailureReason = "Processing failed after repeated attempts. Please enter the invoice details manually."
		inv.ExtractionMethod = domain.ExtractionMethodManual
		inv.Status = domain.InvoiceStatusHasAnomalies
		if inv.DocumentNumber == "" {
			inv.DocumentNumber = unknownDocumentNumber
		}
		if inv.VendorName == "" {
			inv.VendorName = unknownVendorName
		}
		if err := p.invoices.Update(ctx, inv); err != nil {
			log.Errorf("processor: updating abandoned invoice %s: %v", inv.ID, err)
		}
		p.scoreHealth(ctx, inv, 0, nil, false)
	}

	p.settle(ctx, inv, true)
}

// applyExtraction copies extracted fields onto the invoice, substituting
// placeholders for anything the model could not recover.
func applyExtraction(inv *domain.Invoice, ext *port.ExtractedInvoice, confidence float64) {
	inv.ExtractionMethod = domain.ExtractionMethodAI
	inv.ExtractionFailureReason = ""
	inv.ConfidenceScore = &confidence

	if ext.DocumentNumber != nil {
		inv.DocumentNumber = *ext.DocumentNumber
	} else {
		inv.DocumentNumber = unknownDocumentNumber
	}
	if ext.VendorName != nil {
		inv.VendorName = *ext.VendorName
	} else {
		inv.VendorName = unknownVendorName
	}
	if ext.VendorTaxID != nil {
		inv.VendorTaxID = *ext.VendorTaxID
	}
	if ext.BuyerTaxID != nil {
		inv.BuyerTaxID = *ext.BuyerTaxID
	}
	if ext.IssueDate != nil {
		if parsed, err := time.Parse("2006-01-02", *ext.IssueDate); err == nil {
			inv.IssueDate = &parsed
		}
	}
	if ext.GrandTotal != nil {
		inv.GrandTotal = decimal.NewFromFloat(*ext.GrandTotal)
	}
}

// buildLineItems converts extracted line items to domain rows, deriving the
// normalized comparison key from each description.
func buildLineItems(inv *domain.Invoice, ext *port.ExtractedInvoice) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(ext.LineItems))
	for _, raw := range ext.LineItems {
		item := domain.LineItem{InvoiceID: inv.ID}
		if raw.Description != nil {
			item.Description = *raw.Description
			item.NormalizedKey = analysis.NormalizeKey(*raw.Description)
		}
		if raw.TaxCode != nil {
			item.TaxCode = *raw.TaxCode
		}
		if raw.Quantity != nil {
			item.Quantity = decimal.NewFromFloat(*raw.Quantity)
		}
		if raw.UnitPrice != nil {
			item.UnitPrice = decimal.NewFromFloat(*raw.UnitPrice)
		}
		if raw.TaxRate != nil {
			item.TaxRate = decimal.NewFromFloat(*raw.TaxRate)
		}
		if raw.LineTotal != nil {
			item.LineTotal = decimal.NewFromFloat(*raw.LineTotal)
		}
		items = append(items, item)
	}
	return items
}
