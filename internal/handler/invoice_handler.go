package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/linking"
	"ledgerlens/internal/pipeline"
	"ledgerlens/internal/port"
)

// InvoiceHandler handles invoice upload and retrieval endpoints.
type InvoiceHandler struct {
	submit       *pipeline.SubmitService
	manual       *pipeline.ManualEntryService
	linker       *linking.Service
	invoices     port.InvoiceRepository
	lineItems    port.LineItemRepository
	findings     port.FindingRepository
	batches      port.BatchRepository
	healthScores port.HealthScoreRepository
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(
	submit *pipeline.SubmitService,
	manual *pipeline.ManualEntryService,
	linker *linking.Service,
	invoices port.InvoiceRepository,
	lineItems port.LineItemRepository,
	findings port.FindingRepository,
	batches port.BatchRepository,
	healthScores port.HealthScoreRepository,
) *InvoiceHandler {
	return &InvoiceHandler{
		submit:       submit,
		manual:       manual,
		linker:       linker,
		invoices:     invoices,
		lineItems:    lineItems,
		findings:     findings,
		batches:      batches,
		healthScores: healthScores,
	}
}

// Upload handles POST /api/v1/invoices/upload. It accepts one or more files
// under the "files" form field and returns the created batch.
func (h *InvoiceHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "multipart form with a files field is required")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "at least one file is required")
		return
	}

	files := make([]pipeline.UploadFile, 0, len(headers))
	for _, header := range headers {
		data, err := readMultipartFile(header)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			// Some clients send a generic part type; the extension is the
			// only signal left.
			if inferred, ok := domain.ContentTypeForFilename(header.Filename); ok {
				contentType = inferred
			}
		}
		files = append(files, pipeline.UploadFile{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	batch, invoices, err := h.submit.Submit(c.Request.Context(), files)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, gin.H{
		"batch":    batch,
		"invoices": invoices,
	})
}

// invoiceDetail is the full read model for one invoice.
type invoiceDetail struct {
	Invoice     *domain.Invoice            `json:"invoice"`
	LineItems   []domain.LineItem          `json:"line_items"`
	Findings    []domain.ComplianceFinding `json:"findings"`
	HealthScore *domain.HealthScore        `json:"health_score,omitempty"`
	DuplicateOf *uuid.UUID                 `json:"duplicate_of,omitempty"`
}

// GetByID handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID format")
		return
	}

	ctx := c.Request.Context()
	inv, err := h.invoices.GetByID(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	items, err := h.lineItems.ListByInvoice(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	findings, err := h.findings.ListByInvoice(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	detail := invoiceDetail{
		Invoice:   inv,
		LineItems: items,
		Findings:  findings,
	}

	if score, err := h.healthScores.GetByInvoice(ctx, id); err == nil {
		detail.HealthScore = score
	} else if !errors.Is(err, domain.ErrHealthScoreNotFound) {
		HandleError(c, err)
		return
	}

	if original, err := h.linker.Original(ctx, id); err == nil {
		detail.DuplicateOf = &original.ID
	} else if !errors.Is(err, domain.ErrNotFound) {
		HandleError(c, err)
		return
	}

	RespondOK(c, detail)
}

// manualEntryRequest is the request body for manual invoice entry.
type manualEntryRequest struct {
	DocumentNumber string              `json:"document_number" binding:"required"`
	IssueDate      string              `json:"issue_date"`
	VendorName     string              `json:"vendor_name" binding:"required"`
	VendorTaxID    string              `json:"vendor_tax_id"`
	BuyerTaxID     string              `json:"buyer_tax_id"`
	GrandTotal     decimal.Decimal     `json:"grand_total"`
	LineItems      []manualLineItemDTO `json:"line_items" binding:"required"`
}

type manualLineItemDTO struct {
	Description string          `json:"description" binding:"required"`
	TaxCode     string          `json:"tax_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ManualEntry handles PUT /api/v1/invoices/:id/manual
func (h *InvoiceHandler) ManualEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID format")
		return
	}

	var req manualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	input := pipeline.ManualEntryInput{
		DocumentNumber: req.DocumentNumber,
		VendorName:     req.VendorName,
		VendorTaxID:    req.VendorTaxID,
		BuyerTaxID:     req.BuyerTaxID,
		GrandTotal:     req.GrandTotal,
	}
	if req.IssueDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.IssueDate)
		if parseErr != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_DATE", "issue_date must be YYYY-MM-DD")
			return
		}
		input.IssueDate = &parsed
	}
	for _, li := range req.LineItems {
		input.LineItems = append(input.LineItems, pipeline.ManualLineItem{
			Description: li.Description,
			TaxCode:     li.TaxCode,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			TaxRate:     li.TaxRate,
			LineTotal:   li.LineTotal,
		})
	}

	inv, err := h.manual.Apply(c.Request.Context(), id, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// GetBatch handles GET /api/v1/batches/:id
func (h *InvoiceHandler) GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid batch ID format")
		return
	}

	ctx := c.Request.Context()
	batch, err := h.batches.GetByID(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	invoices, err := h.invoices.ListByBatch(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"batch":    batch,
		"invoices": invoices,
	})
}

// ListDuplicates handles GET /api/v1/invoices/:id/duplicates
func (h *InvoiceHandler) ListDuplicates(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID format")
		return
	}

	links, err := h.linker.Duplicates(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, links)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
