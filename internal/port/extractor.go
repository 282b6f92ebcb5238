package port

import "context"

// ExtractInput is the document payload handed to the extraction service.
type ExtractInput struct {
	FileBytes   []byte
	ContentType string
}

// ExtractedLineItem is one validated line item from the extraction service.
// Nil means the field was absent or failed validation.
type ExtractedLineItem struct {
	Description *string
	TaxCode     *string
	Quantity    *float64
	UnitPrice   *float64
	TaxRate     *float64
	LineTotal   *float64
}

// ExtractedInvoice is the validated, coerced extraction result. Every field
// has passed the client's boundary validation; downstream components never
// see raw service output.
type ExtractedInvoice struct {
	IsDocument     bool
	DocumentNumber *string
	IssueDate      *string // strict YYYY-MM-DD
	VendorName     *string
	VendorTaxID    *string // exactly 15 characters, upper-cased
	BuyerTaxID     *string
	GrandTotal     *float64
	LineItems      []ExtractedLineItem
}

// Extractor turns a document image into structured invoice data.
type Extractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractedInvoice, error)
}
