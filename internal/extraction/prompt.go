package extraction

// BuildInvoicePrompt returns the extraction prompt for invoice documents.
func BuildInvoicePrompt() string {
	return `You are a document data extraction assistant. Analyze the provided document and extract its data into the following JSON structure.

IMPORTANT INSTRUCTIONS:
- First decide whether the document is an invoice (tax invoice, bill, or similar commercial document). If it is not, set "is_invoice" to false and leave the other fields null.
- The document may span multiple pages. Extract ALL line items from every page and every section into a single flat "line_items" array. Do not skip, summarize, or omit any items.
- Normalize all dates to YYYY-MM-DD format. Strip timestamps and other non-date text.
- Tax identification numbers (GSTIN) are exactly 15 characters. Copy them verbatim, without spaces.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation. Use null for any field not present in the document.

The JSON object must follow this schema:
{
  "is_invoice": true,
  "document_number": "",
  "issue_date": "",
  "vendor_name": "",
  "vendor_tax_id": "",
  "buyer_tax_id": "",
  "grand_total": 0,
  "line_items": [
    {
      "description": "",
      "tax_code": "",
      "quantity": 0,
      "unit_price": 0,
      "tax_rate": 0,
      "line_total": 0
    }
  ]
}`
}
