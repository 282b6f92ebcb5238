package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/config"
	"ledgerlens/internal/keypool"
	"ledgerlens/internal/port"
)

const apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Client implements port.Extractor against Google's Gemini API, rotating
// credentials through a key pool and failing over on quota rejections.
type Client struct {
	pool        *keypool.Pool
	model       string
	endpoint    string
	client      *http.Client
	maxRetries  int
	backoffBase time.Duration
}

// NewClient creates a Gemini-based invoice extractor.
func NewClient(cfg *config.ExtractionConfig, pool *keypool.Pool) *Client {
	return newClient(cfg, pool, "")
}

// NewClientWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ExtractionConfig, pool *keypool.Pool, endpoint string) *Client {
	return newClient(cfg, pool, endpoint)
}

func newClient(cfg *config.ExtractionConfig, pool *keypool.Pool, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	backoff := time.Duration(cfg.BackoffBaseSecs) * time.Second
	if backoff == 0 {
		backoff = time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
	}
	return &Client{
		pool:        pool,
		model:       model,
		endpoint:    endpoint,
		client:      &http.Client{Timeout: timeout},
		maxRetries:  cfg.MaxRetries,
		backoffBase: backoff,
	}
}

// transientError marks provider failures worth retrying with backoff.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (c *Client) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractedInvoice, error) {
	mimeType, err := toMimeType(input.ContentType)
	if err != nil {
		return nil, err
	}

	prompt := BuildInvoicePrompt()
	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      encoded,
						},
					},
					{
						"text": prompt,
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  16384,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase * time.Duration(1<<(attempt-1))
			log.Printf("extraction: transient failure, retrying in %s (attempt %d/%d)", delay, attempt, c.maxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := c.callWithFailover(ctx, bodyBytes)
		if err == nil {
			return out, nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("extraction failed after %d retries: %w", c.maxRetries, lastErr)
}

// callWithFailover tries credentials in pool order until one is not quota
// rejected. A 429 burns the credential, not a retry attempt.
func (c *Client) callWithFailover(ctx context.Context, bodyBytes []byte) (*port.ExtractedInvoice, error) {
	for {
		cred, err := c.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", cred.Key)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, &transientError{err: fmt.Errorf("calling extraction API: %w", err)}
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, &transientError{err: fmt.Errorf("reading response: %w", err)}
		}

		if resp.StatusCode == http.StatusTooManyRequests || isQuotaRejection(respBody) {
			if markErr := c.pool.MarkExhausted(ctx, cred.Hash); markErr != nil {
				return nil, markErr
			}
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &transientError{err: fmt.Errorf("extraction API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("extraction API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
		}

		return parseResponse(respBody)
	}
}

func toMimeType(contentType string) (string, error) {
	switch contentType {
	case "application/pdf":
		return "application/pdf", nil
	case "image/jpeg":
		return "image/jpeg", nil
	case "image/png":
		return "image/png", nil
	default:
		return "", fmt.Errorf("unsupported content type for extraction: %s", contentType)
	}
}

// isQuotaRejection catches quota exhaustion responses that arrive with a
// non-429 status.
func isQuotaRejection(body []byte) bool {
	s := strings.ToUpper(string(body))
	return strings.Contains(s, "RESOURCE_EXHAUSTED") || strings.Contains(s, "QUOTA EXCEEDED")
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type rawLineItem struct {
	Description interface{} `json:"description"`
	TaxCode     interface{} `json:"tax_code"`
	Quantity    interface{} `json:"quantity"`
	UnitPrice   interface{} `json:"unit_price"`
	TaxRate     interface{} `json:"tax_rate"`
	LineTotal   interface{} `json:"line_total"`
}

type rawInvoice struct {
	IsInvoice      *bool         `json:"is_invoice"`
	DocumentNumber interface{}   `json:"document_number"`
	IssueDate      interface{}   `json:"issue_date"`
	VendorName     interface{}   `json:"vendor_name"`
	VendorTaxID    interface{}   `json:"vendor_tax_id"`
	BuyerTaxID     interface{}   `json:"buyer_tax_id"`
	GrandTotal     interface{}   `json:"grand_total"`
	LineItems      []rawLineItem `json:"line_items"`
}

func parseResponse(body []byte) (*port.ExtractedInvoice, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &transientError{err: fmt.Errorf("unmarshaling response: %w", err)}
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &transientError{err: fmt.Errorf("empty response from API")}
	}

	text := stripFences(resp.Candidates[0].Content.Parts[0].Text)

	var raw rawInvoice
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &Error{
			Kind:   KindUnreadable,
			Reason: "The document could not be read automatically. Please enter its details manually.",
		}
	}

	if raw.IsInvoice != nil && !*raw.IsInvoice {
		return nil, &Error{
			Kind:   KindNotDocument,
			Reason: "The uploaded file does not appear to be an invoice. Please enter its details manually.",
		}
	}

	out := &port.ExtractedInvoice{
		IsDocument:     true,
		DocumentNumber: asString(raw.DocumentNumber),
		IssueDate:      asDate(raw.IssueDate),
		VendorName:     asString(raw.VendorName),
		VendorTaxID:    asTaxID(raw.VendorTaxID),
		BuyerTaxID:     asTaxID(raw.BuyerTaxID),
		GrandTotal:     asFloat(raw.GrandTotal),
	}
	for _, item := range raw.LineItems {
		out.LineItems = append(out.LineItems, port.ExtractedLineItem{
			Description: asString(item.Description),
			TaxCode:     asString(item.TaxCode),
			Quantity:    asFloat(item.Quantity),
			UnitPrice:   asFloat(item.UnitPrice),
			TaxRate:     asFloat(item.TaxRate),
			LineTotal:   asFloat(item.LineTotal),
		})
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
