package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 response for work queued in the background.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found"
	case errors.Is(err, domain.ErrBatchNotFound):
		return http.StatusNotFound, "BATCH_NOT_FOUND", "batch not found"
	case errors.Is(err, domain.ErrHealthScoreNotFound):
		return http.StatusNotFound, "HEALTH_SCORE_NOT_FOUND", "health score not calculated yet"
	case errors.Is(err, domain.ErrCacheMiss):
		return http.StatusNotFound, "NOT_VERIFIED", "tax ID has not been verified yet"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrTooManyFiles):
		return http.StatusBadRequest, "TOO_MANY_FILES", "too many files in one batch"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED", "file upload to storage failed"
	case errors.Is(err, domain.ErrInvalidTaxID):
		return http.StatusBadRequest, "INVALID_TAX_ID", "tax ID must be exactly 15 characters"
	case errors.Is(err, domain.ErrInvoiceStillPending):
		return http.StatusConflict, "INVOICE_STILL_PENDING", "invoice is still being processed"
	case errors.Is(err, domain.ErrMissingLineItems):
		return http.StatusBadRequest, "MISSING_LINE_ITEMS", "at least one line item is required"
	case errors.Is(err, domain.ErrSelfLink):
		return http.StatusBadRequest, "SELF_LINK", "an invoice cannot be its own duplicate"
	case errors.Is(err, domain.ErrAlreadyLinked):
		return http.StatusConflict, "ALREADY_LINKED", "invoice is already linked to an original"
	case errors.Is(err, domain.ErrRegistryUnavailable):
		return http.StatusBadGateway, "REGISTRY_UNAVAILABLE", "the tax registry is not reachable right now"
	case errors.Is(err, domain.ErrRegistryRejected):
		return http.StatusBadRequest, "REGISTRY_REJECTED", "the registry rejected the request; the CAPTCHA answer may be wrong"
	case errors.Is(err, domain.ErrCredentialNotFound):
		return http.StatusNotFound, "CREDENTIAL_NOT_FOUND", "credential is not tracked"
	case errors.Is(err, domain.ErrNoActiveCredentials):
		return http.StatusServiceUnavailable, "NO_ACTIVE_CREDENTIALS", "all extraction credentials are exhausted"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
