package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ledgerlens/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
		{domain.ErrBatchNotFound, http.StatusNotFound, "BATCH_NOT_FOUND"},
		{domain.ErrHealthScoreNotFound, http.StatusNotFound, "HEALTH_SCORE_NOT_FOUND"},
		{domain.ErrCacheMiss, http.StatusNotFound, "NOT_VERIFIED"},
		{domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{domain.ErrTooManyFiles, http.StatusBadRequest, "TOO_MANY_FILES"},
		{domain.ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED"},
		{domain.ErrInvalidTaxID, http.StatusBadRequest, "INVALID_TAX_ID"},
		{domain.ErrInvoiceStillPending, http.StatusConflict, "INVOICE_STILL_PENDING"},
		{domain.ErrMissingLineItems, http.StatusBadRequest, "MISSING_LINE_ITEMS"},
		{domain.ErrSelfLink, http.StatusBadRequest, "SELF_LINK"},
		{domain.ErrAlreadyLinked, http.StatusConflict, "ALREADY_LINKED"},
		{domain.ErrRegistryUnavailable, http.StatusBadGateway, "REGISTRY_UNAVAILABLE"},
		{domain.ErrRegistryRejected, http.StatusBadRequest, "REGISTRY_REJECTED"},
		{domain.ErrNoActiveCredentials, http.StatusServiceUnavailable, "NO_ACTIVE_CREDENTIALS"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code, msg := MapDomainError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestMapDomainError_WrappedErrorsStillMap(t *testing.T) {
	wrapped := fmt.Errorf("invoiceRepo.GetByID: %w", domain.ErrInvoiceNotFound)
	status, code, _ := MapDomainError(wrapped)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "INVOICE_NOT_FOUND", code)
}

func TestHandleError_RawErrorDetailsAreNotLeaked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	HandleError(c, errors.New("pq: connection refused at 10.0.0.4:5432"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.4")
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
