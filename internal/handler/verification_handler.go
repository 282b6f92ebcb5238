package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerlens/internal/verification"
)

// VerificationHandler handles tax registry verification endpoints.
type VerificationHandler struct {
	service *verification.Service
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(service *verification.Service) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// GetChallenge handles GET /api/v1/verification/captcha
func (h *VerificationHandler) GetChallenge(c *gin.Context) {
	challenge, err := h.service.Challenge(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, challenge)
}

// verifyRequest is the request body for submitting a solved CAPTCHA.
type verifyRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	TaxID     string `json:"tax_id" binding:"required"`
	Captcha   string `json:"captcha" binding:"required"`
}

// Verify handles POST /api/v1/verification/verify
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "session_id, tax_id and captcha are required")
		return
	}

	entry, err := h.service.Verify(c.Request.Context(), req.SessionID, req.TaxID, req.Captcha)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entry)
}

// Lookup handles GET /api/v1/verification/records/:taxId
func (h *VerificationHandler) Lookup(c *gin.Context) {
	entry, err := h.service.Lookup(c.Request.Context(), c.Param("taxId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entry)
}

// List handles GET /api/v1/verification/records
func (h *VerificationHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entries)
}
