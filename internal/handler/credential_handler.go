package handler

import (
	"github.com/gin-gonic/gin"

	"ledgerlens/internal/keypool"
)

// CredentialHandler exposes extraction credential pool status and reset.
// Responses carry only key hashes, never raw keys.
type CredentialHandler struct {
	pool *keypool.Pool
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(pool *keypool.Pool) *CredentialHandler {
	return &CredentialHandler{pool: pool}
}

// Status handles GET /api/v1/credentials/status
func (h *CredentialHandler) Status(c *gin.Context) {
	usages, err := h.pool.Statuses(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"total":       h.pool.Size(),
		"credentials": usages,
	})
}

// Reset handles POST /api/v1/credentials/reset
func (h *CredentialHandler) Reset(c *gin.Context) {
	reactivated, err := h.pool.Reset(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"reactivated": reactivated})
}
