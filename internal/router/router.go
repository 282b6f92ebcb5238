package router

import (
	"github.com/gin-gonic/gin"

	"ledgerlens/internal/config"
	"ledgerlens/internal/handler"
	"ledgerlens/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	invoiceH *handler.InvoiceHandler,
	verificationH *handler.VerificationHandler,
	credentialH *handler.CredentialHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Invoice routes
	invoices := v1.Group("/invoices")
	invoices.POST("/upload", invoiceH.Upload)
	invoices.GET("/:id", invoiceH.GetByID)
	invoices.PUT("/:id/manual", invoiceH.ManualEntry)
	invoices.GET("/:id/duplicates", invoiceH.ListDuplicates)

	// Batch routes
	v1.GET("/batches/:id", invoiceH.GetBatch)

	// Registry verification routes
	verification := v1.Group("/verification")
	verification.GET("/captcha", verificationH.GetChallenge)
	verification.POST("/verify", verificationH.Verify)
	verification.GET("/records", verificationH.List)
	verification.GET("/records/:taxId", verificationH.Lookup)

	// Credential pool routes
	credentials := v1.Group("/credentials")
	credentials.GET("/status", credentialH.Status)
	credentials.POST("/reset", credentialH.Reset)

	return r
}
