package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/analysis"
	"ledgerlens/internal/config"
	"ledgerlens/internal/extraction"
	"ledgerlens/internal/handler"
	"ledgerlens/internal/keypool"
	"ledgerlens/internal/linking"
	"ledgerlens/internal/pipeline"
	"ledgerlens/internal/repository/postgres"
	"ledgerlens/internal/router"
	s3storage "ledgerlens/internal/storage/s3"
	"ledgerlens/internal/verification"
	"ledgerlens/internal/verification/registry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogging(&cfg.Log)

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	lineItemRepo := postgres.NewLineItemRepo(db)
	findingRepo := postgres.NewFindingRepo(db)
	linkRepo := postgres.NewDuplicateLinkRepo(db)
	cacheRepo := postgres.NewVerificationCacheRepo(db)
	credentialRepo := postgres.NewCredentialUsageRepo(db)
	healthScoreRepo := postgres.NewHealthScoreRepo(db)
	batchRepo := postgres.NewBatchRepo(db)
	taxCodeRepo := postgres.NewTaxCodeRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Extraction credential pool and client
	pool, err := keypool.NewPool(rootCtx, cfg.Extraction.Keys(), credentialRepo)
	if err != nil {
		return fmt.Errorf("failed to initialize credential pool: %w", err)
	}
	extractor := extraction.NewClient(&cfg.Extraction, pool)

	// Tax code lookup is loaded once at startup; codes change via reseeding.
	taxCodes, err := taxCodeRepo.LoadAll(rootCtx)
	if err != nil {
		return fmt.Errorf("failed to load tax codes: %w", err)
	}
	lookup := analysis.NewTaxCodeLookup(taxCodes)
	log.Printf("loaded %d tax codes", lookup.Size())

	// Initialize services
	engine := analysis.NewEngine(invoiceRepo, lineItemRepo, lookup)
	linker := linking.NewService(invoiceRepo, linkRepo)
	registryClient := registry.NewClient(&cfg.Registry)
	verificationSvc := verification.NewService(cacheRepo, invoiceRepo, registryClient)

	processor := pipeline.NewProcessor(
		invoiceRepo, lineItemRepo, findingRepo, batchRepo, healthScoreRepo,
		cacheRepo, s3Client, extractor, engine, linker,
	)
	submitSvc := pipeline.NewSubmitService(invoiceRepo, batchRepo, s3Client, cfg.S3.Bucket, cfg.Upload)
	manualSvc := pipeline.NewManualEntryService(invoiceRepo, lineItemRepo, processor)

	// Background worker
	worker := pipeline.NewWorker(invoiceRepo, processor, pipeline.WorkerConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		MaxRetries:   cfg.Queue.MaxRetries,
		Concurrency:  cfg.Queue.Concurrency,
		RetryBase:    time.Duration(cfg.Queue.RetryBaseSecs) * time.Second,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(rootCtx)
	}()

	// Initialize handlers
	invoiceH := handler.NewInvoiceHandler(
		submitSvc, manualSvc, linker,
		invoiceRepo, lineItemRepo, findingRepo, batchRepo, healthScoreRepo,
	)
	verificationH := handler.NewVerificationHandler(verificationSvc)
	credentialH := handler.NewCredentialHandler(pool)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, invoiceH, verificationH, credentialH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		cancel()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}

	// Stop the worker and wait for in-flight invoices.
	cancel()
	<-workerDone

	return nil
}

func configureLogging(cfg *config.LogConfig) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
