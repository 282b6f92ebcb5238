package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// WorkerConfig holds settings for the processing queue worker.
type WorkerConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
	RetryBase    time.Duration
}

// Worker polls for queued invoices and dispatches them through the pipeline.
type Worker struct {
	invoices  port.InvoiceRepository
	processor *Processor
	cfg       WorkerConfig
	wg        sync.WaitGroup
}

// NewWorker creates a new pipeline worker.
func NewWorker(invoices port.InvoiceRepository, processor *Processor, cfg WorkerConfig) *Worker {
	return &Worker{
		invoices:  invoices,
		processor: processor,
		cfg:       cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight invoices have finished.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("pipelineWorker: started (poll=%s, concurrency=%d, maxRetries=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			log.Printf("pipelineWorker: shutting down, waiting for in-flight invoices...")
			w.wg.Wait()
			log.Printf("pipelineWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			invs, err := w.invoices.ClaimQueued(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					// Context canceled during poll — exit gracefully
					continue
				}
				log.Errorf("pipelineWorker: ClaimQueued error: %v", err)
				continue
			}

			for i := range invs {
				inv := invs[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight invoices complete even during shutdown.
					procCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
					defer cancel()

					log.Printf("pipelineWorker: dispatching invoice %s (attempt %d)", inv.ID, inv.Attempts)
					w.dispatch(procCtx, &inv)
				}()
			}
		}
	}
}

// dispatch runs one invoice and applies the retry policy on failure: missing
// invoices and spent retry budgets are abandoned, everything else is requeued
// with exponential backoff.
func (w *Worker) dispatch(ctx context.Context, inv *domain.Invoice) {
	err := w.processor.Process(ctx, inv)
	if err == nil {
		return
	}

	if errors.Is(err, domain.ErrInvoiceNotFound) || inv.Attempts >= w.cfg.MaxRetries {
		w.processor.Abandon(ctx, inv, err)
		return
	}

	delay := w.cfg.RetryBase * time.Duration(1<<inv.Attempts)
	log.Printf("pipelineWorker: invoice %s failed (attempt %d), retrying in %s: %v",
		inv.ID, inv.Attempts, delay, err)
	if reqErr := w.invoices.Requeue(ctx, inv.ID, time.Now().UTC().Add(delay)); reqErr != nil {
		log.Errorf("pipelineWorker: requeue %s: %v", inv.ID, reqErr)
		w.processor.Abandon(ctx, inv, err)
	}
}
