package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/config"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// UploadFile is one file in an upload request.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// SubmitService validates uploads, stores the files, and enqueues invoices
// for processing. Every upload creates a batch, including single files.
type SubmitService struct {
	invoices port.InvoiceRepository
	batches  port.BatchRepository
	storage  port.ObjectStorage
	bucket   string
	cfg      config.UploadConfig
}

// NewSubmitService creates an upload service.
func NewSubmitService(
	invoices port.InvoiceRepository,
	batches port.BatchRepository,
	storage port.ObjectStorage,
	bucket string,
	cfg config.UploadConfig,
) *SubmitService {
	return &SubmitService{
		invoices: invoices,
		batches:  batches,
		storage:  storage,
		bucket:   bucket,
		cfg:      cfg,
	}
}

// Submit accepts one or more files, stores each in object storage, and
// creates queued invoice records under a new batch. Validation failures
// reject the whole request before anything is stored.
func (s *SubmitService) Submit(ctx context.Context, files []UploadFile) (*domain.Batch, []domain.Invoice, error) {
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("submitService.Submit: %w", domain.ErrUnsupportedFileType)
	}
	if len(files) > s.cfg.MaxBatchFiles {
		return nil, nil, domain.ErrTooManyFiles
	}

	maxBytes := int64(s.cfg.MaxFileSizeMB) * 1024 * 1024
	for _, f := range files {
		if _, ok := domain.AllowedContentTypes[f.ContentType]; !ok {
			return nil, nil, domain.ErrUnsupportedFileType
		}
		if int64(len(f.Data)) > maxBytes {
			return nil, nil, domain.ErrFileTooLarge
		}
	}

	batch := &domain.Batch{
		ID:         uuid.New(),
		TotalCount: len(files),
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, nil, fmt.Errorf("submitService.Submit: creating batch: %w", err)
	}

	invoices := make([]domain.Invoice, 0, len(files))
	for _, f := range files {
		inv, err := s.submitOne(ctx, batch.ID, f)
		if err != nil {
			// The batch still expects this file, count it as failed so the
			// batch can complete.
			log.Errorf("submitService: file %q failed: %v", f.Name, err)
			if _, recErr := s.batches.RecordResult(ctx, batch.ID, true); recErr != nil {
				log.Errorf("submitService: recording upload failure: %v", recErr)
			}
			continue
		}
		invoices = append(invoices, *inv)
	}

	if len(invoices) == 0 {
		return batch, nil, domain.ErrUploadFailed
	}

	log.Printf("submitService: batch %s accepted with %d of %d files", batch.ID, len(invoices), len(files))
	return batch, invoices, nil
}

func (s *SubmitService) submitOne(ctx context.Context, batchID uuid.UUID, f UploadFile) (*domain.Invoice, error) {
	id := uuid.New()
	fileType := domain.AllowedContentTypes[f.ContentType]
	key := fmt.Sprintf("invoices/%s/%s.%s", batchID, id, fileType)

	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.bucket,
		Key:         key,
		Body:        bytes.NewReader(f.Data),
		ContentType: f.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading: %w", err)
	}

	inv := &domain.Invoice{
		ID:                 id,
		Status:             domain.InvoiceStatusPendingAnalysis,
		VerificationStatus: domain.VerificationStatusPending,
		ExtractionMethod:   domain.ExtractionMethodAI,
		BatchID:            &batchID,
		OriginalName:       f.Name,
		ContentType:        f.ContentType,
		S3Bucket:           s.bucket,
		S3Key:              key,
		QueueStatus:        domain.QueueStatusQueued,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		// Without its invoice row the object is orphaned.
		if delErr := s.storage.Delete(ctx, s.bucket, key); delErr != nil {
			log.Errorf("submitService: removing orphaned object %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("creating invoice: %w", err)
	}
	return inv, nil
}
