package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/config"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
	"ledgerlens/mocks"
)

type submitFixture struct {
	invoices *mocks.MockInvoiceRepo
	batches  *mocks.MockBatchRepo
	storage  *mocks.MockObjectStorage
	svc      *SubmitService
}

func newSubmitFixture() *submitFixture {
	f := &submitFixture{
		invoices: new(mocks.MockInvoiceRepo),
		batches:  new(mocks.MockBatchRepo),
		storage:  new(mocks.MockObjectStorage),
	}
	f.svc = NewSubmitService(f.invoices, f.batches, f.storage, "invoices-bucket", config.UploadConfig{
		MaxFileSizeMB: 1,
		MaxBatchFiles: 3,
	})
	return f
}

func pdfFile(name string) UploadFile {
	return UploadFile{Name: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
}

func TestSubmitService_Submit_RejectsUnsupportedType(t *testing.T) {
	f := newSubmitFixture()

	_, _, err := f.svc.Submit(context.Background(), []UploadFile{
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")},
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	f.batches.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitService_Submit_RejectsOversizedFile(t *testing.T) {
	f := newSubmitFixture()

	big := UploadFile{
		Name:        "huge.pdf",
		ContentType: "application/pdf",
		Data:        make([]byte, 2*1024*1024),
	}
	_, _, err := f.svc.Submit(context.Background(), []UploadFile{pdfFile("ok.pdf"), big})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestSubmitService_Submit_RejectsTooManyFiles(t *testing.T) {
	f := newSubmitFixture()

	files := []UploadFile{pdfFile("1.pdf"), pdfFile("2.pdf"), pdfFile("3.pdf"), pdfFile("4.pdf")}
	_, _, err := f.svc.Submit(context.Background(), files)
	assert.ErrorIs(t, err, domain.ErrTooManyFiles)
}

func TestSubmitService_Submit_RejectsEmptyRequest(t *testing.T) {
	f := newSubmitFixture()

	_, _, err := f.svc.Submit(context.Background(), nil)
	assert.Error(t, err)
}

func TestSubmitService_Submit_CreatesBatchAndQueuedInvoices(t *testing.T) {
	f := newSubmitFixture()

	f.batches.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Batch) bool {
		return b.TotalCount == 2
	})).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "invoices-bucket" &&
			strings.HasPrefix(in.Key, "invoices/") &&
			strings.HasSuffix(in.Key, ".pdf")
	})).Return(&port.UploadOutput{Location: "s3://invoices-bucket/key"}, nil)
	f.invoices.On("Create", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.Status == domain.InvoiceStatusPendingAnalysis &&
			inv.QueueStatus == domain.QueueStatusQueued &&
			inv.ExtractionMethod == domain.ExtractionMethodAI &&
			inv.BatchID != nil
	})).Return(nil)

	batch, invoices, err := f.svc.Submit(context.Background(), []UploadFile{
		pdfFile("march.pdf"), pdfFile("april.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.TotalCount)
	require.Len(t, invoices, 2)
	assert.Equal(t, "march.pdf", invoices[0].OriginalName)
	f.storage.AssertNumberOfCalls(t, "Upload", 2)
}

func TestSubmitService_Submit_CountsStorageFailuresAgainstBatch(t *testing.T) {
	f := newSubmitFixture()

	f.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()
	f.storage.On("Upload", mock.Anything, mock.Anything).
		Return(&port.UploadOutput{}, nil).Once()
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.batches.On("RecordResult", mock.Anything, mock.Anything, true).
		Return(&domain.Batch{Status: domain.BatchStatusProcessing}, nil).Once()

	batch, invoices, err := f.svc.Submit(context.Background(), []UploadFile{
		pdfFile("bad.pdf"), pdfFile("good.pdf"),
	})
	require.NoError(t, err)
	assert.NotNil(t, batch)
	require.Len(t, invoices, 1)
	assert.Equal(t, "good.pdf", invoices[0].OriginalName)
	f.batches.AssertExpectations(t)
}

func TestSubmitService_Submit_RemovesOrphanedObjectWhenCreateFails(t *testing.T) {
	f := newSubmitFixture()

	var uploadedKey string
	f.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		uploadedKey = in.Key
		return true
	})).Return(&port.UploadOutput{}, nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)
	f.storage.On("Delete", mock.Anything, "invoices-bucket", mock.MatchedBy(func(key string) bool {
		return key == uploadedKey
	})).Return(nil)
	f.batches.On("RecordResult", mock.Anything, mock.Anything, true).
		Return(&domain.Batch{Status: domain.BatchStatusPartialFailure}, nil)

	_, _, err := f.svc.Submit(context.Background(), []UploadFile{pdfFile("only.pdf")})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	f.storage.AssertCalled(t, "Delete", mock.Anything, "invoices-bucket", mock.Anything)
}

func TestSubmitService_Submit_AllFilesFailing(t *testing.T) {
	f := newSubmitFixture()

	f.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.batches.On("RecordResult", mock.Anything, mock.Anything, true).
		Return(&domain.Batch{Status: domain.BatchStatusPartialFailure}, nil)

	batch, _, err := f.svc.Submit(context.Background(), []UploadFile{pdfFile("only.pdf")})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	assert.NotNil(t, batch)
}
