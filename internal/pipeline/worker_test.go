package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

func testWorker(f *processorFixture) *Worker {
	return NewWorker(f.invoices, f.processor, WorkerConfig{
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   3,
		Concurrency:  2,
		RetryBase:    time.Minute,
	})
}

func TestWorker_Dispatch_RequeuesTransientFailureWithBackoff(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	inv.Attempts = 2

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	before := time.Now().UTC()
	f.invoices.On("Requeue", mock.Anything, inv.ID, mock.MatchedBy(func(at time.Time) bool {
		// Second retry backs off by 2^2 minutes.
		return at.After(before.Add(3*time.Minute)) && at.Before(before.Add(5*time.Minute))
	})).Return(nil)

	testWorker(f).dispatch(context.Background(), inv)
	f.invoices.AssertExpectations(t)
	f.batches.AssertNotCalled(t, "RecordResult", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_Dispatch_AbandonsAfterRetryBudget(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	inv.Attempts = 3

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	f.invoices.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.healthScores.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("FinishQueue", mock.Anything, inv.ID, domain.QueueStatusFailed).Return(nil)
	f.batches.On("RecordResult", mock.Anything, *inv.BatchID, true).
		Return(&domain.Batch{Status: domain.BatchStatusPartialFailure}, nil)

	testWorker(f).dispatch(context.Background(), inv)

	f.invoices.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
	f.batches.AssertExpectations(t)
}

func TestWorker_Dispatch_AbandonsWhenRequeueFails(t *testing.T) {
	f := newProcessorFixture()
	inv := queuedInvoice()
	inv.Attempts = 1

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	f.invoices.On("Requeue", mock.Anything, inv.ID, mock.Anything).Return(assert.AnError)
	f.invoices.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.healthScores.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("FinishQueue", mock.Anything, inv.ID, domain.QueueStatusFailed).Return(nil)
	f.batches.On("RecordResult", mock.Anything, *inv.BatchID, true).
		Return(&domain.Batch{Status: domain.BatchStatusPartialFailure}, nil)

	testWorker(f).dispatch(context.Background(), inv)
	f.batches.AssertExpectations(t)
}

func TestWorker_StartClaimsAndShutsDownCleanly(t *testing.T) {
	f := newProcessorFixture()
	f.invoices.On("ClaimQueued", mock.Anything, 2).Return([]domain.Invoice{}, nil)

	w := testWorker(f)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not shut down")
	}
	f.invoices.AssertCalled(t, "ClaimQueued", mock.Anything, 2)
}
