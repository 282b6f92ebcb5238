package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockInvoiceRepo is a mock implementation of port.InvoiceRepository.
type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Invoice, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) FindOriginal(ctx context.Context, vendorTaxID, documentNumber string, exclude uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, vendorTaxID, documentNumber, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) SetVerificationByVendor(ctx context.Context, vendorTaxID string, status domain.VerificationStatus) (int64, error) {
	args := m.Called(ctx, vendorTaxID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepo) MarkQueued(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Invoice, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) Requeue(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error {
	args := m.Called(ctx, id, nextAttemptAt)
	return args.Error(0)
}

func (m *MockInvoiceRepo) FinishQueue(ctx context.Context, id uuid.UUID, status domain.QueueStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
