package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockBatchRepo is a mock implementation of port.BatchRepository.
type MockBatchRepo struct {
	mock.Mock
}

func (m *MockBatchRepo) Create(ctx context.Context, batch *domain.Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockBatchRepo) RecordResult(ctx context.Context, batchID uuid.UUID, failed bool) (*domain.Batch, error) {
	args := m.Called(ctx, batchID, failed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}
