package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockHealthScoreRepo is a mock implementation of port.HealthScoreRepository.
type MockHealthScoreRepo struct {
	mock.Mock
}

func (m *MockHealthScoreRepo) Upsert(ctx context.Context, score *domain.HealthScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockHealthScoreRepo) GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.HealthScore, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HealthScore), args.Error(1)
}
