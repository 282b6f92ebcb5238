package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockDuplicateLinkRepo is a mock implementation of port.DuplicateLinkRepository.
type MockDuplicateLinkRepo struct {
	mock.Mock
}

func (m *MockDuplicateLinkRepo) Create(ctx context.Context, link *domain.DuplicateLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockDuplicateLinkRepo) GetByDuplicate(ctx context.Context, duplicateID uuid.UUID) (*domain.DuplicateLink, error) {
	args := m.Called(ctx, duplicateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DuplicateLink), args.Error(1)
}

func (m *MockDuplicateLinkRepo) ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]domain.DuplicateLink, error) {
	args := m.Called(ctx, originalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DuplicateLink), args.Error(1)
}
