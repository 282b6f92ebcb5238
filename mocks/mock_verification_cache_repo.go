package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockVerificationCacheRepo is a mock implementation of port.VerificationCacheRepository.
type MockVerificationCacheRepo struct {
	mock.Mock
}

func (m *MockVerificationCacheRepo) Lookup(ctx context.Context, taxID string) (*domain.CacheEntry, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Error(1)
}

func (m *MockVerificationCacheRepo) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockVerificationCacheRepo) List(ctx context.Context, search string) ([]domain.CacheEntry, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CacheEntry), args.Error(1)
}
