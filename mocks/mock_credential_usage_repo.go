package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockCredentialUsageRepo is a mock implementation of port.CredentialUsageRepository.
type MockCredentialUsageRepo struct {
	mock.Mock
}

func (m *MockCredentialUsageRepo) EnsureTracked(ctx context.Context, keyHash string) error {
	args := m.Called(ctx, keyHash)
	return args.Error(0)
}

func (m *MockCredentialUsageRepo) Statuses(ctx context.Context, keyHashes []string) ([]domain.CredentialUsage, error) {
	args := m.Called(ctx, keyHashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CredentialUsage), args.Error(1)
}

func (m *MockCredentialUsageRepo) RecordUse(ctx context.Context, keyHash string) (int64, error) {
	args := m.Called(ctx, keyHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCredentialUsageRepo) MarkExhausted(ctx context.Context, keyHash string) error {
	args := m.Called(ctx, keyHash)
	return args.Error(0)
}

func (m *MockCredentialUsageRepo) CountActive(ctx context.Context, keyHashes []string) (int, error) {
	args := m.Called(ctx, keyHashes)
	return args.Int(0), args.Error(1)
}

func (m *MockCredentialUsageRepo) ResetAll(ctx context.Context, keyHashes []string) (int64, error) {
	args := m.Called(ctx, keyHashes)
	return args.Get(0).(int64), args.Error(1)
}
