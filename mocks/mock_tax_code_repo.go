package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockTaxCodeRepo is a mock implementation of port.TaxCodeRepository.
type MockTaxCodeRepo struct {
	mock.Mock
}

func (m *MockTaxCodeRepo) LoadAll(ctx context.Context) ([]domain.TaxCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TaxCode), args.Error(1)
}
