package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockFindingRepo is a mock implementation of port.FindingRepository.
type MockFindingRepo struct {
	mock.Mock
}

func (m *MockFindingRepo) ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, findings []domain.ComplianceFinding) error {
	args := m.Called(ctx, invoiceID, findings)
	return args.Error(0)
}

func (m *MockFindingRepo) Create(ctx context.Context, finding *domain.ComplianceFinding) error {
	args := m.Called(ctx, finding)
	return args.Error(0)
}

func (m *MockFindingRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.ComplianceFinding, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceFinding), args.Error(1)
}
