package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/domain"
)

// MockLineItemRepo is a mock implementation of port.LineItemRepository.
type MockLineItemRepo struct {
	mock.Mock
}

func (m *MockLineItemRepo) ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, items []domain.LineItem) error {
	args := m.Called(ctx, invoiceID, items)
	return args.Error(0)
}

func (m *MockLineItemRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.LineItem, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LineItem), args.Error(1)
}

func (m *MockLineItemRepo) HistoricalUnitPrices(ctx context.Context, vendorTaxID, normalizedKey string, exclude uuid.UUID) ([]decimal.Decimal, error) {
	args := m.Called(ctx, vendorTaxID, normalizedKey, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.Decimal), args.Error(1)
}
