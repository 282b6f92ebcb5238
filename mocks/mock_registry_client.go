package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ledgerlens/internal/port"
)

// MockRegistryClient is a mock implementation of port.RegistryClient.
type MockRegistryClient struct {
	mock.Mock
}

func (m *MockRegistryClient) GetChallenge(ctx context.Context) (*port.RegistryChallenge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RegistryChallenge), args.Error(1)
}

func (m *MockRegistryClient) SubmitAnswer(ctx context.Context, sessionID, taxID, answer string) (*port.RegistryPayload, error) {
	args := m.Called(ctx, sessionID, taxID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RegistryPayload), args.Error(1)
}
