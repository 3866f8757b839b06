package mocks

import (
	"context"

	"github.com/cradoe/puddle/internal/chain"
	"github.com/stretchr/testify/mock"
)

type MockChain struct {
	mock.Mock
}

func (m *MockChain) DeployPiggyBank(ctx context.Context, req chain.DeployRequest) (*chain.Deployment, error) {
	args := m.Called(ctx, req)
	deployment, _ := args.Get(0).(*chain.Deployment)
	return deployment, args.Error(1)
}

func (m *MockChain) DeploymentAddress(ctx context.Context, txHash string) (string, error) {
	args := m.Called(ctx, txHash)
	return args.String(0), args.Error(1)
}

func (m *MockChain) ReceiptStatus(ctx context.Context, txHash string) (chain.ReceiptStatus, error) {
	args := m.Called(ctx, txHash)
	return args.Get(0).(chain.ReceiptStatus), args.Error(1)
}
