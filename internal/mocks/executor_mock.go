package mocks

import (
	"context"

	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockExecutor is a mock implementation of services.Executor. Return accepts
// either a CommandResult or a function with the Run signature.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Run(ctx context.Context, router models.RouterProfile, device models.DeviceProfile, command string) models.CommandResult {
	args := m.Called(ctx, router, device, command)
	if fn, ok := args.Get(0).(func(context.Context, models.RouterProfile, models.DeviceProfile, string) models.CommandResult); ok {
		return fn(ctx, router, device, command)
	}
	return args.Get(0).(models.CommandResult)
}
