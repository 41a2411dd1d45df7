package mocks

import (
	"context"

	"github.com/benmeehan/olt-gateway/pkg/remote"
	"github.com/stretchr/testify/mock"
)

// MockDialer is a mock implementation of remote.Dialer
type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) Dial(ctx context.Context, target remote.Target) (remote.Session, error) {
	args := m.Called(ctx, target)
	session, _ := args.Get(0).(remote.Session)
	return session, args.Error(1)
}

// MockSession is a mock implementation of remote.Session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Run(ctx context.Context, command string) (string, error) {
	args := m.Called(ctx, command)
	return args.String(0), args.Error(1)
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}
