package mocks

import "github.com/stretchr/testify/mock"

// MockSink is a mock implementation of devicelog.Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Write(deviceID, tag, content string) error {
	args := m.Called(deviceID, tag, content)
	return args.Error(0)
}
