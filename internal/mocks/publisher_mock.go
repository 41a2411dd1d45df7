package mocks

import "github.com/stretchr/testify/mock"

// MockPublisher is a mock implementation of services.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(topic string, payload any) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}
