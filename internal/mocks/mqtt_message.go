package mocks

// MockMessage is an in-memory MQTT.Message handed to subscription handlers.
type MockMessage struct {
	topic   string
	payload []byte
}

// NewMockMessage builds a QoS 1 message delivered on topic.
func NewMockMessage(topic string, payload []byte) *MockMessage {
	return &MockMessage{topic: topic, payload: payload}
}

func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Qos() byte         { return 1 }
func (m *MockMessage) MessageID() uint16 { return 0 }
func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) Ack()              {}
