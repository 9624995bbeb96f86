package mocks

import (
	"context"

	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
	"github.com/stretchr/testify/mock"
)

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Publish(t realtime.Topic, msg any) error {
	args := m.Called(t, msg)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}
