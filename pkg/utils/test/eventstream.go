package testutils

import (
	"context"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// MockPublisher is a test event publisher capturing everything published.
type MockPublisher struct {
	Events []eventstream.Event

	// PublishErr, when set, fails every Publish call
	PublishErr error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event eventstream.Event) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
