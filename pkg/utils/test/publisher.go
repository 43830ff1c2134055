package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/memoria/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.SummaryEmittedEvent

	// Fail causes PublishSummary to return an error.
	Fail   bool
	Closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishSummary(_ context.Context, event *eventstream.SummaryEmittedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.Fail {
		return errors.New("mock publish failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events in order.
func (m *MockPublisher) Events() []*eventstream.SummaryEmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.SummaryEmittedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	m.Closed = true
	return nil
}
