package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/papercomputeco/memoria/pkg/summarizer"
)

// SummarizeCall records one Summarize invocation.
type SummarizeCall struct {
	Excerpts []string
	Kind     summarizer.Kind
}

// MockSummarizer returns "<kind>: <excerpts joined by |>" and records calls.
type MockSummarizer struct {
	mu    sync.Mutex
	calls []SummarizeCall

	// Fail causes Summarize to return ErrUnavailable.
	Fail bool

	// Gate, when set, holds every call after it is recorded until the
	// channel is closed or the context ends.
	Gate chan struct{}
}

func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

func (m *MockSummarizer) Summarize(ctx context.Context, excerpts []string, kind summarizer.Kind) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, SummarizeCall{Excerpts: append([]string(nil), excerpts...), Kind: kind})
	fail, gate := m.Fail, m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", summarizer.ErrUnavailable, ctx.Err())
		}
	}
	if fail {
		return "", fmt.Errorf("%w: mock failure", summarizer.ErrUnavailable)
	}
	return string(kind) + ": " + strings.Join(excerpts, " | "), nil
}

// SetFail toggles failure under the mock's lock.
func (m *MockSummarizer) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = fail
}

// Calls returns the recorded calls.
func (m *MockSummarizer) Calls() []SummarizeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SummarizeCall(nil), m.calls...)
}

// CallsOf returns the number of calls for kind.
func (m *MockSummarizer) CallsOf(kind summarizer.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}
