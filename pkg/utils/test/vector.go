package testutils

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/memoria/pkg/vector"
)

// MockIndex is an in-memory vector.Index that records how it was used.
type MockIndex struct {
	mu      sync.Mutex
	records map[string][]float32

	// Results, when set, is returned from Query instead of a real ranking.
	Results []vector.Match

	Queries  int
	Replaces int
	Closed   bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{records: make(map[string][]float32)}
}

// Factory returns an IndexFactory that always hands out m.
func (m *MockIndex) Factory() vector.IndexFactory {
	return func(vector.IndexSpec) (vector.Index, error) {
		return m, nil
	}
}

func (m *MockIndex) Upsert(_ context.Context, records []vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = slices.Clone(r.Vector)
	}
	return nil
}

func (m *MockIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MockIndex) Query(_ context.Context, _ []float32, topK int) ([]vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockIndex) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *MockIndex) Replace(_ context.Context, records []vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replaces++
	m.records = make(map[string][]float32, len(records))
	for _, r := range records {
		m.records[r.ID] = slices.Clone(r.Vector)
	}
	return nil
}

// Has reports whether id is stored.
func (m *MockIndex) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

func (m *MockIndex) Close() error {
	m.Closed = true
	return nil
}
