package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/store"
	"github.com/google/uuid"
)

// mockBeliefStore implements domain.BeliefStore for testing.
type mockBeliefStore struct {
	mu       sync.Mutex
	records  []domain.BeliefRecord
	replaces int
	listErr  error
	writeErr error
}

func (m *mockBeliefStore) List(ctx context.Context) ([]domain.BeliefRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.BeliefRecord(nil), m.records...), nil
}

func (m *mockBeliefStore) ReplaceAll(ctx context.Context, records []domain.BeliefRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records = append([]domain.BeliefRecord(nil), records...)
	m.replaces++
	return nil
}

func (m *mockBeliefStore) replaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

// mockLogicEntryStore implements domain.LogicEntryStore for testing.
type mockLogicEntryStore struct {
	entries   map[uuid.UUID]domain.LogicEntry
	clock     time.Time
	createErr error
}

func newMockLogicEntryStore() *mockLogicEntryStore {
	return &mockLogicEntryStore{
		entries: make(map[uuid.UUID]domain.LogicEntry),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockLogicEntryStore) Create(ctx context.Context, e *domain.LogicEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if _, ok := m.entries[e.ID]; ok {
		return errors.New("duplicate key")
	}
	if e.Timestamp.IsZero() {
		m.clock = m.clock.Add(time.Minute)
		e.Timestamp = m.clock
	}
	m.entries[e.ID] = e.Clone()
	return nil
}

func (m *mockLogicEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.LogicEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := e.Clone()
	return &c, nil
}

func (m *mockLogicEntryStore) Update(ctx context.Context, e *domain.LogicEntry) error {
	if _, ok := m.entries[e.ID]; !ok {
		return store.ErrNotFound
	}
	m.entries[e.ID] = e.Clone()
	return nil
}

func (m *mockLogicEntryStore) ListRecent(ctx context.Context, limit int) ([]domain.LogicEntry, error) {
	out := make([]domain.LogicEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockMemoryRecordStore implements domain.MemoryRecordStore for testing.
type mockMemoryRecordStore struct {
	records []domain.MemoryRecord
}

func (m *mockMemoryRecordStore) Create(ctx context.Context, r *domain.MemoryRecord) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.records = append(m.records, *r)
	return nil
}

func (m *mockMemoryRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockMemoryRecordStore) List(ctx context.Context, limit int) ([]domain.MemoryRecord, error) {
	out := m.records
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]domain.MemoryRecord(nil), out...), nil
}

func insight(content string) domain.MemoryInsight {
	return domain.MemoryInsight{Content: content, Source: domain.InsightSourceUser}
}

func insightStep(content string) domain.ReasoningStep {
	return domain.ReasoningStep{Type: domain.StepInsight, Content: content}
}
