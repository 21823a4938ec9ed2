package domain

import (
	"context"

	"github.com/google/uuid"
)

type BeliefStore interface {
	List(ctx context.Context) ([]BeliefRecord, error)
	// ReplaceAll swaps the persisted belief set for records in one transaction.
	ReplaceAll(ctx context.Context, records []BeliefRecord) error
}

// MemoryReader is the read-only view of the external memory system used by analysis.
type MemoryReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*MemoryRecord, error)
	List(ctx context.Context, limit int) ([]MemoryRecord, error)
}

type MemoryRecordStore interface {
	MemoryReader
	Create(ctx context.Context, m *MemoryRecord) error
}

type LogicEntryStore interface {
	Create(ctx context.Context, e *LogicEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*LogicEntry, error)
	Update(ctx context.Context, e *LogicEntry) error
	ListRecent(ctx context.Context, limit int) ([]LogicEntry, error)
}
