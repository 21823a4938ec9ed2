package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MemoryRecordStore struct {
	db *pgxpool.Pool
}

func NewMemoryRecordStore(db *pgxpool.Pool) *MemoryRecordStore {
	return &MemoryRecordStore{db: db}
}

func (s *MemoryRecordStore) Create(ctx context.Context, m *domain.MemoryRecord) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO memory_records (logic_entry_id, human_insights, self_insights)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		m.LogicEntryID, nonNilInsights(m.HumanInsights), nonNilInsights(m.SelfInsights),
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *MemoryRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m := &domain.MemoryRecord{}
	err := s.db.QueryRow(ctx,
		`SELECT id, logic_entry_id, human_insights, self_insights, created_at
		 FROM memory_records WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.LogicEntryID, &m.HumanInsights, &m.SelfInsights, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List returns the most recent records in chronological order.
func (s *MemoryRecordStore) List(ctx context.Context, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, logic_entry_id, human_insights, self_insights, created_at FROM (
		     SELECT id, logic_entry_id, human_insights, self_insights, created_at
		     FROM memory_records ORDER BY created_at DESC LIMIT $1
		 ) recent ORDER BY created_at ASC`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MemoryRecord
	for rows.Next() {
		var m domain.MemoryRecord
		if err := rows.Scan(&m.ID, &m.LogicEntryID, &m.HumanInsights, &m.SelfInsights, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
