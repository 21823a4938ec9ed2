package store

import (
	"context"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

func (s *BeliefStore) List(ctx context.Context) ([]domain.BeliefRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, stance, domain, weight, reasoning, revision_history, is_core, connections, created_at, updated_at
		 FROM beliefs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BeliefRecord
	for rows.Next() {
		var r domain.BeliefRecord
		if err := rows.Scan(&r.ID, &r.Stance, &r.Domain, &r.Weight, &r.Reasoning, &r.RevisionHistory, &r.IsCore, &r.Connections, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceAll swaps the stored belief set in one transaction.
func (s *BeliefStore) ReplaceAll(ctx context.Context, records []domain.BeliefRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM beliefs`); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO beliefs (id, stance, domain, weight, reasoning, revision_history, is_core, connections, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r.ID, r.Stance, r.Domain, r.Weight, r.Reasoning, nonNilRevisions(r.RevisionHistory), r.IsCore, nonNilIDs(r.Connections), r.CreatedAt, r.UpdatedAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
