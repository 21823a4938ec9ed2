package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LogicEntryStore struct {
	db *pgxpool.Pool
}

func NewLogicEntryStore(db *pgxpool.Pool) *LogicEntryStore {
	return &LogicEntryStore{db: db}
}

const logicEntryColumns = `id, user_query, perspectives, reasoning_steps, candidate_responses, final_response, profound_insights, created_at`

func (s *LogicEntryStore) Create(ctx context.Context, e *domain.LogicEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO logic_entries (id, user_query, perspectives, reasoning_steps, candidate_responses, final_response, profound_insights, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		 RETURNING created_at`,
		e.ID, e.UserQuery, nonNilPerspectives(e.Perspectives), nonNilSteps(e.ReasoningSteps), nonNilCandidates(e.CandidateResponses),
		e.FinalResponse, nonNilSteps(e.ProfoundInsights), nullableTime(e.Timestamp),
	).Scan(&e.Timestamp)
}

func (s *LogicEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.LogicEntry, error) {
	e, err := scanLogicEntry(s.db.QueryRow(ctx,
		`SELECT `+logicEntryColumns+` FROM logic_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *LogicEntryStore) Update(ctx context.Context, e *domain.LogicEntry) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE logic_entries
		 SET user_query = $2, perspectives = $3, reasoning_steps = $4, candidate_responses = $5,
		     final_response = $6, profound_insights = $7
		 WHERE id = $1`,
		e.ID, e.UserQuery, nonNilPerspectives(e.Perspectives), nonNilSteps(e.ReasoningSteps), nonNilCandidates(e.CandidateResponses),
		e.FinalResponse, nonNilSteps(e.ProfoundInsights),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (s *LogicEntryStore) ListRecent(ctx context.Context, limit int) ([]domain.LogicEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+logicEntryColumns+` FROM logic_entries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LogicEntry
	for rows.Next() {
		e, err := scanLogicEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanLogicEntry(row pgx.Row) (*domain.LogicEntry, error) {
	e := &domain.LogicEntry{}
	err := row.Scan(&e.ID, &e.UserQuery, &e.Perspectives, &e.ReasoningSteps, &e.CandidateResponses, &e.FinalResponse, &e.ProfoundInsights, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	return e, nil
}
