package store

import (
	"time"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
)

// The nonNil helpers keep jsonb columns as '[]' rather than 'null'.

func nonNilRevisions(v []domain.Revision) []domain.Revision {
	if v == nil {
		return []domain.Revision{}
	}
	return v
}

func nonNilIDs(v []uuid.UUID) []uuid.UUID {
	if v == nil {
		return []uuid.UUID{}
	}
	return v
}

func nonNilInsights(v []domain.MemoryInsight) []domain.MemoryInsight {
	if v == nil {
		return []domain.MemoryInsight{}
	}
	return v
}

func nonNilPerspectives(v []domain.CongressPerspective) []domain.CongressPerspective {
	if v == nil {
		return []domain.CongressPerspective{}
	}
	return v
}

func nonNilSteps(v []domain.ReasoningStep) []domain.ReasoningStep {
	if v == nil {
		return []domain.ReasoningStep{}
	}
	return v
}

func nonNilCandidates(v []domain.CandidateResponse) []domain.CandidateResponse {
	if v == nil {
		return []domain.CandidateResponse{}
	}
	return v
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
