package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type turnFixture struct {
	svc      *TurnService
	graph    *BeliefGraph
	logic    *mockLogicEntryStore
	memories *mockMemoryRecordStore
	patterns *PatternAggregator
}

func newTurnFixture(t *testing.T) *turnFixture {
	t.Helper()
	logger := zap.NewNop()
	g := NewBeliefGraph(logger)
	g.SeedCoreBeliefs()
	scorer := NewInsightScorer(logger)
	patterns := newTestAggregator(t)
	emergence := newTestMonitor()
	pipeline := NewTurnPipeline(g, NewPerspectiveStrengthener(logger), scorer, patterns, emergence, logger)

	f := &turnFixture{
		graph:    g,
		logic:    newMockLogicEntryStore(),
		memories: &mockMemoryRecordStore{},
		patterns: patterns,
	}
	f.svc = NewTurnService(pipeline, scorer, patterns, emergence, g, f.logic, f.memories, logger)
	return f
}

func TestTurnService_Process(t *testing.T) {
	f := newTurnFixture(t)
	entry := candorEntry()
	entry.ID = uuid.Nil

	result, err := f.svc.Process(context.Background(), entry, false)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.Entry.ID)
	assert.Equal(t, 4, f.graph.Len())
	assert.NotEmpty(t, result.Applied)

	stored, err := f.svc.GetEntry(context.Background(), result.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Entry.ProfoundInsights, stored.ProfoundInsights)
	assert.False(t, stored.Timestamp.IsZero())
}

func TestTurnService_Process_DryRun(t *testing.T) {
	f := newTurnFixture(t)
	version := f.graph.Version()

	result, err := f.svc.Process(context.Background(), candorEntry(), true)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Deltas)
	assert.Nil(t, result.Applied)
	assert.Equal(t, version, f.graph.Version())
	assert.Empty(t, f.logic.entries)
}

func TestTurnService_Process_DryRunKeepsPatterns(t *testing.T) {
	f := newTurnFixture(t)
	ctx := context.Background()
	for _, text := range []string{"Prefers examples", "prefers examples"} {
		require.NoError(t, f.svc.CreateMemory(ctx, &domain.MemoryRecord{
			HumanInsights: []domain.MemoryInsight{{Content: text, Category: domain.CategoryUserValue}},
		}))
	}
	before, err := f.svc.RefreshPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, before.Identified, 1)

	_, err = f.svc.Process(ctx, candorEntry(), true)
	require.NoError(t, err)

	assert.Equal(t, before, f.patterns.Report())
}

func TestTurnService_Process_StoreFailureLeavesGraph(t *testing.T) {
	f := newTurnFixture(t)
	f.logic.createErr = errors.New("db down")
	version := f.graph.Version()

	_, err := f.svc.Process(context.Background(), candorEntry(), false)
	require.EqualError(t, err, "db down")

	assert.Equal(t, version, f.graph.Version())
	assert.Equal(t, 3, f.graph.Len())
	assert.Empty(t, f.logic.entries)
}

func TestTurnService_Process_UsesHistory(t *testing.T) {
	f := newTurnFixture(t)
	ctx := context.Background()

	first := integrationEntry()
	_, err := f.svc.Process(ctx, first, false)
	require.NoError(t, err)

	second := integrationEntry()
	result, err := f.svc.Process(ctx, second, false)
	require.NoError(t, err)

	require.Len(t, result.Scores, 2)
	// "Cats sleep often" was already said in the first deliberation.
	assert.Less(t, result.Scores[0].Breakdown.Novelty, DefaultNovelty)
}

func TestTurnService_Process_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *domain.LogicEntry)
		wantErr error
	}{
		{"empty query", func(e *domain.LogicEntry) { e.UserQuery = "  " }, ErrUserQueryEmpty},
		{"open deliberation", func(e *domain.LogicEntry) { e.FinalResponse = "" }, ErrDeliberationOpen},
		{"unknown role", func(e *domain.LogicEntry) { e.Perspectives[0].Role = "jester" }, ErrInvalidDeliberation},
		{"strength too low", func(e *domain.LogicEntry) { e.Perspectives[0].StrengthOfArgument = 0.5 }, ErrInvalidDeliberation},
		{"strength too high", func(e *domain.LogicEntry) { e.Perspectives[1].StrengthOfArgument = 11 }, ErrInvalidDeliberation},
		{"unknown step type", func(e *domain.LogicEntry) { e.ReasoningSteps[0].Type = "musing" }, ErrInvalidDeliberation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTurnFixture(t)
			entry := candorEntry()
			tt.mutate(entry)

			_, err := f.svc.Process(context.Background(), entry, false)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 3, f.graph.Len())
			assert.Empty(t, f.logic.entries)
		})
	}
}

func TestTurnService_Score(t *testing.T) {
	f := newTurnFixture(t)

	report, err := f.svc.Score(context.Background(), integrationEntry())
	require.NoError(t, err)

	assert.InDelta(t, 0.73, report.Threshold, 1e-9)
	require.Len(t, report.Scores, 2)
	assert.InDelta(t, 0.73, report.Scores[1].Breakdown.Score, 1e-9)
	require.Len(t, report.Entry.ProfoundInsights, 1)
	assert.Equal(t, 3, f.graph.Len())
}

func TestTurnService_FlagStep(t *testing.T) {
	f := newTurnFixture(t)
	ctx := context.Background()

	result, err := f.svc.Process(ctx, integrationEntry(), false)
	require.NoError(t, err)
	id := result.Entry.ID

	report, err := f.svc.FlagStep(ctx, id, 1, true)
	require.NoError(t, err)
	require.Len(t, report.Entry.ProfoundInsights, 2)

	stored, err := f.svc.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.ReasoningSteps[1].Flagged())
	assert.Len(t, stored.ProfoundInsights, 2)

	_, err = f.svc.FlagStep(ctx, id, 0, true)
	assert.ErrorIs(t, err, ErrStepNotInsight)

	_, err = f.svc.FlagStep(ctx, id, 3, true)
	assert.ErrorIs(t, err, ErrStepOutOfRange)

	_, err = f.svc.FlagStep(ctx, id, -1, true)
	assert.ErrorIs(t, err, ErrStepOutOfRange)

	_, err = f.svc.FlagStep(ctx, uuid.New(), 1, true)
	assert.ErrorIs(t, err, ErrLogicEntryNotFound)
}

func TestTurnService_ScanEmergence(t *testing.T) {
	f := newTurnFixture(t)

	candidates, err := f.svc.ScanEmergence(context.Background(), candorEntry())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 3, f.graph.Len())

	open := candorEntry()
	open.FinalResponse = ""
	_, err = f.svc.ScanEmergence(context.Background(), open)
	assert.ErrorIs(t, err, ErrDeliberationOpen)
}

func TestTurnService_CreateMemory(t *testing.T) {
	f := newTurnFixture(t)
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.CreateMemory(ctx, &domain.MemoryRecord{}), ErrMemoryRecordEmpty)
	})

	t.Run("blank insight", func(t *testing.T) {
		err := f.svc.CreateMemory(ctx, &domain.MemoryRecord{HumanInsights: []domain.MemoryInsight{insight(" ")}})
		assert.ErrorIs(t, err, ErrInvalidInsight)
	})

	t.Run("unknown category", func(t *testing.T) {
		err := f.svc.CreateMemory(ctx, &domain.MemoryRecord{SelfInsights: []domain.MemoryInsight{
			{Content: "Too wordy", Category: "vibes"},
		}})
		assert.ErrorIs(t, err, ErrInvalidInsight)
	})

	t.Run("unknown logic entry", func(t *testing.T) {
		missing := uuid.New()
		err := f.svc.CreateMemory(ctx, &domain.MemoryRecord{
			LogicEntryID:  &missing,
			HumanInsights: []domain.MemoryInsight{insight("Likes brevity")},
		})
		assert.ErrorIs(t, err, ErrLogicEntryNotFound)
	})

	t.Run("stored", func(t *testing.T) {
		m := &domain.MemoryRecord{HumanInsights: []domain.MemoryInsight{
			{Content: "Likes brevity", Category: domain.CategoryUserValue, Source: domain.InsightSourceUser},
		}}
		require.NoError(t, f.svc.CreateMemory(ctx, m))
		assert.NotEqual(t, uuid.Nil, m.ID)

		got, err := f.svc.GetMemory(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Likes brevity", got.HumanInsights[0].Content)
	})

	_, err := f.svc.GetMemory(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMemoryRecordNotFound)
}

func TestTurnService_ListMemoriesAndRefreshPatterns(t *testing.T) {
	f := newTurnFixture(t)
	ctx := context.Background()

	for _, text := range []string{"Prefers examples", "prefers examples", "Asks why"} {
		require.NoError(t, f.svc.CreateMemory(ctx, &domain.MemoryRecord{HumanInsights: []domain.MemoryInsight{insight(text)}}))
	}

	all, err := f.svc.ListMemories(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err := f.svc.ListMemories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "Asks why", last[0].HumanInsights[0].Content)

	report, err := f.svc.RefreshPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, report.Identified, 1)
	assert.Equal(t, "prefers examples", report.Identified[0].Pattern)
}
