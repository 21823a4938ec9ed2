package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T) (*TurnPipeline, *BeliefGraph) {
	t.Helper()
	logger := zap.NewNop()
	g := NewBeliefGraph(logger)
	g.SeedCoreBeliefs()
	pa := newTestAggregator(t)
	p := NewTurnPipeline(g, NewPerspectiveStrengthener(logger), NewInsightScorer(logger), pa, newTestMonitor(), logger)
	return p, g
}

func TestTurnPipeline_Plan_DoesNotMutateGraph(t *testing.T) {
	p, g := newTestPipeline(t)
	before := g.Export()
	version := g.Version()

	entry := candorEntry()
	result, err := p.Plan(context.Background(), entry, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, before, g.Export())
	assert.Equal(t, version, g.Version())

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "Radical Candor", result.Candidates[0].Stance)
	require.NotEmpty(t, result.Deltas)
	assert.Equal(t, domain.DeltaCreate, result.Deltas[0].Kind)
	assert.Equal(t, 6, result.Deltas[0].Node.Weight)
	assert.Nil(t, result.Applied)

	// The caller's entry is left alone.
	assert.Nil(t, entry.ProfoundInsights)
	for _, st := range entry.ReasoningSteps {
		assert.Nil(t, st.UserFlagged)
	}
}

func TestTurnPipeline_Plan_LeavesPatternsAlone(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.patterns.Aggregate([]domain.MemoryRecord{
		memoryRecord("User values honesty"),
		memoryRecord("user values honesty"),
	})
	before := p.patterns.Report()
	require.Len(t, before.Identified, 1)

	_, err := p.Plan(context.Background(), candorEntry(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, before, p.patterns.Report())
}

func TestTurnPipeline_Plan_ScoresBeforeMarking(t *testing.T) {
	p, _ := newTestPipeline(t)
	entry := integrationEntry()
	entry.ID = uuid.New()

	result, err := p.Plan(context.Background(), entry, nil, nil)
	require.NoError(t, err)

	require.Len(t, result.Scores, 2)
	assert.InDelta(t, 0.73, result.Scores[1].Breakdown.Score, 1e-9)
	assert.False(t, result.Scores[1].Breakdown.UserFlagged)
	require.Len(t, result.Entry.ProfoundInsights, 1)
	assert.True(t, result.Entry.ReasoningSteps[2].Flagged())
}

func TestTurnPipeline_Run_AppliesDeltas(t *testing.T) {
	p, g := newTestPipeline(t)

	result, err := p.Run(context.Background(), candorEntry(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len())
	found := g.FindByStance("Radical Candor")
	require.Len(t, found, 1)
	created := found[0]
	assert.False(t, created.IsCore)
	assert.Equal(t, 6, created.Weight)
	assert.Equal(t, created.ID, result.Applied[0].ID)

	// The new belief is tied to every belief the perspectives leaned on.
	for _, persp := range result.Entry.Perspectives {
		for _, id := range persp.LinkedBeliefIDs {
			assert.True(t, created.IsConnectedTo(id))
			linked, err := g.Get(id)
			require.NoError(t, err)
			assert.True(t, linked.IsConnectedTo(created.ID))
		}
	}
}

func TestTurnPipeline_Run_StrengthensRestatedBeliefs(t *testing.T) {
	p, g := newTestPipeline(t)
	honesty, err := g.Create("User values honesty", domain.DomainEthics, "", 5, false)
	require.NoError(t, err)

	memories := []domain.MemoryRecord{
		memoryRecord("User values honesty"),
		memoryRecord("user values honesty"),
	}
	entry := &domain.LogicEntry{
		ID:             uuid.New(),
		UserQuery:      "Anything else?",
		ReasoningSteps: []domain.ReasoningStep{insightStep("nothing stands out")},
		FinalResponse:  "No.",
	}

	result, err := p.Run(context.Background(), entry, nil, memories)
	require.NoError(t, err)
	require.Len(t, result.Patterns.Identified, 1)
	require.Len(t, result.Deltas, 1)
	assert.Equal(t, domain.DeltaStrengthen, result.Deltas[0].Kind)

	got, err := g.Get(honesty.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Weight)
	require.Len(t, got.RevisionHistory, 1)
	assert.Contains(t, got.RevisionHistory[0].Reason, "user values honesty")
}

func TestTurnPipeline_Run_CancelledContext(t *testing.T) {
	p, g := newTestPipeline(t)
	before := g.Export()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, candorEntry(), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, g.Export())
}

func TestTurnPipeline_BuildDeltas(t *testing.T) {
	p, _ := newTestPipeline(t)
	a, b := uuid.New(), uuid.New()
	entry := &domain.LogicEntry{
		Perspectives: []domain.CongressPerspective{
			{LinkedBeliefIDs: []uuid.UUID{a, b}},
			{LinkedBeliefIDs: []uuid.UUID{b}},
		},
	}
	beliefs := []domain.BeliefNode{
		{ID: a, Stance: "Prefers examples"},
		{ID: b, Stance: "Something else"},
	}
	identified := []domain.PatternAnalysis{
		{Pattern: "prefers examples", Frequency: 3},
		{Pattern: "examples", Frequency: 2},
	}
	candidates := []domain.EmergentBeliefCandidate{{Stance: "Radical Candor", Strength: 1}}

	deltas := p.BuildDeltas(entry, identified, candidates, beliefs)
	require.Len(t, deltas, 4)

	assert.Equal(t, domain.DeltaCreate, deltas[0].Kind)
	newID := deltas[0].Node.ID
	assert.Equal(t, domain.BeliefDelta{Kind: domain.DeltaConnect, BeliefID: newID, TargetID: a, Reason: deltas[1].Reason}, deltas[1])
	assert.Equal(t, b, deltas[2].TargetID)

	// Each belief is strengthened once even when several patterns restate it.
	assert.Equal(t, domain.DeltaStrengthen, deltas[3].Kind)
	assert.Equal(t, a, deltas[3].BeliefID)
}
