package service

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TurnResult carries every stage's output for one deliberation.
type TurnResult struct {
	Entry      domain.LogicEntry                `json:"entry"`
	Scores     []ScoredStep                     `json:"scores"`
	Patterns   domain.PatternReport             `json:"patterns"`
	Candidates []domain.EmergentBeliefCandidate `json:"candidates"`
	Deltas     []domain.BeliefDelta             `json:"deltas"`
	Applied    []domain.BeliefNode              `json:"applied"`
}

// TurnPipeline runs the feedback loop for a finished deliberation:
// link+strengthen → score insights → aggregate patterns → scan emergence → apply deltas.
// Each stage consumes the previous stage's value; only the last stage mutates the graph.
type TurnPipeline struct {
	graph        *BeliefGraph
	strengthener *PerspectiveStrengthener
	scorer       *InsightScorer
	patterns     *PatternAggregator
	emergence    *EmergenceMonitor
	stances      StanceMatcher
	logger       *zap.Logger
}

func NewTurnPipeline(g *BeliefGraph, ps *PerspectiveStrengthener, is *InsightScorer, pa *PatternAggregator, em *EmergenceMonitor, logger *zap.Logger) *TurnPipeline {
	return &TurnPipeline{
		graph:        g,
		strengthener: ps,
		scorer:       is,
		patterns:     pa,
		emergence:    em,
		stances:      SubstringStanceMatcher{},
		logger:       logger,
	}
}

func (p *TurnPipeline) SetStanceMatcher(m StanceMatcher) {
	p.stances = m
}

// Plan runs every stage except applying deltas. Neither the graph nor the pattern
// aggregator change.
func (p *TurnPipeline) Plan(ctx context.Context, entry *domain.LogicEntry, prior []domain.LogicEntry, memories []domain.MemoryRecord) (*TurnResult, error) {
	working := entry.Clone()

	for i, persp := range working.Perspectives {
		working.Perspectives[i] = p.strengthener.LinkAndStrengthen(persp, p.graph)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := p.scorer.MarkProfound(&working, prior)
	result := &TurnResult{
		Entry:  scored,
		Scores: p.scorer.ScoreAll(&working, prior),
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Patterns = p.patterns.Preview(memories)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	beliefs := p.graph.All()
	result.Candidates = p.emergence.Scan(&result.Entry, beliefs, memories)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Deltas = p.BuildDeltas(&result.Entry, result.Patterns.Identified, result.Candidates, beliefs)
	return result, nil
}

// Run plans the turn and applies it. A cancelled context stops the turn before anything
// touches the graph.
func (p *TurnPipeline) Run(ctx context.Context, entry *domain.LogicEntry, prior []domain.LogicEntry, memories []domain.MemoryRecord) (*TurnResult, error) {
	result, err := p.Plan(ctx, entry, prior, memories)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(ctx, result, memories); err != nil {
		return nil, err
	}
	return result, nil
}

// Apply commits a planned turn: its deltas go into the graph as one batch and the
// pattern split is stored.
func (p *TurnPipeline) Apply(ctx context.Context, result *TurnResult, memories []domain.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	applied, err := p.graph.ApplyDeltas(result.Deltas)
	if err != nil {
		return fmt.Errorf("apply belief deltas: %w", err)
	}
	result.Applied = applied
	result.Patterns = p.patterns.Aggregate(memories)

	p.logger.Info("turn processed",
		zap.String("logic_id", result.Entry.ID.String()),
		zap.Int("profound_insights", len(result.Entry.ProfoundInsights)),
		zap.Int("identified_patterns", len(result.Patterns.Identified)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("beliefs_touched", len(applied)))
	return nil
}

// BuildDeltas turns analysis output into belief changes: each candidate becomes a learned
// belief connected to the beliefs the deliberation leaned on, and each identified pattern
// that restates an existing stance strengthens that belief once.
func (p *TurnPipeline) BuildDeltas(entry *domain.LogicEntry, identified []domain.PatternAnalysis, candidates []domain.EmergentBeliefCandidate, beliefs []domain.BeliefNode) []domain.BeliefDelta {
	var deltas []domain.BeliefDelta

	var linked []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, persp := range entry.Perspectives {
		for _, id := range persp.LinkedBeliefIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			linked = append(linked, id)
		}
	}

	for _, c := range candidates {
		node := ToBeliefNode(c)
		deltas = append(deltas, domain.BeliefDelta{
			Kind:   domain.DeltaCreate,
			Node:   &node,
			Reason: c.ReasonToCreate,
		})
		for _, id := range linked {
			deltas = append(deltas, domain.BeliefDelta{
				Kind:     domain.DeltaConnect,
				BeliefID: node.ID,
				TargetID: id,
				Reason:   "emerged during a deliberation that relied on this belief",
			})
		}
	}

	strengthened := make(map[uuid.UUID]struct{})
	for _, pat := range identified {
		for _, b := range beliefs {
			if _, done := strengthened[b.ID]; done {
				continue
			}
			if !p.stances.Matches(b.Stance, pat.Pattern) {
				continue
			}
			strengthened[b.ID] = struct{}{}
			deltas = append(deltas, domain.BeliefDelta{
				Kind:     domain.DeltaStrengthen,
				BeliefID: b.ID,
				Reason:   fmt.Sprintf("recurring pattern %q (frequency %d)", pat.Pattern, pat.Frequency),
			})
		}
	}
	return deltas
}
