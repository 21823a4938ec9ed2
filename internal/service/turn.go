package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrLogicEntryNotFound   = errors.New("deliberation record not found")
	ErrMemoryRecordNotFound = errors.New("memory record not found")
	ErrDeliberationOpen     = errors.New("deliberation has no final response yet")
	ErrUserQueryEmpty       = errors.New("user_query is required")
	ErrMemoryRecordEmpty    = errors.New("memory record needs at least one insight")
	ErrInvalidDeliberation  = errors.New("invalid deliberation record")
	ErrInvalidInsight       = errors.New("invalid memory insight")
	ErrStepNotInsight       = errors.New("only insight steps can be flagged")
	ErrStepOutOfRange       = errors.New("reasoning step index out of range")
)

const (
	DefaultHistoryLimit = 50
	DefaultMemoryLimit  = 200
)

// TurnService connects the analysis stages to the deliberation and memory stores.
type TurnService struct {
	pipeline    *TurnPipeline
	scorer      *InsightScorer
	patterns    *PatternAggregator
	emergence   *EmergenceMonitor
	graph       *BeliefGraph
	logicStore  domain.LogicEntryStore
	memoryStore domain.MemoryRecordStore
	logger      *zap.Logger

	HistoryLimit int
	MemoryLimit  int
}

func NewTurnService(p *TurnPipeline, is *InsightScorer, pa *PatternAggregator, em *EmergenceMonitor, g *BeliefGraph, ls domain.LogicEntryStore, ms domain.MemoryRecordStore, logger *zap.Logger) *TurnService {
	return &TurnService{
		pipeline:     p,
		scorer:       is,
		patterns:     pa,
		emergence:    em,
		graph:        g,
		logicStore:   ls,
		memoryStore:  ms,
		logger:       logger,
		HistoryLimit: DefaultHistoryLimit,
		MemoryLimit:  DefaultMemoryLimit,
	}
}

func validateEntry(e *domain.LogicEntry) error {
	if strings.TrimSpace(e.UserQuery) == "" {
		return ErrUserQueryEmpty
	}
	if !e.Frozen() {
		return ErrDeliberationOpen
	}
	for i, p := range e.Perspectives {
		if !domain.ValidPerspectiveRole(string(p.Role)) {
			return fmt.Errorf("%w: perspectives[%d] has role %q", ErrInvalidDeliberation, i, p.Role)
		}
		if p.StrengthOfArgument < domain.MinArgumentStrength || p.StrengthOfArgument > domain.MaxArgumentStrength {
			return fmt.Errorf("%w: perspectives[%d] strength %.2f is outside [1,10]", ErrInvalidDeliberation, i, p.StrengthOfArgument)
		}
	}
	for i, st := range e.ReasoningSteps {
		if !domain.ValidStepType(string(st.Type)) {
			return fmt.Errorf("%w: reasoning_steps[%d] has type %q", ErrInvalidDeliberation, i, st.Type)
		}
	}
	return nil
}

func validateInsights(label string, insights []domain.MemoryInsight) error {
	for i, in := range insights {
		if strings.TrimSpace(in.Content) == "" {
			return fmt.Errorf("%w: %s[%d] has no content", ErrInvalidInsight, label, i)
		}
		if in.Category != "" && !domain.ValidInsightCategory(string(in.Category)) {
			return fmt.Errorf("%w: %s[%d] has category %q", ErrInvalidInsight, label, i, in.Category)
		}
	}
	return nil
}

// Process runs the full turn for a finished deliberation and stores the scored record.
// With dryRun the deltas are planned but neither the graph nor the store change.
func (s *TurnService) Process(ctx context.Context, entry *domain.LogicEntry, dryRun bool) (*TurnResult, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	prior, err := s.priorEntries(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	memories, err := s.memoryStore.List(ctx, s.MemoryLimit)
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.Plan(ctx, entry, prior, memories)
	if err != nil || dryRun {
		return result, err
	}

	if err := s.logicStore.Create(ctx, &result.Entry); err != nil {
		s.logger.Error("failed to store scored deliberation",
			zap.String("logic_id", result.Entry.ID.String()),
			zap.Error(err))
		return nil, err
	}
	if err := s.pipeline.Apply(ctx, result, memories); err != nil {
		s.logger.Error("failed to apply turn",
			zap.String("logic_id", result.Entry.ID.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ScoreReport is a scored deliberation together with the per-step breakdown that decided it.
type ScoreReport struct {
	Entry     domain.LogicEntry `json:"entry"`
	Scores    []ScoredStep      `json:"scores"`
	Threshold float64           `json:"threshold"`
}

// Score marks profound insights on a finished deliberation without touching beliefs.
func (s *TurnService) Score(ctx context.Context, entry *domain.LogicEntry) (*ScoreReport, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	prior, err := s.priorEntries(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	scored := s.scorer.ScoreAll(entry, prior)
	return &ScoreReport{
		Entry:     s.scorer.MarkProfound(entry, prior),
		Scores:    scored,
		Threshold: ProfoundThreshold(scores(scored)),
	}, nil
}

// FlagStep records the user's verdict on an insight step, re-marks profound insights and
// saves the entry.
func (s *TurnService) FlagStep(ctx context.Context, id uuid.UUID, index int, flagged bool) (*ScoreReport, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entry.ReasoningSteps) {
		return nil, ErrStepOutOfRange
	}
	if !entry.ReasoningSteps[index].IsInsight() {
		return nil, ErrStepNotInsight
	}
	entry.ReasoningSteps[index].UserFlagged = &flagged

	prior, err := s.priorEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	scored := s.scorer.ScoreAll(entry, prior)
	marked := s.scorer.MarkProfound(entry, prior)
	if err := s.logicStore.Update(ctx, &marked); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLogicEntryNotFound
		}
		return nil, err
	}

	s.logger.Debug("insight step flagged",
		zap.String("logic_id", id.String()),
		zap.Int("step", index),
		zap.Bool("flagged", flagged))
	return &ScoreReport{
		Entry:     marked,
		Scores:    scored,
		Threshold: ProfoundThreshold(scores(scored)),
	}, nil
}

// ScanEmergence proposes belief candidates for a deliberation against current beliefs.
func (s *TurnService) ScanEmergence(ctx context.Context, entry *domain.LogicEntry) ([]domain.EmergentBeliefCandidate, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	memories, err := s.memoryStore.List(ctx, s.MemoryLimit)
	if err != nil {
		return nil, err
	}
	return s.emergence.Scan(entry, s.graph.All(), memories), nil
}

func (s *TurnService) GetEntry(ctx context.Context, id uuid.UUID) (*domain.LogicEntry, error) {
	e, err := s.logicStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLogicEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *TurnService) CreateMemory(ctx context.Context, m *domain.MemoryRecord) error {
	if len(m.HumanInsights) == 0 && len(m.SelfInsights) == 0 {
		return ErrMemoryRecordEmpty
	}
	if err := validateInsights("human_insights", m.HumanInsights); err != nil {
		return err
	}
	if err := validateInsights("self_insights", m.SelfInsights); err != nil {
		return err
	}
	if m.LogicEntryID != nil {
		if _, err := s.GetEntry(ctx, *m.LogicEntryID); err != nil {
			return err
		}
	}
	return s.memoryStore.Create(ctx, m)
}

func (s *TurnService) GetMemory(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m, err := s.memoryStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMemoryRecordNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *TurnService) ListMemories(ctx context.Context, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = s.MemoryLimit
	}
	return s.memoryStore.List(ctx, limit)
}

// RefreshPatterns re-aggregates patterns over the stored memory records.
func (s *TurnService) RefreshPatterns(ctx context.Context) (domain.PatternReport, error) {
	memories, err := s.memoryStore.List(ctx, s.MemoryLimit)
	if err != nil {
		return domain.PatternReport{}, err
	}
	return s.patterns.Aggregate(memories), nil
}

func (s *TurnService) priorEntries(ctx context.Context, exclude uuid.UUID) ([]domain.LogicEntry, error) {
	recent, err := s.logicStore.ListRecent(ctx, s.HistoryLimit)
	if err != nil {
		return nil, err
	}
	prior := recent[:0]
	for _, e := range recent {
		if e.ID != exclude {
			prior = append(prior, e)
		}
	}
	return prior, nil
}
