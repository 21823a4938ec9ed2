package service

import (
	"sort"
	"strings"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"go.uber.org/zap"
)

// Profundity criteria weights. They sum to 1.
const (
	WeightBeliefRevision        = 0.30
	WeightMultiPerspective      = 0.25
	WeightOscillationResolution = 0.20
	WeightNovelty               = 0.15
	WeightUserFlagged           = 0.10

	// DefaultNovelty is used when there is no history to compare against.
	DefaultNovelty = 0.7
	// ProfoundThresholdFloor is the minimum score for a step to count as profound.
	ProfoundThresholdFloor = 0.6

	profoundPercentile       = 0.8
	triggerPrefixLength      = 10
	minSharedWordsPerView    = 2
	fullyConnectedViewpoints = 2
)

var revisionTriggerPhrases = []string{
	"therefore", "thus", "means", "implies", "changes how",
	"reconsider", "actually", "instead", "better", "important",
}

var resolutionKeywords = []string{
	"balance", "both", "integrate", "holistic", "together", "resolve", "solution", "reconcile",
}

// ProfundityBreakdown shows how each criterion contributed to a step's score.
type ProfundityBreakdown struct {
	TriggersBeliefRevision bool    `json:"triggers_belief_revision"`
	ConnectedPerspectives  int     `json:"connected_perspectives"`
	ResolvesOscillation    bool    `json:"resolves_oscillation"`
	Novelty                float64 `json:"novelty"`
	UserFlagged            bool    `json:"user_flagged"`
	Score                  float64 `json:"score"`
}

type ScoredStep struct {
	Index     int                  `json:"index"`
	Step      domain.ReasoningStep `json:"step"`
	Breakdown ProfundityBreakdown  `json:"breakdown"`
}

type InsightScorer struct {
	logger *zap.Logger
}

func NewInsightScorer(logger *zap.Logger) *InsightScorer {
	return &InsightScorer{logger: logger}
}

// ScoreProfundity rates an insight step on [0,1]. Non-insight steps score 0.
func (s *InsightScorer) ScoreProfundity(step domain.ReasoningStep, record *domain.LogicEntry, prior []domain.LogicEntry) float64 {
	return s.Breakdown(step, record, prior).Score
}

func (s *InsightScorer) Breakdown(step domain.ReasoningStep, record *domain.LogicEntry, prior []domain.LogicEntry) ProfundityBreakdown {
	if !step.IsInsight() {
		return ProfundityBreakdown{}
	}

	b := ProfundityBreakdown{
		TriggersBeliefRevision: triggersBeliefRevision(step.Content, record.FinalResponse),
		ConnectedPerspectives:  connectedPerspectives(step.Content, record.Perspectives),
		ResolvesOscillation:    containsAny(strings.ToLower(step.Content), resolutionKeywords),
		Novelty:                novelty(step.Content, prior),
		UserFlagged:            step.Flagged(),
	}

	var score float64
	if b.TriggersBeliefRevision {
		score += WeightBeliefRevision
	}
	score += WeightMultiPerspective * connectionContribution(b.ConnectedPerspectives)
	if b.ResolvesOscillation {
		score += WeightOscillationResolution
	}
	score += WeightNovelty * b.Novelty
	if b.UserFlagged {
		score += WeightUserFlagged
	}
	b.Score = clampFloat(score, 0, 1)
	return b
}

// ScoreAll scores every insight step of the record.
func (s *InsightScorer) ScoreAll(record *domain.LogicEntry, prior []domain.LogicEntry) []ScoredStep {
	var out []ScoredStep
	for i, step := range record.ReasoningSteps {
		if !step.IsInsight() {
			continue
		}
		out = append(out, ScoredStep{
			Index:     i,
			Step:      step,
			Breakdown: s.Breakdown(step, record, prior),
		})
	}
	return out
}

// IdentifyProfoundInsights returns insight steps scoring at least max(0.6, p80), where p80
// is the lowest score among the top fifth.
func (s *InsightScorer) IdentifyProfoundInsights(record *domain.LogicEntry, prior []domain.LogicEntry) []domain.ReasoningStep {
	scored := s.ScoreAll(record, prior)
	threshold := ProfoundThreshold(scores(scored))

	var out []domain.ReasoningStep
	for _, st := range scored {
		if st.Breakdown.Score >= threshold {
			out = append(out, st.Step)
		}
	}
	return out
}

// MarkProfound returns a copy of record with profound steps flagged and collected into
// ProfoundInsights. Running it twice yields the same result.
func (s *InsightScorer) MarkProfound(record *domain.LogicEntry, prior []domain.LogicEntry) domain.LogicEntry {
	out := record.Clone()
	scored := s.ScoreAll(&out, prior)
	threshold := ProfoundThreshold(scores(scored))

	marked := 0
	for _, st := range scored {
		if st.Breakdown.Score < threshold {
			continue
		}
		flag := true
		out.ReasoningSteps[st.Index].UserFlagged = &flag
		marked++
	}

	out.ProfoundInsights = nil
	for _, step := range out.ReasoningSteps {
		if step.IsInsight() && step.Flagged() {
			out.ProfoundInsights = append(out.ProfoundInsights, step.Clone())
		}
	}

	s.logger.Debug("profound insights marked",
		zap.String("logic_id", out.ID.String()),
		zap.Int("insights", len(scored)),
		zap.Int("marked", marked),
		zap.Float64("threshold", threshold))
	return out
}

// ProfoundThreshold is max(0.6, p80). With fewer than two scores it is 0.6.
func ProfoundThreshold(scores []float64) float64 {
	if len(scores) <= 1 {
		return ProfoundThresholdFloor
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * profoundPercentile)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if sorted[idx] > ProfoundThresholdFloor {
		return sorted[idx]
	}
	return ProfoundThresholdFloor
}

func scores(scored []ScoredStep) []float64 {
	out := make([]float64, len(scored))
	for i, st := range scored {
		out[i] = st.Breakdown.Score
	}
	return out
}

func triggersBeliefRevision(content, finalResponse string) bool {
	prefix := strings.ToLower(firstRunes(content, triggerPrefixLength))
	if strings.TrimSpace(prefix) == "" {
		return false
	}
	final := strings.ToLower(finalResponse)
	return containsAny(final, revisionTriggerPhrases) && strings.Contains(final, prefix)
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

// connectedPerspectives counts perspectives whose reasoning contains at least two of the
// step's words.
func connectedPerspectives(content string, perspectives []domain.CongressPerspective) int {
	stepWords := uniqueLowerWords(content)
	connected := 0
	for _, p := range perspectives {
		reasoning := make(map[string]struct{})
		for _, w := range words(strings.ToLower(p.Reasoning)) {
			reasoning[w] = struct{}{}
		}
		shared := 0
		for _, w := range stepWords {
			if _, ok := reasoning[w]; ok {
				shared++
			}
		}
		if shared >= minSharedWordsPerView {
			connected++
		}
	}
	return connected
}

func connectionContribution(connected int) float64 {
	if connected >= fullyConnectedViewpoints {
		return 1.0
	}
	return float64(connected) * 0.5
}

func uniqueLowerWords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words(strings.ToLower(text)) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// novelty is one minus the mean Jaccard similarity against every prior insight step.
// Without prior insights to compare against it falls back to DefaultNovelty.
func novelty(content string, prior []domain.LogicEntry) float64 {
	if len(prior) == 0 {
		return DefaultNovelty
	}
	current := wordSet(content)

	var total float64
	var n int
	for i := range prior {
		for _, step := range prior[i].ReasoningSteps {
			if !step.IsInsight() {
				continue
			}
			total += jaccard(current, wordSet(step.Content))
			n++
		}
	}
	if n == 0 {
		return DefaultNovelty
	}
	return clampFloat(1-total/float64(n), 0, 1)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
