package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxPriorSupport bounds how many historical insights back a single concept.
	MaxPriorSupport = 3

	supportSaturation      = 3.0
	connectionSaturation   = 2.0
	supportShare           = 0.6
	connectionShare        = 0.4
	perspectivePrefixLen   = 20
	minConceptLength       = 3
	minMergedConceptLength = 5
)

// AbstractConcepts are looked for when reasoning contains no capitalized terms at all.
var AbstractConcepts = []string{
	"Decision", "Learning", "Understanding", "Balance", "Context",
	"Pattern", "Tension", "Growth", "Trust", "Change",
}

// EmergenceMonitor proposes new beliefs from concepts that keep surfacing in reasoning.
type EmergenceMonitor struct {
	stances StanceMatcher
	domains DomainClassifier
	logger  *zap.Logger
}

func NewEmergenceMonitor(stances StanceMatcher, domains DomainClassifier, logger *zap.Logger) *EmergenceMonitor {
	if stances == nil {
		stances = SubstringStanceMatcher{}
	}
	if domains == nil {
		domains = NewKeywordDomainClassifier()
	}
	return &EmergenceMonitor{stances: stances, domains: domains, logger: logger}
}

// Scan returns candidates with strength of at least domain.EmergentStrengthThreshold whose
// concept is not already held as a belief.
func (m *EmergenceMonitor) Scan(record *domain.LogicEntry, beliefs []domain.BeliefNode, prior []domain.MemoryRecord) []domain.EmergentBeliefCandidate {
	concepts := ExtractConcepts(record)

	var out []domain.EmergentBeliefCandidate
	for _, concept := range concepts {
		if m.alreadyBelieved(concept, beliefs) {
			continue
		}
		c := m.buildCandidate(concept, record, prior)
		if c.Strength < domain.EmergentStrengthThreshold {
			continue
		}
		out = append(out, c)
	}

	m.logger.Debug("emergence scan complete",
		zap.String("logic_id", record.ID.String()),
		zap.Int("concepts", len(concepts)),
		zap.Int("candidates", len(out)))
	return out
}

func (m *EmergenceMonitor) alreadyBelieved(concept string, beliefs []domain.BeliefNode) bool {
	for _, b := range beliefs {
		if m.stances.Matches(b.Stance, concept) {
			return true
		}
	}
	return false
}

func (m *EmergenceMonitor) buildCandidate(concept string, record *domain.LogicEntry, prior []domain.MemoryRecord) domain.EmergentBeliefCandidate {
	needle := strings.ToLower(concept)

	var support []string
	for _, step := range record.ReasoningSteps {
		if step.IsInsight() && strings.Contains(strings.ToLower(step.Content), needle) {
			support = append(support, step.Content)
		}
	}

	fromHistory := 0
	for i := range prior {
		if fromHistory >= MaxPriorSupport {
			break
		}
		for _, ins := range prior[i].AllInsights() {
			if fromHistory >= MaxPriorSupport {
				break
			}
			if strings.Contains(strings.ToLower(ins.Content), needle) {
				support = append(support, ins.Content)
				fromHistory++
			}
		}
	}

	connections := perspectiveConnections(record.Perspectives, support)
	strength := math.Min(1, float64(len(support))/supportSaturation)*supportShare +
		math.Min(1, float64(connections)/connectionSaturation)*connectionShare

	reason := fmt.Sprintf("%q surfaced in %d insights (%d from earlier conversations) and echoed %d perspectives",
		concept, len(support), fromHistory, connections)

	return domain.EmergentBeliefCandidate{
		Stance:             concept,
		Domain:             m.domains.Classify(concept),
		SupportingInsights: support,
		Strength:           strength,
		EmergedFromLogicID: record.ID,
		ReasonToCreate:     reason,
	}
}

// perspectiveConnections counts perspectives whose opening reasoning is quoted by an insight.
func perspectiveConnections(perspectives []domain.CongressPerspective, insights []string) int {
	lowered := make([]string, len(insights))
	for i, s := range insights {
		lowered[i] = strings.ToLower(s)
	}

	n := 0
	for _, p := range perspectives {
		prefix := strings.ToLower(firstRunes(p.Reasoning, perspectivePrefixLen))
		if strings.TrimSpace(prefix) == "" {
			continue
		}
		for _, ins := range lowered {
			if strings.Contains(ins, prefix) {
				n++
				break
			}
		}
	}
	return n
}

// ExtractConcepts pulls capitalized terms out of the record's insight steps. Adjacent
// capitalized tokens merge into one two-word concept. With no capitalized terms at all it
// falls back to AbstractConcepts mentioned anywhere in the insights. Output is sorted.
func ExtractConcepts(record *domain.LogicEntry) []string {
	set := make(map[string]struct{})
	var all strings.Builder

	for _, step := range record.ReasoningSteps {
		if !step.IsInsight() {
			continue
		}
		all.WriteString(step.Content)
		all.WriteString(" ")

		tokens := words(step.Content)
		for i := 0; i < len(tokens); i++ {
			tok := tokens[i]
			if !capitalized(tok) || utf8.RuneCountInString(tok) <= minConceptLength {
				continue
			}
			if i+1 < len(tokens) && capitalized(tokens[i+1]) {
				merged := tok + " " + tokens[i+1]
				if utf8.RuneCountInString(merged) > minMergedConceptLength {
					set[merged] = struct{}{}
					i++
					continue
				}
			}
			set[tok] = struct{}{}
		}
	}

	if len(set) == 0 {
		text := strings.ToLower(all.String())
		for _, c := range AbstractConcepts {
			if strings.Contains(text, strings.ToLower(c)) {
				set[c] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func capitalized(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// ToBeliefNode converts a candidate into a learned belief with weight strength×5+2.
func ToBeliefNode(c domain.EmergentBeliefCandidate) domain.BeliefNode {
	// The epsilon absorbs float error such as 0.6×5 landing just below 3.
	w := int(math.Floor(c.Strength*5 + 2 + 1e-9))
	return domain.BeliefNode{
		ID:              uuid.New(),
		Stance:          c.Stance,
		Domain:          c.Domain,
		Reasoning:       c.ReasonToCreate,
		Weight:          domain.ClampWeight(w),
		IsCore:          false,
		Connections:     []uuid.UUID{},
		RevisionHistory: []domain.Revision{},
	}
}
