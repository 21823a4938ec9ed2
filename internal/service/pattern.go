package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrPatternNotFound = errors.New("pattern not found")

const (
	// MinPatternFrequency is the number of occurrences before text counts as a pattern.
	MinPatternFrequency = 2
	// MaxPatternConfidence caps confidence when a pattern recurs within the same records.
	MaxPatternConfidence = 1.0

	DefaultPatternCacheSize = 128
)

var articleReplacer = strings.NewReplacer(" the ", " ", " a ", " ", " an ", " ")

// PatternAggregator clusters repeated insight text across memory records and keeps the
// identified/pending split that users confirm or reject.
type PatternAggregator struct {
	classifier CategoryClassifier
	cache      *lru.Cache[string, []domain.PatternAnalysis]
	logger     *zap.Logger

	mu         sync.RWMutex
	identified []domain.PatternAnalysis
	pending    []domain.PatternAnalysis
	confirmed  map[string]struct{}
	rejected   map[string]struct{}
}

func NewPatternAggregator(classifier CategoryClassifier, cacheSize int, logger *zap.Logger) (*PatternAggregator, error) {
	if classifier == nil {
		classifier = NewKeywordCategoryClassifier()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultPatternCacheSize
	}
	cache, err := lru.New[string, []domain.PatternAnalysis](cacheSize)
	if err != nil {
		return nil, err
	}
	return &PatternAggregator{
		classifier: classifier,
		cache:      cache,
		logger:     logger,
		confirmed:  make(map[string]struct{}),
		rejected:   make(map[string]struct{}),
	}, nil
}

// NormalizePattern lowercases text, drops standalone articles, and trims whitespace.
func NormalizePattern(text string) string {
	t := strings.ToLower(text)
	// Replacements do not overlap, so "a the b" needs a second pass.
	for {
		next := articleReplacer.Replace(t)
		if next == t {
			break
		}
		t = next
	}
	return strings.TrimSpace(t)
}

// Analyze computes patterns without touching the aggregator's confirmation state.
// Results are memoized per set of record ids; records are immutable once stored.
func (a *PatternAggregator) Analyze(records []domain.MemoryRecord) []domain.PatternAnalysis {
	if len(records) == 0 {
		return nil
	}

	key, cacheable := recordsFingerprint(records)
	if cacheable {
		if cached, ok := a.cache.Get(key); ok {
			return clonePatterns(cached)
		}
	}

	groups := make(map[string][]domain.MemoryInsight)
	for i := range records {
		for _, ins := range records[i].AllInsights() {
			k := NormalizePattern(ins.Content)
			if k == "" {
				continue
			}
			groups[k] = append(groups[k], ins)
		}
	}

	total := float64(len(records))
	var out []domain.PatternAnalysis
	for k, insights := range groups {
		if len(insights) < MinPatternFrequency {
			continue
		}
		confidence := float64(len(insights)) / total
		if confidence > MaxPatternConfidence {
			confidence = MaxPatternConfidence
		}
		out = append(out, domain.PatternAnalysis{
			Pattern:               k,
			Frequency:             len(insights),
			ConfidenceScore:       confidence,
			SourceInsights:        insights,
			SuggestedCategory:     a.classifier.Classify(k),
			NeedsUserConfirmation: confidence < domain.PatternConfirmationThreshold,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Pattern < out[j].Pattern
	})

	if cacheable {
		a.cache.Add(key, clonePatterns(out))
	}
	return out
}

// Preview analyzes records and applies earlier user decisions without storing the result.
func (a *PatternAggregator) Preview(records []domain.MemoryRecord) domain.PatternReport {
	report := SplitPatterns(a.Analyze(records))

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.applyDecisionsLocked(report)
}

// Aggregate analyzes records and replaces the identified/pending split with the result.
// Earlier user decisions carry over: confirmed patterns stay identified and rejected
// patterns stay out of pending.
func (a *PatternAggregator) Aggregate(records []domain.MemoryRecord) domain.PatternReport {
	report := SplitPatterns(a.Analyze(records))

	a.mu.Lock()
	report = a.applyDecisionsLocked(report)
	a.identified = report.Identified
	a.pending = report.Pending
	a.mu.Unlock()

	a.logger.Debug("patterns aggregated",
		zap.Int("records", len(records)),
		zap.Int("identified", len(report.Identified)),
		zap.Int("pending", len(report.Pending)))
	return a.Report()
}

func (a *PatternAggregator) applyDecisionsLocked(report domain.PatternReport) domain.PatternReport {
	pending := report.Pending[:0]
	for _, p := range report.Pending {
		if _, ok := a.confirmed[p.Pattern]; ok {
			p.NeedsUserConfirmation = false
			report.Identified = append(report.Identified, p)
			continue
		}
		if _, ok := a.rejected[p.Pattern]; ok {
			continue
		}
		pending = append(pending, p)
	}
	report.Pending = pending
	return report
}

// SplitPatterns partitions patterns by the confirmation threshold, keeping order.
func SplitPatterns(patterns []domain.PatternAnalysis) domain.PatternReport {
	report := domain.PatternReport{
		Identified: []domain.PatternAnalysis{},
		Pending:    []domain.PatternAnalysis{},
	}
	for _, p := range patterns {
		if p.NeedsUserConfirmation {
			report.Pending = append(report.Pending, p)
		} else {
			report.Identified = append(report.Identified, p)
		}
	}
	return report
}

func (a *PatternAggregator) Report() domain.PatternReport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return domain.PatternReport{
		Identified: clonePatterns(a.identified),
		Pending:    clonePatterns(a.pending),
	}
}

// Confirm moves a pending pattern to identified. Confirming an identified pattern is a no-op.
func (a *PatternAggregator) Confirm(pattern string) error {
	key := NormalizePattern(pattern)

	a.mu.Lock()
	defer a.mu.Unlock()

	if indexOfPattern(a.identified, key) >= 0 {
		return nil
	}
	i := indexOfPattern(a.pending, key)
	if i < 0 {
		return ErrPatternNotFound
	}
	p := a.pending[i]
	p.NeedsUserConfirmation = false
	a.pending = append(a.pending[:i], a.pending[i+1:]...)
	a.identified = append(a.identified, p)
	a.confirmed[key] = struct{}{}

	a.logger.Debug("pattern confirmed", zap.String("pattern", key))
	return nil
}

// Reject drops a pattern from pending.
func (a *PatternAggregator) Reject(pattern string) error {
	key := NormalizePattern(pattern)

	a.mu.Lock()
	defer a.mu.Unlock()

	i := indexOfPattern(a.pending, key)
	if i < 0 {
		return ErrPatternNotFound
	}
	a.pending = append(a.pending[:i], a.pending[i+1:]...)
	a.rejected[key] = struct{}{}

	a.logger.Debug("pattern rejected", zap.String("pattern", key))
	return nil
}

func indexOfPattern(patterns []domain.PatternAnalysis, key string) int {
	for i, p := range patterns {
		if p.Pattern == key {
			return i
		}
	}
	return -1
}

// recordsFingerprint identifies a record set by its ids. Sets containing unsaved records
// (nil id) are not cacheable.
func recordsFingerprint(records []domain.MemoryRecord) (string, bool) {
	h := sha256.New()
	for i := range records {
		if records[i].ID == uuid.Nil {
			return "", false
		}
		h.Write(records[i].ID[:])
	}
	return hex.EncodeToString(h.Sum(nil)), true
}

func clonePatterns(in []domain.PatternAnalysis) []domain.PatternAnalysis {
	if in == nil {
		return []domain.PatternAnalysis{}
	}
	out := make([]domain.PatternAnalysis, len(in))
	for i, p := range in {
		out[i] = p
		out[i].SourceInsights = append([]domain.MemoryInsight(nil), p.SourceInsights...)
	}
	return out
}
