package service

import (
	"strings"
	"unicode"

	"github.com/Harshitk-cp/sovern/internal/domain"
)

// StanceMatcher decides whether a piece of text restates an existing stance.
type StanceMatcher interface {
	Matches(stance, text string) bool
}

// CategoryClassifier assigns an insight category to pattern text.
type CategoryClassifier interface {
	Classify(text string) domain.InsightCategory
}

// DomainClassifier assigns a belief domain to concept text.
type DomainClassifier interface {
	Classify(text string) domain.BeliefDomain
}

// SubstringStanceMatcher matches when either lowercased string contains the other.
type SubstringStanceMatcher struct{}

func (SubstringStanceMatcher) Matches(stance, text string) bool {
	s := strings.ToLower(strings.TrimSpace(stance))
	t := strings.ToLower(strings.TrimSpace(text))
	if s == "" || t == "" {
		return false
	}
	return strings.Contains(s, t) || strings.Contains(t, s)
}

type CategoryRule struct {
	Keywords []string
	Category domain.InsightCategory
}

// KeywordCategoryClassifier returns the category of the first rule with a keyword present
// in the text, or Fallback.
type KeywordCategoryClassifier struct {
	Rules    []CategoryRule
	Fallback domain.InsightCategory
}

// DefaultCategoryRules are checked in priority order: values, knowledge gaps, reasoning
// style, limitations, strengths.
var DefaultCategoryRules = []CategoryRule{
	{Keywords: []string{"value", "care about", "important to", "priorit", "principle", "matters to"}, Category: domain.CategoryUserValue},
	{Keywords: []string{"gap", "uncertain", "unsure", "don't know", "unclear", "confus", "unfamiliar"}, Category: domain.CategoryUserKnowledgeGap},
	{Keywords: []string{"reason", "approach", "think", "logic", "method", "analy", "framework"}, Category: domain.CategoryUserReasoningStyle},
	{Keywords: []string{"struggle", "limit", "can't", "cannot", "difficult", "fail", "unable"}, Category: domain.CategorySovernLimitation},
	{Keywords: []string{"strength", "excel", "good at", "strong", "effective", "helpful"}, Category: domain.CategorySovernStrength},
}

func NewKeywordCategoryClassifier() *KeywordCategoryClassifier {
	return &KeywordCategoryClassifier{
		Rules:    DefaultCategoryRules,
		Fallback: domain.CategoryConversationDynamic,
	}
}

func (c *KeywordCategoryClassifier) Classify(text string) domain.InsightCategory {
	t := strings.ToLower(text)
	for _, r := range c.Rules {
		if containsAny(t, r.Keywords) {
			return r.Category
		}
	}
	return c.Fallback
}

type DomainRule struct {
	Keywords []string
	Domain   domain.BeliefDomain
}

type KeywordDomainClassifier struct {
	Rules    []DomainRule
	Fallback domain.BeliefDomain
}

// DefaultDomainRules are checked in order; the first match wins.
var DefaultDomainRules = []DomainRule{
	{Keywords: []string{"method", "process", "how"}, Domain: domain.DomainKnowledge},
	{Keywords: []string{"value", "right", "wrong", "good", "bad"}, Domain: domain.DomainEthics},
	{Keywords: []string{"self", "identity", "ego", "authentic"}, Domain: domain.DomainSelf},
	{Keywords: []string{"people", "relation", "connect", "empathy"}, Domain: domain.DomainRelational},
}

func NewKeywordDomainClassifier() *KeywordDomainClassifier {
	return &KeywordDomainClassifier{
		Rules:    DefaultDomainRules,
		Fallback: domain.DomainMeta,
	}
}

func (c *KeywordDomainClassifier) Classify(text string) domain.BeliefDomain {
	t := strings.ToLower(text)
	for _, r := range c.Rules {
		if containsAny(t, r.Keywords) {
			return r.Domain
		}
	}
	return c.Fallback
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// words splits on whitespace and strips surrounding punctuation. Empty tokens are dropped.
func words(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}
