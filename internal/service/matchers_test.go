package service

import (
	"testing"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSubstringStanceMatcher(t *testing.T) {
	m := SubstringStanceMatcher{}

	tests := []struct {
		stance string
		text   string
		want   bool
	}{
		{"Radical candor matters", "radical candor", true},
		{"honesty", "User values HONESTY", true},
		{"Patience", "Persistence", false},
		{"", "anything", false},
		{"anything", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.stance+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.stance, tt.text))
		})
	}
}

func TestKeywordCategoryClassifier(t *testing.T) {
	c := NewKeywordCategoryClassifier()

	tests := []struct {
		text string
		want domain.InsightCategory
	}{
		{"User values honesty", domain.CategoryUserValue},
		{"Seems unsure about generics", domain.CategoryUserKnowledgeGap},
		{"Prefers a step by step approach", domain.CategoryUserReasoningStyle},
		{"Struggles to recall dates", domain.CategorySovernLimitation},
		{"Explanations were helpful", domain.CategorySovernStrength},
		{"Conversation drifted off topic", domain.CategoryConversationDynamic},
		// Earlier rules win when several match.
		{"Unsure which principle applies", domain.CategoryUserValue},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestKeywordDomainClassifier(t *testing.T) {
	c := NewKeywordDomainClassifier()

	tests := []struct {
		text string
		want domain.BeliefDomain
	}{
		{"Scientific Method", domain.DomainKnowledge},
		{"Doing the right thing", domain.DomainEthics},
		{"Authentic voice", domain.DomainSelf},
		{"People first", domain.DomainRelational},
		{"Radical Candor", domain.DomainMeta},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"Hello", "world", "it's", "fine"}, words("Hello, world! -- it's (fine)"))
	assert.Empty(t, words("  ... ! "))
}
