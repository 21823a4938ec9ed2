package domain

import (
	"time"

	"github.com/google/uuid"
)

// InsightCategory classifies both memory insights and aggregated patterns.
type InsightCategory string

const (
	CategoryUserValue           InsightCategory = "userValue"
	CategoryUserKnowledgeGap    InsightCategory = "userKnowledgeGap"
	CategoryUserReasoningStyle  InsightCategory = "userReasoningStyle"
	CategorySovernLimitation    InsightCategory = "sovernLimitation"
	CategorySovernStrength      InsightCategory = "sovernStrength"
	CategoryConversationDynamic InsightCategory = "conversationDynamic"
)

func ValidInsightCategory(c string) bool {
	switch InsightCategory(c) {
	case CategoryUserValue, CategoryUserKnowledgeGap, CategoryUserReasoningStyle,
		CategorySovernLimitation, CategorySovernStrength, CategoryConversationDynamic:
		return true
	}
	return false
}

type InsightSource string

const (
	InsightSourceUser       InsightSource = "user"
	InsightSourceReflection InsightSource = "reflection"
	InsightSourceCongress   InsightSource = "congress"
)

type MemoryInsight struct {
	Content  string          `json:"content"`
	Category InsightCategory `json:"category"`
	Source   InsightSource   `json:"source"`
}

// MemoryRecord holds insights derived from one deliberation. Records are immutable once stored.
type MemoryRecord struct {
	ID            uuid.UUID       `json:"id"`
	LogicEntryID  *uuid.UUID      `json:"logic_entry_id,omitempty"`
	HumanInsights []MemoryInsight `json:"human_insights"`
	SelfInsights  []MemoryInsight `json:"self_insights"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AllInsights returns human insights followed by self insights.
func (m *MemoryRecord) AllInsights() []MemoryInsight {
	out := make([]MemoryInsight, 0, len(m.HumanInsights)+len(m.SelfInsights))
	out = append(out, m.HumanInsights...)
	return append(out, m.SelfInsights...)
}
