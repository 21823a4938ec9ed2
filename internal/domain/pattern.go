package domain

import "github.com/google/uuid"

// PatternConfirmationThreshold is the confidence below which a pattern needs the user's say-so.
const PatternConfirmationThreshold = 0.6

type PatternAnalysis struct {
	Pattern               string          `json:"pattern"`
	Frequency             int             `json:"frequency"`
	ConfidenceScore       float64         `json:"confidence_score"`
	SourceInsights        []MemoryInsight `json:"source_insights"`
	SuggestedCategory     InsightCategory `json:"suggested_category"`
	NeedsUserConfirmation bool            `json:"needs_user_confirmation"`
}

// PatternReport is the identified/pending split of an aggregation.
type PatternReport struct {
	Identified []PatternAnalysis `json:"identified"`
	Pending    []PatternAnalysis `json:"pending"`
}

// EmergentStrengthThreshold is the minimum strength for a candidate to be proposed.
const EmergentStrengthThreshold = 0.7

type EmergentBeliefCandidate struct {
	Stance             string       `json:"stance"`
	Domain             BeliefDomain `json:"domain"`
	SupportingInsights []string     `json:"supporting_insights"`
	Strength           float64      `json:"strength"`
	EmergedFromLogicID uuid.UUID    `json:"emerged_from_logic_id"`
	ReasonToCreate     string       `json:"reason_to_create"`
}
