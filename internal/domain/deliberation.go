package domain

import (
	"time"

	"github.com/google/uuid"
)

// PerspectiveRole is the viewpoint a deliberation participant argues from.
type PerspectiveRole string

const (
	RoleAdvocate    PerspectiveRole = "advocate"
	RoleSkeptic     PerspectiveRole = "skeptic"
	RoleSynthesizer PerspectiveRole = "synthesizer"
	RoleEthicist    PerspectiveRole = "ethicist"
)

func ValidPerspectiveRole(r string) bool {
	switch PerspectiveRole(r) {
	case RoleAdvocate, RoleSkeptic, RoleSynthesizer, RoleEthicist:
		return true
	}
	return false
}

// LinksBeliefs reports whether the role draws strength from aligned beliefs.
// Synthesizer and ethicist stay unlinked to keep them neutral.
func (r PerspectiveRole) LinksBeliefs() bool {
	return r == RoleAdvocate || r == RoleSkeptic
}

const (
	MinArgumentStrength = 1.0
	MaxArgumentStrength = 10.0
)

type CongressPerspective struct {
	Role               PerspectiveRole `json:"role"`
	Position           string          `json:"position"`
	Reasoning          string          `json:"reasoning"`
	StrengthOfArgument float64         `json:"strength_of_argument"`
	CallNumber         int             `json:"call_number"`
	LinkedBeliefIDs    []uuid.UUID     `json:"linked_belief_ids,omitempty"`
}

func (p CongressPerspective) Clone() CongressPerspective {
	c := p
	c.LinkedBeliefIDs = append([]uuid.UUID(nil), p.LinkedBeliefIDs...)
	return c
}

type StepType string

const (
	StepInsight    StepType = "insight"
	StepRevision   StepType = "revision"
	StepAnalysis   StepType = "analysis"
	StepQuestion   StepType = "question"
	StepConclusion StepType = "conclusion"
)

func ValidStepType(t string) bool {
	switch StepType(t) {
	case StepInsight, StepRevision, StepAnalysis, StepQuestion, StepConclusion:
		return true
	}
	return false
}

type ReasoningStep struct {
	Type      StepType  `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// UserFlagged is set by the user or after scoring marks the step profound.
	UserFlagged *bool `json:"user_flagged,omitempty"`
}

func (s ReasoningStep) IsInsight() bool {
	return s.Type == StepInsight
}

func (s ReasoningStep) Flagged() bool {
	return s.UserFlagged != nil && *s.UserFlagged
}

func (s ReasoningStep) Clone() ReasoningStep {
	c := s
	if s.UserFlagged != nil {
		f := *s.UserFlagged
		c.UserFlagged = &f
	}
	return c
}

type CandidateStatus string

const (
	CandidateDraft    CandidateStatus = "draft"
	CandidateRejected CandidateStatus = "rejected"
	CandidateSelected CandidateStatus = "selected"
)

type CandidateResponse struct {
	Content         string          `json:"content"`
	Status          CandidateStatus `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

// LogicEntry is the record of one deliberation over a user query.
type LogicEntry struct {
	ID                 uuid.UUID             `json:"id"`
	UserQuery          string                `json:"user_query"`
	Perspectives       []CongressPerspective `json:"perspectives"`
	ReasoningSteps     []ReasoningStep       `json:"reasoning_steps"`
	CandidateResponses []CandidateResponse   `json:"candidate_responses"`
	FinalResponse      string                `json:"final_response"`
	ProfoundInsights   []ReasoningStep       `json:"profound_insights,omitempty"`
	Timestamp          time.Time             `json:"timestamp"`
}

// Frozen reports whether the deliberation has concluded.
func (e *LogicEntry) Frozen() bool {
	return e.FinalResponse != ""
}

func (e *LogicEntry) InsightSteps() []ReasoningStep {
	var out []ReasoningStep
	for _, s := range e.ReasoningSteps {
		if s.IsInsight() {
			out = append(out, s)
		}
	}
	return out
}

// Clone deep-copies the entry so pipeline stages never alias each other's slices.
func (e *LogicEntry) Clone() LogicEntry {
	c := *e
	c.Perspectives = make([]CongressPerspective, len(e.Perspectives))
	for i, p := range e.Perspectives {
		c.Perspectives[i] = p.Clone()
	}
	c.ReasoningSteps = make([]ReasoningStep, len(e.ReasoningSteps))
	for i, s := range e.ReasoningSteps {
		c.ReasoningSteps[i] = s.Clone()
	}
	c.CandidateResponses = append([]CandidateResponse(nil), e.CandidateResponses...)
	if e.ProfoundInsights != nil {
		c.ProfoundInsights = make([]ReasoningStep, len(e.ProfoundInsights))
		for i, s := range e.ProfoundInsights {
			c.ProfoundInsights[i] = s.Clone()
		}
	}
	return c
}
