package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestClampWeight(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below range", -3, 1},
		{"zero", 0, 1},
		{"min", 1, 1},
		{"mid", 6, 6},
		{"max", 10, 10},
		{"above range", 15, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampWeight(tt.in); got != tt.want {
				t.Errorf("ClampWeight(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestBeliefNode_NormalizedWeight(t *testing.T) {
	b := &BeliefNode{Weight: 7}
	if got := b.NormalizedWeight(); got != 0.7 {
		t.Errorf("NormalizedWeight() = %v, want 0.7", got)
	}
}

func TestBeliefNode_Clone(t *testing.T) {
	other := uuid.New()
	b := &BeliefNode{
		ID:              uuid.New(),
		Weight:          5,
		Connections:     []uuid.UUID{other},
		RevisionHistory: []Revision{{Kind: RevisionWeaken}},
	}

	c := b.Clone()
	c.Connections[0] = uuid.New()
	c.RevisionHistory[0].Kind = RevisionStrengthen

	if b.Connections[0] != other {
		t.Error("Clone shares the connections slice")
	}
	if b.RevisionHistory[0].Kind != RevisionWeaken {
		t.Error("Clone shares the revision history slice")
	}
	if !b.IsConnectedTo(other) || b.IsConnectedTo(b.ID) {
		t.Error("IsConnectedTo returned the wrong answer")
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		valid func(string) bool
		in    string
		want  bool
	}{
		{"domain ethics", ValidBeliefDomain, "ethics", true},
		{"domain unknown", ValidBeliefDomain, "finance", false},
		{"revision challenge", ValidRevisionKind, "challenge", true},
		{"revision unknown", ValidRevisionKind, "forget", false},
		{"role ethicist", ValidPerspectiveRole, "ethicist", true},
		{"role unknown", ValidPerspectiveRole, "jester", false},
		{"step conclusion", ValidStepType, "conclusion", true},
		{"step unknown", ValidStepType, "musing", false},
		{"category strength", ValidInsightCategory, "sovernStrength", true},
		{"category wrong case", ValidInsightCategory, "uservalue", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.valid(tt.in); got != tt.want {
				t.Errorf("%s(%q) = %v, want %v", tt.name, tt.in, got, tt.want)
			}
		})
	}
}

func TestPerspectiveRole_LinksBeliefs(t *testing.T) {
	for role, want := range map[PerspectiveRole]bool{
		RoleAdvocate:    true,
		RoleSkeptic:     true,
		RoleSynthesizer: false,
		RoleEthicist:    false,
	} {
		if got := role.LinksBeliefs(); got != want {
			t.Errorf("%s.LinksBeliefs() = %v, want %v", role, got, want)
		}
	}
}

func TestLogicEntry_CloneAndFrozen(t *testing.T) {
	flag := true
	e := &LogicEntry{
		UserQuery:      "q",
		Perspectives:   []CongressPerspective{{Role: RoleAdvocate, LinkedBeliefIDs: []uuid.UUID{uuid.New()}}},
		ReasoningSteps: []ReasoningStep{{Type: StepInsight, Content: "a", UserFlagged: &flag}, {Type: StepAnalysis}},
	}
	if e.Frozen() {
		t.Error("entry without a final response reported frozen")
	}

	c := e.Clone()
	*c.ReasoningSteps[0].UserFlagged = false
	c.Perspectives[0].LinkedBeliefIDs[0] = uuid.Nil

	if !e.ReasoningSteps[0].Flagged() {
		t.Error("Clone shares the user flag pointer")
	}
	if e.Perspectives[0].LinkedBeliefIDs[0] == uuid.Nil {
		t.Error("Clone shares linked belief ids")
	}
	if got := len(e.InsightSteps()); got != 1 {
		t.Errorf("InsightSteps() returned %d steps, want 1", got)
	}

	e.FinalResponse = "done"
	if !e.Frozen() {
		t.Error("entry with a final response reported open")
	}
}

func TestMemoryRecord_AllInsights(t *testing.T) {
	m := &MemoryRecord{
		HumanInsights: []MemoryInsight{{Content: "h"}},
		SelfInsights:  []MemoryInsight{{Content: "s1"}, {Content: "s2"}},
	}
	all := m.AllInsights()
	if len(all) != 3 || all[0].Content != "h" || all[2].Content != "s2" {
		t.Errorf("AllInsights() = %+v", all)
	}
}
