package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinBeliefWeight = 1
	MaxBeliefWeight = 10
)

// BeliefDomain is the area of the agent's world view a belief belongs to.
type BeliefDomain string

const (
	DomainSelf       BeliefDomain = "self"
	DomainKnowledge  BeliefDomain = "knowledge"
	DomainEthics     BeliefDomain = "ethics"
	DomainRelational BeliefDomain = "relational"
	DomainMeta       BeliefDomain = "meta"
)

func ValidBeliefDomain(d string) bool {
	switch BeliefDomain(d) {
	case DomainSelf, DomainKnowledge, DomainEthics, DomainRelational, DomainMeta:
		return true
	}
	return false
}

type RevisionKind string

const (
	RevisionChallenge  RevisionKind = "challenge"
	RevisionStrengthen RevisionKind = "strengthen"
	RevisionWeaken     RevisionKind = "weaken"
	RevisionRevise     RevisionKind = "revise"
)

func ValidRevisionKind(k string) bool {
	switch RevisionKind(k) {
	case RevisionChallenge, RevisionStrengthen, RevisionWeaken, RevisionRevise:
		return true
	}
	return false
}

type Revision struct {
	Timestamp time.Time    `json:"timestamp"`
	Kind      RevisionKind `json:"kind"`
	Reason    string       `json:"reason"`
}

// BeliefNode is a weighted stance held by the agent.
// Weight stays within [MinBeliefWeight, MaxBeliefWeight]; connections are symmetric.
type BeliefNode struct {
	ID              uuid.UUID    `json:"id"`
	Stance          string       `json:"stance"`
	Domain          BeliefDomain `json:"domain"`
	Reasoning       string       `json:"reasoning"`
	Weight          int          `json:"weight"`
	IsCore          bool         `json:"is_core"`
	Connections     []uuid.UUID  `json:"connections"`
	RevisionHistory []Revision   `json:"revision_history"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NormalizedWeight maps the integer weight onto [0,1].
// Every score that blends belief weight with other quantities goes through this.
func (b *BeliefNode) NormalizedWeight() float64 {
	return float64(b.Weight) / float64(MaxBeliefWeight)
}

func (b *BeliefNode) RevisionCount() int {
	return len(b.RevisionHistory)
}

func (b *BeliefNode) IsConnectedTo(id uuid.UUID) bool {
	for _, c := range b.Connections {
		if c == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share slices with the graph.
func (b *BeliefNode) Clone() BeliefNode {
	c := *b
	c.Connections = append([]uuid.UUID(nil), b.Connections...)
	c.RevisionHistory = append([]Revision(nil), b.RevisionHistory...)
	return c
}

// ClampWeight bounds a requested weight to the valid range.
func ClampWeight(w int) int {
	if w < MinBeliefWeight {
		return MinBeliefWeight
	}
	if w > MaxBeliefWeight {
		return MaxBeliefWeight
	}
	return w
}

// BeliefRecord is the flat persistence shape of a belief used by storage and sync layers.
type BeliefRecord struct {
	ID              uuid.UUID   `json:"id"`
	Stance          string      `json:"stance"`
	Domain          string      `json:"domain"`
	Weight          int         `json:"weight"`
	Reasoning       string      `json:"reasoning"`
	RevisionHistory []Revision  `json:"revision_history"`
	IsCore          bool        `json:"is_core"`
	Connections     []uuid.UUID `json:"connections"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type BeliefEventKind string

const (
	BeliefEventCreated      BeliefEventKind = "created"
	BeliefEventRevised      BeliefEventKind = "revised"
	BeliefEventConnected    BeliefEventKind = "connected"
	BeliefEventDisconnected BeliefEventKind = "disconnected"
	BeliefEventImported     BeliefEventKind = "imported"
)

// BeliefEvent is published to graph subscribers after each mutation.
type BeliefEvent struct {
	Kind    BeliefEventKind `json:"kind"`
	Belief  *BeliefNode     `json:"belief,omitempty"`
	Version uint64          `json:"version"`
	At      time.Time       `json:"at"`
}

type BeliefDeltaKind string

const (
	DeltaCreate     BeliefDeltaKind = "create"
	DeltaStrengthen BeliefDeltaKind = "strengthen"
	DeltaWeaken     BeliefDeltaKind = "weaken"
	DeltaConnect    BeliefDeltaKind = "connect"
)

// BeliefDelta is one change produced by analysis and applied to the graph in a batch.
// Create deltas carry Node; Connect deltas use BeliefID and TargetID.
type BeliefDelta struct {
	Kind     BeliefDeltaKind `json:"kind"`
	BeliefID uuid.UUID       `json:"belief_id,omitempty"`
	TargetID uuid.UUID       `json:"target_id,omitempty"`
	Node     *BeliefNode     `json:"node,omitempty"`
	Reason   string          `json:"reason"`
}

// CoherenceReport summarizes network health.
type CoherenceReport struct {
	NetworkCoherence float64            `json:"network_coherence"`
	MeanWeight       float64            `json:"mean_weight"`
	TotalRevisions   int                `json:"total_revisions"`
	BeliefCount      int                `json:"belief_count"`
	Nodes            []NodeCoherence    `json:"nodes,omitempty"`
	Dominant         []DominanceWarning `json:"dominant,omitempty"`
}

type NodeCoherence struct {
	BeliefID  uuid.UUID `json:"belief_id"`
	Stance    string    `json:"stance"`
	Coherence float64   `json:"coherence"`
	Share     float64   `json:"weight_share"`
}

// DominanceWarning flags a belief holding more than the allowed share of total weight.
type DominanceWarning struct {
	BeliefID uuid.UUID `json:"belief_id"`
	Stance   string    `json:"stance"`
	Share    float64   `json:"weight_share"`
	Cap      float64   `json:"cap"`
}
