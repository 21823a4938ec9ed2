package service

import (
	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
)

// NodeCoherence scores one belief on [0,100]: conviction minus a penalty per revision.
func NodeCoherence(n *domain.BeliefNode) float64 {
	score := n.NormalizedWeight()*100 - float64(n.RevisionCount())*RevisionCoherencePenalty
	return clampFloat(score, 0, 100)
}

// NetworkCoherence scores the whole graph from mean weight and total revision count.
func NetworkCoherence(nodes []domain.BeliefNode) float64 {
	if len(nodes) == 0 {
		return 0
	}
	var weightSum, revisions int
	for i := range nodes {
		weightSum += nodes[i].Weight
		revisions += nodes[i].RevisionCount()
	}
	mean := float64(weightSum) / float64(len(nodes))
	score := mean/float64(domain.MaxBeliefWeight)*100 - float64(revisions)*RevisionCoherencePenalty
	return clampFloat(score, 0, 100)
}

func (g *BeliefGraph) NodeCoherence(id uuid.UUID) (float64, error) {
	n, err := g.Get(id)
	if err != nil {
		return 0, err
	}
	return NodeCoherence(n), nil
}

func (g *BeliefGraph) NetworkCoherence() float64 {
	return NetworkCoherence(g.All())
}

// Health reports coherence per belief and flags beliefs holding more than dominanceCap of
// the total weight. Flagging never changes the graph.
func (g *BeliefGraph) Health(dominanceCap float64) *domain.CoherenceReport {
	if dominanceCap <= 0 || dominanceCap > 1 {
		dominanceCap = DefaultDominanceCap
	}
	nodes := g.All()

	report := &domain.CoherenceReport{
		NetworkCoherence: NetworkCoherence(nodes),
		BeliefCount:      len(nodes),
	}
	if len(nodes) == 0 {
		return report
	}

	var total int
	for i := range nodes {
		total += nodes[i].Weight
		report.TotalRevisions += nodes[i].RevisionCount()
	}
	report.MeanWeight = float64(total) / float64(len(nodes))

	for i := range nodes {
		n := &nodes[i]
		share := float64(n.Weight) / float64(total)
		report.Nodes = append(report.Nodes, domain.NodeCoherence{
			BeliefID:  n.ID,
			Stance:    n.Stance,
			Coherence: NodeCoherence(n),
			Share:     share,
		})
		if share > dominanceCap {
			report.Dominant = append(report.Dominant, domain.DominanceWarning{
				BeliefID: n.ID,
				Stance:   n.Stance,
				Share:    share,
				Cap:      dominanceCap,
			})
		}
	}
	return report
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
