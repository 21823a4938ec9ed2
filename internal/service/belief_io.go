package service

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Export flattens the graph into persistence records in creation order.
func (g *BeliefGraph) Export() []domain.BeliefRecord {
	nodes := g.All()
	out := make([]domain.BeliefRecord, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, domain.BeliefRecord{
			ID:              n.ID,
			Stance:          n.Stance,
			Domain:          string(n.Domain),
			Weight:          n.Weight,
			Reasoning:       n.Reasoning,
			RevisionHistory: n.RevisionHistory,
			IsCore:          n.IsCore,
			Connections:     n.Connections,
			CreatedAt:       n.CreatedAt,
			UpdatedAt:       n.UpdatedAt,
		})
	}
	return out
}

// ValidateRecords checks persisted beliefs against the graph invariants and returns the
// first violation wrapped in ErrMalformedImport.
func ValidateRecords(records []domain.BeliefRecord) error {
	seen := make(map[uuid.UUID]struct{}, len(records))
	for i, r := range records {
		if r.ID == uuid.Nil {
			return fmt.Errorf("%w: record %d has no id", ErrMalformedImport, i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrMalformedImport, r.ID)
		}
		seen[r.ID] = struct{}{}
		if strings.TrimSpace(r.Stance) == "" {
			return fmt.Errorf("%w: belief %s has empty stance", ErrMalformedImport, r.ID)
		}
		if r.Weight < domain.MinBeliefWeight || r.Weight > domain.MaxBeliefWeight {
			return fmt.Errorf("%w: belief %s weight %d outside [%d,%d]",
				ErrMalformedImport, r.ID, r.Weight, domain.MinBeliefWeight, domain.MaxBeliefWeight)
		}
		if !domain.ValidBeliefDomain(r.Domain) {
			return fmt.Errorf("%w: belief %s has unknown domain %q", ErrMalformedImport, r.ID, r.Domain)
		}
		for _, rev := range r.RevisionHistory {
			if !domain.ValidRevisionKind(string(rev.Kind)) {
				return fmt.Errorf("%w: belief %s has unknown revision kind %q", ErrMalformedImport, r.ID, rev.Kind)
			}
		}
	}
	for _, r := range records {
		for _, c := range r.Connections {
			if c == r.ID {
				return fmt.Errorf("%w: belief %s connects to itself", ErrMalformedImport, r.ID)
			}
			if _, ok := seen[c]; !ok {
				return fmt.Errorf("%w: belief %s connects to unknown belief %s", ErrMalformedImport, r.ID, c)
			}
		}
	}
	return nil
}

// Import replaces the whole node set. Nothing is applied unless every record is valid.
// One-sided connections are made symmetric.
func (g *BeliefGraph) Import(records []domain.BeliefRecord) error {
	if err := ValidateRecords(records); err != nil {
		return err
	}

	nodes := make(map[uuid.UUID]*domain.BeliefNode, len(records))
	order := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		n := &domain.BeliefNode{
			ID:              r.ID,
			Stance:          r.Stance,
			Domain:          domain.BeliefDomain(r.Domain),
			Reasoning:       r.Reasoning,
			Weight:          r.Weight,
			IsCore:          r.IsCore,
			Connections:     []uuid.UUID{},
			RevisionHistory: append([]domain.Revision{}, r.RevisionHistory...),
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		}
		nodes[n.ID] = n
		order = append(order, n.ID)
	}
	for _, r := range records {
		a := nodes[r.ID]
		for _, c := range r.Connections {
			b := nodes[c]
			if !a.IsConnectedTo(b.ID) {
				a.Connections = append(a.Connections, b.ID)
			}
			if !b.IsConnectedTo(a.ID) {
				b.Connections = append(b.Connections, a.ID)
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = nodes
	g.order = order
	g.publishLocked(domain.BeliefEventImported, nil)

	g.logger.Info("beliefs imported", zap.Int("count", len(records)))
	return nil
}

// ApplyDeltas validates a batch against the current graph and then applies it under one
// lock, so either every delta lands or none does. Create deltas without an id get a new
// one; the caller's deltas are never modified.
func (g *BeliefGraph) ApplyDeltas(deltas []domain.BeliefDelta) ([]domain.BeliefNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending := make(map[uuid.UUID]struct{})
	createIDs := make([]uuid.UUID, len(deltas))
	exists := func(id uuid.UUID) bool {
		if _, ok := g.nodes[id]; ok {
			return true
		}
		_, ok := pending[id]
		return ok
	}

	for i := range deltas {
		d := &deltas[i]
		switch d.Kind {
		case domain.DeltaCreate:
			if d.Node == nil || strings.TrimSpace(d.Node.Stance) == "" {
				return nil, fmt.Errorf("%w: delta %d: create needs a stance", ErrInvalidDelta, i)
			}
			if !domain.ValidBeliefDomain(string(d.Node.Domain)) {
				return nil, fmt.Errorf("%w: delta %d: %v", ErrInvalidDelta, i, ErrInvalidBeliefDomain)
			}
			id := d.Node.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			if exists(id) {
				return nil, fmt.Errorf("%w: delta %d: belief %s already exists", ErrInvalidDelta, i, id)
			}
			pending[id] = struct{}{}
			createIDs[i] = id
		case domain.DeltaStrengthen, domain.DeltaWeaken:
			if !exists(d.BeliefID) {
				return nil, fmt.Errorf("%w: delta %d: %s", ErrBeliefNotFound, i, d.BeliefID)
			}
		case domain.DeltaConnect:
			if d.BeliefID == d.TargetID {
				return nil, fmt.Errorf("%w: delta %d: %v", ErrInvalidDelta, i, ErrSelfConnection)
			}
			if !exists(d.BeliefID) || !exists(d.TargetID) {
				return nil, fmt.Errorf("%w: delta %d: %s -> %s", ErrBeliefNotFound, i, d.BeliefID, d.TargetID)
			}
		default:
			return nil, fmt.Errorf("%w: delta %d: unknown kind %q", ErrInvalidDelta, i, d.Kind)
		}
	}

	touched := make(map[uuid.UUID]struct{})
	var touchedOrder []uuid.UUID
	touch := func(id uuid.UUID) {
		if _, ok := touched[id]; !ok {
			touched[id] = struct{}{}
			touchedOrder = append(touchedOrder, id)
		}
	}

	for i, d := range deltas {
		switch d.Kind {
		case domain.DeltaCreate:
			now := g.now()
			n := &domain.BeliefNode{
				ID:              createIDs[i],
				Stance:          strings.TrimSpace(d.Node.Stance),
				Domain:          d.Node.Domain,
				Reasoning:       d.Node.Reasoning,
				Weight:          domain.ClampWeight(d.Node.Weight),
				IsCore:          d.Node.IsCore,
				Connections:     []uuid.UUID{},
				RevisionHistory: []domain.Revision{},
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			g.nodes[n.ID] = n
			g.order = append(g.order, n.ID)
			g.publishLocked(domain.BeliefEventCreated, n)
			touch(n.ID)
		case domain.DeltaStrengthen:
			g.applyLocked(g.nodes[d.BeliefID], func(n *domain.BeliefNode) (int, domain.RevisionKind) {
				return n.Weight + 1, domain.RevisionStrengthen
			}, d.Reason)
			touch(d.BeliefID)
		case domain.DeltaWeaken:
			g.applyLocked(g.nodes[d.BeliefID], func(n *domain.BeliefNode) (int, domain.RevisionKind) {
				return n.Weight - 1, domain.RevisionWeaken
			}, d.Reason)
			touch(d.BeliefID)
		case domain.DeltaConnect:
			g.connectLocked(g.nodes[d.BeliefID], g.nodes[d.TargetID])
			touch(d.BeliefID)
			touch(d.TargetID)
		}
	}

	out := make([]domain.BeliefNode, 0, len(touchedOrder))
	for _, id := range touchedOrder {
		out = append(out, g.nodes[id].Clone())
	}

	g.logger.Debug("belief deltas applied", zap.Int("deltas", len(deltas)), zap.Int("touched", len(out)))
	return out, nil
}
