package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBeliefNotFound      = errors.New("belief not found")
	ErrBeliefStanceEmpty   = errors.New("stance is required")
	ErrInvalidBeliefDomain = errors.New("invalid belief domain")
	ErrSelfConnection      = errors.New("a belief cannot connect to itself")
	ErrMalformedImport     = errors.New("malformed belief import")
	ErrInvalidDelta        = errors.New("invalid belief delta")
)

const (
	// ChallengePenaltyLearned is the weight lost by a learned belief when challenged.
	ChallengePenaltyLearned = 2
	// ChallengePenaltyCore is the weight lost by a core belief when challenged.
	ChallengePenaltyCore = 1
	// RevisionCoherencePenalty is subtracted from coherence per recorded revision.
	RevisionCoherencePenalty = 2.0
	// DefaultDominanceCap is the largest share of total weight one belief may hold unflagged.
	DefaultDominanceCap = 0.4

	defaultSubscriberBuffer = 32
)

type coreSeed struct {
	stance    string
	domain    domain.BeliefDomain
	reasoning string
	weight    int
}

var coreBeliefSeeds = []coreSeed{
	{
		stance:    "Honest reasoning matters more than agreeable answers",
		domain:    domain.DomainSelf,
		reasoning: "Telling people what they want to hear erodes the trust that makes conversation useful.",
		weight:    8,
	},
	{
		stance:    "Understanding grows by questioning assumptions",
		domain:    domain.DomainKnowledge,
		reasoning: "Unexamined premises hide the gaps where learning happens.",
		weight:    7,
	},
	{
		stance:    "People deserve to reach their own conclusions",
		domain:    domain.DomainEthics,
		reasoning: "Respecting autonomy means offering perspectives rather than verdicts.",
		weight:    8,
	},
}

// BeliefGraph owns every belief node. All mutation goes through the named operations so
// that weight bounds, connection symmetry, and revision history cannot be bypassed.
type BeliefGraph struct {
	mu      sync.RWMutex
	nodes   map[uuid.UUID]*domain.BeliefNode
	order   []uuid.UUID
	version uint64

	subs    map[int]chan domain.BeliefEvent
	nextSub int

	now    func() time.Time
	logger *zap.Logger
}

func NewBeliefGraph(logger *zap.Logger) *BeliefGraph {
	return &BeliefGraph{
		nodes:  make(map[uuid.UUID]*domain.BeliefNode),
		subs:   make(map[int]chan domain.BeliefEvent),
		now:    time.Now,
		logger: logger,
	}
}

// SeedCoreBeliefs creates the foundational beliefs when the graph is empty.
// It returns the number of beliefs created.
func (g *BeliefGraph) SeedCoreBeliefs() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.nodes) > 0 {
		return 0
	}
	for _, s := range coreBeliefSeeds {
		g.insertLocked(s.stance, s.domain, s.reasoning, s.weight, true)
	}
	g.logger.Info("seeded core beliefs", zap.Int("count", len(coreBeliefSeeds)))
	return len(coreBeliefSeeds)
}

func (g *BeliefGraph) Create(stance string, d domain.BeliefDomain, reasoning string, weight int, isCore bool) (*domain.BeliefNode, error) {
	stance = strings.TrimSpace(stance)
	if stance == "" {
		return nil, ErrBeliefStanceEmpty
	}
	if !domain.ValidBeliefDomain(string(d)) {
		return nil, ErrInvalidBeliefDomain
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.insertLocked(stance, d, reasoning, weight, isCore)
	return cloneNode(n), nil
}

func (g *BeliefGraph) insertLocked(stance string, d domain.BeliefDomain, reasoning string, weight int, isCore bool) *domain.BeliefNode {
	now := g.now()
	n := &domain.BeliefNode{
		ID:              uuid.New(),
		Stance:          stance,
		Domain:          d,
		Reasoning:       reasoning,
		Weight:          domain.ClampWeight(weight),
		IsCore:          isCore,
		Connections:     []uuid.UUID{},
		RevisionHistory: []domain.Revision{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)

	g.logger.Debug("belief created",
		zap.String("belief_id", n.ID.String()),
		zap.String("domain", string(d)),
		zap.Int("weight", n.Weight),
		zap.Bool("is_core", isCore))

	g.publishLocked(domain.BeliefEventCreated, n)
	return n
}

func (g *BeliefGraph) Get(id uuid.UUID) (*domain.BeliefNode, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrBeliefNotFound
	}
	return cloneNode(n), nil
}

// UpdateWeight sets a belief's weight, clamped to the valid range. The revision kind
// records the direction of the change.
func (g *BeliefGraph) UpdateWeight(id uuid.UUID, newWeight int, reason string) (*domain.BeliefNode, error) {
	return g.mutate(id, func(n *domain.BeliefNode) (int, domain.RevisionKind) {
		w := domain.ClampWeight(newWeight)
		switch {
		case w > n.Weight:
			return w, domain.RevisionStrengthen
		case w < n.Weight:
			return w, domain.RevisionWeaken
		default:
			return w, domain.RevisionRevise
		}
	}, reason)
}

// Challenge lowers weight by two for learned beliefs and by one for core beliefs.
func (g *BeliefGraph) Challenge(id uuid.UUID, reason string) (*domain.BeliefNode, error) {
	return g.mutate(id, func(n *domain.BeliefNode) (int, domain.RevisionKind) {
		penalty := ChallengePenaltyLearned
		if n.IsCore {
			penalty = ChallengePenaltyCore
		}
		return n.Weight - penalty, domain.RevisionChallenge
	}, reason)
}

func (g *BeliefGraph) Strengthen(id uuid.UUID, reason string) (*domain.BeliefNode, error) {
	return g.mutate(id, func(n *domain.BeliefNode) (int, domain.RevisionKind) {
		return n.Weight + 1, domain.RevisionStrengthen
	}, reason)
}

func (g *BeliefGraph) Weaken(id uuid.UUID, reason string) (*domain.BeliefNode, error) {
	return g.mutate(id, func(n *domain.BeliefNode) (int, domain.RevisionKind) {
		return n.Weight - 1, domain.RevisionWeaken
	}, reason)
}

// Revise records a change of rationale without moving the weight.
func (g *BeliefGraph) Revise(id uuid.UUID, reason string) (*domain.BeliefNode, error) {
	return g.mutate(id, func(n *domain.BeliefNode) (int, domain.RevisionKind) {
		return n.Weight, domain.RevisionRevise
	}, reason)
}

func (g *BeliefGraph) mutate(id uuid.UUID, fn func(n *domain.BeliefNode) (int, domain.RevisionKind), reason string) (*domain.BeliefNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrBeliefNotFound
	}
	g.applyLocked(n, fn, reason)
	return cloneNode(n), nil
}

func (g *BeliefGraph) applyLocked(n *domain.BeliefNode, fn func(n *domain.BeliefNode) (int, domain.RevisionKind), reason string) {
	oldWeight := n.Weight
	w, kind := fn(n)
	now := g.now()

	n.Weight = domain.ClampWeight(w)
	n.RevisionHistory = append(n.RevisionHistory, domain.Revision{
		Timestamp: now,
		Kind:      kind,
		Reason:    reason,
	})
	n.UpdatedAt = now

	g.logger.Debug("belief revised",
		zap.String("belief_id", n.ID.String()),
		zap.String("kind", string(kind)),
		zap.Int("old_weight", oldWeight),
		zap.Int("new_weight", n.Weight))

	g.publishLocked(domain.BeliefEventRevised, n)
}

// Connect links two beliefs in both directions. Connecting an existing pair is a no-op.
func (g *BeliefGraph) Connect(a, b uuid.UUID) error {
	if a == b {
		return ErrSelfConnection
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	na, nb, err := g.pairLocked(a, b)
	if err != nil {
		return err
	}
	g.connectLocked(na, nb)
	return nil
}

func (g *BeliefGraph) connectLocked(na, nb *domain.BeliefNode) {
	if na.IsConnectedTo(nb.ID) && nb.IsConnectedTo(na.ID) {
		return
	}
	now := g.now()
	if !na.IsConnectedTo(nb.ID) {
		na.Connections = append(na.Connections, nb.ID)
		na.UpdatedAt = now
	}
	if !nb.IsConnectedTo(na.ID) {
		nb.Connections = append(nb.Connections, na.ID)
		nb.UpdatedAt = now
	}
	g.publishLocked(domain.BeliefEventConnected, na)
	g.publishLocked(domain.BeliefEventConnected, nb)
}

// Disconnect removes the link in both directions. Disconnecting an unlinked pair is a no-op.
func (g *BeliefGraph) Disconnect(a, b uuid.UUID) error {
	if a == b {
		return ErrSelfConnection
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	na, nb, err := g.pairLocked(a, b)
	if err != nil {
		return err
	}
	if !na.IsConnectedTo(b) && !nb.IsConnectedTo(a) {
		return nil
	}
	now := g.now()
	na.Connections = removeID(na.Connections, b)
	nb.Connections = removeID(nb.Connections, a)
	na.UpdatedAt = now
	nb.UpdatedAt = now

	g.publishLocked(domain.BeliefEventDisconnected, na)
	g.publishLocked(domain.BeliefEventDisconnected, nb)
	return nil
}

func (g *BeliefGraph) pairLocked(a, b uuid.UUID) (*domain.BeliefNode, *domain.BeliefNode, error) {
	na, ok := g.nodes[a]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBeliefNotFound, a)
	}
	nb, ok := g.nodes[b]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBeliefNotFound, b)
	}
	return na, nb, nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// All returns every belief in creation order.
func (g *BeliefGraph) All() []domain.BeliefNode {
	return g.filter(func(*domain.BeliefNode) bool { return true })
}

func (g *BeliefGraph) ByDomain(d domain.BeliefDomain) []domain.BeliefNode {
	return g.filter(func(n *domain.BeliefNode) bool { return n.Domain == d })
}

func (g *BeliefGraph) CoreBeliefs() []domain.BeliefNode {
	return g.filter(func(n *domain.BeliefNode) bool { return n.IsCore })
}

func (g *BeliefGraph) LearnedBeliefs() []domain.BeliefNode {
	return g.filter(func(n *domain.BeliefNode) bool { return !n.IsCore })
}

// FindByStance returns exact (case-insensitive) stance matches first, then substring matches.
func (g *BeliefGraph) FindByStance(query string) []domain.BeliefNode {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var exact, partial []domain.BeliefNode
	for _, n := range g.All() {
		s := strings.ToLower(n.Stance)
		switch {
		case s == q:
			exact = append(exact, n)
		case strings.Contains(s, q):
			partial = append(partial, n)
		}
	}
	return append(exact, partial...)
}

// VolatileBeliefs returns up to limit beliefs ordered by revision count, most revised first.
func (g *BeliefGraph) VolatileBeliefs(limit int) []domain.BeliefNode {
	all := g.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RevisionCount() > all[j].RevisionCount()
	})
	return truncateBeliefs(all, limit)
}

// StableBeliefs returns up to limit beliefs ordered by revision count, least revised first.
func (g *BeliefGraph) StableBeliefs(limit int) []domain.BeliefNode {
	all := g.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RevisionCount() < all[j].RevisionCount()
	})
	return truncateBeliefs(all, limit)
}

func truncateBeliefs(nodes []domain.BeliefNode, limit int) []domain.BeliefNode {
	if limit > 0 && len(nodes) > limit {
		return nodes[:limit]
	}
	return nodes
}

func (g *BeliefGraph) filter(keep func(*domain.BeliefNode) bool) []domain.BeliefNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.BeliefNode, 0, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		if keep(n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (g *BeliefGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Version increases with every mutation. Pollers compare it to detect change.
func (g *BeliefGraph) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Subscribe registers an observer. Events are dropped for a subscriber whose buffer is
// full; the returned func unregisters and closes the channel.
func (g *BeliefGraph) Subscribe(buffer int) (<-chan domain.BeliefEvent, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan domain.BeliefEvent, buffer)

	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = ch
	g.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
			close(ch)
		})
	}
}

func (g *BeliefGraph) publishLocked(kind domain.BeliefEventKind, n *domain.BeliefNode) {
	g.version++
	if len(g.subs) == 0 {
		return
	}
	evt := domain.BeliefEvent{
		Kind:    kind,
		Version: g.version,
		At:      g.now(),
	}
	if n != nil {
		evt.Belief = cloneNode(n)
	}
	for id, ch := range g.subs {
		select {
		case ch <- evt:
		default:
			g.logger.Warn("dropping belief event for slow subscriber",
				zap.Int("subscriber", id),
				zap.Uint64("version", g.version))
		}
	}
}

func cloneNode(n *domain.BeliefNode) *domain.BeliefNode {
	c := n.Clone()
	return &c
}
