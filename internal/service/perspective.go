package service

import (
	"errors"
	"strings"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// BaseStrengthShare is the share of the final strength kept from the debater's own estimate.
	BaseStrengthShare = 0.4
	// BeliefAlignmentShare is the share contributed by the mean normalized weight of linked beliefs.
	BeliefAlignmentShare = 0.6
	// MinLinkTermLength drops short words so articles and conjunctions never link beliefs.
	MinLinkTermLength = 4
)

// BeliefReader is the read side of the belief graph used by analysis stages.
type BeliefReader interface {
	All() []domain.BeliefNode
	Get(id uuid.UUID) (*domain.BeliefNode, error)
}

type PerspectiveStrengthener struct {
	logger *zap.Logger
}

func NewPerspectiveStrengthener(logger *zap.Logger) *PerspectiveStrengthener {
	return &PerspectiveStrengthener{logger: logger}
}

// LinkBeliefs returns a copy of p whose LinkedBeliefIDs hold every belief sharing a term
// with the perspective. Only advocate and skeptic perspectives are linked.
func (s *PerspectiveStrengthener) LinkBeliefs(p domain.CongressPerspective, beliefs BeliefReader) domain.CongressPerspective {
	out := p.Clone()
	if !p.Role.LinksBeliefs() {
		return out
	}

	terms := linkTerms(p.Position + " " + p.Reasoning)
	if len(terms) == 0 {
		return out
	}

	out.LinkedBeliefIDs = nil
	for _, b := range beliefs.All() {
		if termsOverlap(terms, linkTerms(b.Stance+" "+b.Reasoning)) {
			out.LinkedBeliefIDs = append(out.LinkedBeliefIDs, b.ID)
		}
	}
	return out
}

// Strengthen blends the perspective's own strength with the conviction of its linked
// beliefs: base×0.4 + mean(weight/10)×10×0.6, clamped to [1,10]. Perspectives without
// resolvable links come back unchanged.
func (s *PerspectiveStrengthener) Strengthen(p domain.CongressPerspective, beliefs BeliefReader) domain.CongressPerspective {
	out := p.Clone()

	var sum float64
	var n int
	for _, id := range p.LinkedBeliefIDs {
		b, err := beliefs.Get(id)
		if err != nil {
			if !errors.Is(err, ErrBeliefNotFound) {
				s.logger.Warn("failed to read linked belief", zap.String("belief_id", id.String()), zap.Error(err))
			}
			continue
		}
		sum += b.NormalizedWeight()
		n++
	}
	if n == 0 {
		return out
	}

	avg := sum / float64(n)
	out.StrengthOfArgument = clampFloat(
		p.StrengthOfArgument*BaseStrengthShare+avg*10*BeliefAlignmentShare,
		domain.MinArgumentStrength, domain.MaxArgumentStrength,
	)

	s.logger.Debug("perspective strengthened",
		zap.String("role", string(p.Role)),
		zap.Int("call_number", p.CallNumber),
		zap.Int("linked_beliefs", n),
		zap.Float64("base_strength", p.StrengthOfArgument),
		zap.Float64("new_strength", out.StrengthOfArgument))
	return out
}

// LinkAndStrengthen runs both steps.
func (s *PerspectiveStrengthener) LinkAndStrengthen(p domain.CongressPerspective, beliefs BeliefReader) domain.CongressPerspective {
	return s.Strengthen(s.LinkBeliefs(p, beliefs), beliefs)
}

func (s *PerspectiveStrengthener) CreateAdvocate(position, reasoning string, baseStrength float64, callNumber int, beliefs BeliefReader) domain.CongressPerspective {
	return s.create(domain.RoleAdvocate, position, reasoning, baseStrength, callNumber, beliefs)
}

func (s *PerspectiveStrengthener) CreateSkeptic(position, reasoning string, baseStrength float64, callNumber int, beliefs BeliefReader) domain.CongressPerspective {
	return s.create(domain.RoleSkeptic, position, reasoning, baseStrength, callNumber, beliefs)
}

func (s *PerspectiveStrengthener) create(role domain.PerspectiveRole, position, reasoning string, baseStrength float64, callNumber int, beliefs BeliefReader) domain.CongressPerspective {
	p := domain.CongressPerspective{
		Role:               role,
		Position:           position,
		Reasoning:          reasoning,
		StrengthOfArgument: clampFloat(baseStrength, domain.MinArgumentStrength, domain.MaxArgumentStrength),
		CallNumber:         callNumber,
	}
	return s.LinkAndStrengthen(p, beliefs)
}

func linkTerms(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range words(strings.ToLower(text)) {
		if len(w) < MinLinkTermLength {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func termsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}
