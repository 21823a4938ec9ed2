package handlers

import (
	"fmt"
	"net/http"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
)

type PerspectiveHandler struct {
	strengthener *service.PerspectiveStrengthener
	graph        *service.BeliefGraph
}

func NewPerspectiveHandler(strengthener *service.PerspectiveStrengthener, graph *service.BeliefGraph) *PerspectiveHandler {
	return &PerspectiveHandler{strengthener: strengthener, graph: graph}
}

type strengthenRequest struct {
	Perspectives []domain.CongressPerspective `json:"perspectives"`
}

type strengthenResponse struct {
	Perspectives []domain.CongressPerspective `json:"perspectives"`
}

// Strengthen links each perspective to aligned beliefs and blends in their weight.
// Incoming linked_belief_ids are ignored; links are always recomputed.
func (h *PerspectiveHandler) Strengthen(w http.ResponseWriter, r *http.Request) {
	var req strengthenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Perspectives) == 0 {
		writeError(w, http.StatusBadRequest, "perspectives are required")
		return
	}

	out := make([]domain.CongressPerspective, 0, len(req.Perspectives))
	for i, p := range req.Perspectives {
		if err := validatePerspective(p); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("perspectives[%d]: %s", i, err))
			return
		}

		switch p.Role {
		case domain.RoleAdvocate:
			out = append(out, h.strengthener.CreateAdvocate(p.Position, p.Reasoning, p.StrengthOfArgument, p.CallNumber, h.graph))
		case domain.RoleSkeptic:
			out = append(out, h.strengthener.CreateSkeptic(p.Position, p.Reasoning, p.StrengthOfArgument, p.CallNumber, h.graph))
		default:
			p.LinkedBeliefIDs = nil
			out = append(out, h.strengthener.LinkAndStrengthen(p, h.graph))
		}
	}

	writeJSON(w, http.StatusOK, strengthenResponse{Perspectives: out})
}

func validatePerspective(p domain.CongressPerspective) error {
	if !domain.ValidPerspectiveRole(string(p.Role)) {
		return fmt.Errorf("invalid role %q", p.Role)
	}
	if p.StrengthOfArgument < domain.MinArgumentStrength || p.StrengthOfArgument > domain.MaxArgumentStrength {
		return fmt.Errorf("strength_of_argument must be between 1 and 10")
	}
	return nil
}
