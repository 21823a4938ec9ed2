package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
)

type EmergenceHandler struct {
	svc *service.TurnService
}

func NewEmergenceHandler(svc *service.TurnService) *EmergenceHandler {
	return &EmergenceHandler{svc: svc}
}

type emergentCandidate struct {
	domain.EmergentBeliefCandidate
	// Preview is the belief the candidate would become if accepted.
	Preview domain.BeliefNode `json:"preview"`
}

type emergenceResponse struct {
	Candidates []emergentCandidate `json:"candidates"`
	Count      int                 `json:"count"`
}

// Scan proposes new beliefs for a deliberation. Nothing is applied.
func (h *EmergenceHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var entry domain.LogicEntry
	if !decodeJSON(w, r, &entry) {
		return
	}

	candidates, err := h.svc.ScanEmergence(r.Context(), &entry)
	if err != nil {
		writeTurnError(w, err, "failed to scan for emergent beliefs")
		return
	}

	out := make([]emergentCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, emergentCandidate{EmergentBeliefCandidate: c, Preview: service.ToBeliefNode(c)})
	}
	writeJSON(w, http.StatusOK, emergenceResponse{Candidates: out, Count: len(out)})
}
