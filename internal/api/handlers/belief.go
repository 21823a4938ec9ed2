package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type BeliefHandler struct {
	graph        *service.BeliefGraph
	dominanceCap float64
}

func NewBeliefHandler(graph *service.BeliefGraph, dominanceCap float64) *BeliefHandler {
	return &BeliefHandler{graph: graph, dominanceCap: dominanceCap}
}

type createBeliefRequest struct {
	Stance    string `json:"stance"`
	Domain    string `json:"domain"`
	Reasoning string `json:"reasoning"`
	Weight    *int   `json:"weight,omitempty"`
	IsCore    bool   `json:"is_core"`
}

type updateWeightRequest struct {
	Weight *int   `json:"weight"`
	Reason string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type beliefListResponse struct {
	Beliefs []domain.BeliefNode `json:"beliefs"`
	Count   int                 `json:"count"`
}

type beliefExport struct {
	Beliefs []domain.BeliefRecord `json:"beliefs"`
	Version uint64                `json:"version"`
}

const defaultBeliefWeight = 5

func (h *BeliefHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := limitParam(w, r, 0)
	if !ok {
		return
	}

	var beliefs []domain.BeliefNode
	switch kind := q.Get("kind"); kind {
	case "":
		beliefs = h.graph.All()
	case "core":
		beliefs = h.graph.CoreBeliefs()
	case "learned":
		beliefs = h.graph.LearnedBeliefs()
	case "volatile":
		beliefs = h.graph.VolatileBeliefs(limit)
	case "stable":
		beliefs = h.graph.StableBeliefs(limit)
	default:
		writeError(w, http.StatusBadRequest, "kind must be one of core, learned, volatile, stable")
		return
	}

	if d := q.Get("domain"); d != "" {
		if !domain.ValidBeliefDomain(d) {
			writeError(w, http.StatusBadRequest, service.ErrInvalidBeliefDomain.Error())
			return
		}
		beliefs = keepBeliefs(beliefs, func(b *domain.BeliefNode) bool { return b.Domain == domain.BeliefDomain(d) })
	}
	if stance := strings.TrimSpace(q.Get("stance")); stance != "" {
		matches := make(map[uuid.UUID]struct{})
		for _, b := range h.graph.FindByStance(stance) {
			matches[b.ID] = struct{}{}
		}
		beliefs = keepBeliefs(beliefs, func(b *domain.BeliefNode) bool {
			_, ok := matches[b.ID]
			return ok
		})
	}
	if limit > 0 && len(beliefs) > limit {
		beliefs = beliefs[:limit]
	}
	if beliefs == nil {
		beliefs = []domain.BeliefNode{}
	}

	writeJSON(w, http.StatusOK, beliefListResponse{Beliefs: beliefs, Count: len(beliefs)})
}

func keepBeliefs(in []domain.BeliefNode, keep func(*domain.BeliefNode) bool) []domain.BeliefNode {
	out := in[:0:0]
	for i := range in {
		if keep(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}

func (h *BeliefHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBeliefRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	weight := defaultBeliefWeight
	if req.Weight != nil {
		weight = *req.Weight
	}

	belief, err := h.graph.Create(req.Stance, domain.BeliefDomain(req.Domain), req.Reasoning, weight, req.IsCore)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBeliefStanceEmpty),
			errors.Is(err, service.ErrInvalidBeliefDomain):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create belief")
		}
		return
	}

	writeJSON(w, http.StatusCreated, belief)
}

func (h *BeliefHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "belief id")
	if !ok {
		return
	}

	belief, err := h.graph.Get(id)
	if err != nil {
		writeBeliefError(w, err, "failed to get belief")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

func (h *BeliefHandler) UpdateWeight(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "belief id")
	if !ok {
		return
	}

	var req updateWeightRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Weight == nil {
		writeError(w, http.StatusBadRequest, "weight is required")
		return
	}

	belief, err := h.graph.UpdateWeight(id, *req.Weight, req.Reason)
	if err != nil {
		writeBeliefError(w, err, "failed to update weight")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

// Revise handles POST /beliefs/{id}/{action} for challenge, strengthen, weaken and revise.
func (h *BeliefHandler) Revise(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "belief id")
	if !ok {
		return
	}

	var apply func(id uuid.UUID, reason string) (*domain.BeliefNode, error)
	switch chi.URLParam(r, "action") {
	case "challenge":
		apply = h.graph.Challenge
	case "strengthen":
		apply = h.graph.Strengthen
	case "weaken":
		apply = h.graph.Weaken
	case "revise":
		apply = h.graph.Revise
	default:
		writeError(w, http.StatusNotFound, "unknown belief action")
		return
	}

	var req reasonRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	belief, err := apply(id, req.Reason)
	if err != nil {
		writeBeliefError(w, err, "failed to revise belief")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

func (h *BeliefHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, h.graph.Connect)
}

func (h *BeliefHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, h.graph.Disconnect)
}

func (h *BeliefHandler) link(w http.ResponseWriter, r *http.Request, fn func(a, b uuid.UUID) error) {
	a, ok := uuidParam(w, r, "id", "belief id")
	if !ok {
		return
	}
	b, ok := uuidParam(w, r, "otherID", "connected belief id")
	if !ok {
		return
	}

	if err := fn(a, b); err != nil {
		writeBeliefError(w, err, "failed to update connection")
		return
	}
	belief, err := h.graph.Get(a)
	if err != nil {
		writeBeliefError(w, err, "failed to get belief")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

func (h *BeliefHandler) Coherence(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"network_coherence": h.graph.NetworkCoherence(),
		"belief_count":      h.graph.Len(),
	}

	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid belief id")
			return
		}
		c, err := h.graph.NodeCoherence(id)
		if err != nil {
			writeBeliefError(w, err, "failed to compute coherence")
			return
		}
		resp["belief_id"] = id
		resp["node_coherence"] = c
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *BeliefHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.graph.Health(h.dominanceCap))
}

func (h *BeliefHandler) Export(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, beliefExport{
		Beliefs: h.graph.Export(),
		Version: h.graph.Version(),
	})
}

// Import replaces the whole graph. The body uses the same shape Export returns.
func (h *BeliefHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req beliefExport
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.graph.Import(req.Beliefs); err != nil {
		if errors.Is(err, service.ErrMalformedImport) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to import beliefs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imported": len(req.Beliefs),
		"version":  h.graph.Version(),
	})
}

func writeBeliefError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrBeliefNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSelfConnection):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
