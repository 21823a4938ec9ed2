package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/sovern/internal/service"
)

type PatternHandler struct {
	svc        *service.TurnService
	aggregator *service.PatternAggregator
}

func NewPatternHandler(svc *service.TurnService, aggregator *service.PatternAggregator) *PatternHandler {
	return &PatternHandler{svc: svc, aggregator: aggregator}
}

type patternDecisionRequest struct {
	Pattern string `json:"pattern"`
}

// List returns the last aggregation. ?refresh=true re-aggregates over stored memory records first.
func (h *PatternHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		report, err := h.svc.RefreshPatterns(r.Context())
		if err != nil {
			writeTurnError(w, err, "failed to aggregate patterns")
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}
	writeJSON(w, http.StatusOK, h.aggregator.Report())
}

func (h *PatternHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.aggregator.Confirm, "failed to confirm pattern")
}

func (h *PatternHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.aggregator.Reject, "failed to reject pattern")
}

func (h *PatternHandler) decide(w http.ResponseWriter, r *http.Request, fn func(string) error, fallback string) {
	var req patternDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Pattern) == "" {
		writeError(w, http.StatusBadRequest, "pattern is required")
		return
	}

	if err := fn(req.Pattern); err != nil {
		writeTurnError(w, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, h.aggregator.Report())
}
