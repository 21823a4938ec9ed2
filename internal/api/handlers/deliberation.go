package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
	"github.com/go-chi/chi/v5"
)

type DeliberationHandler struct {
	svc *service.TurnService
}

func NewDeliberationHandler(svc *service.TurnService) *DeliberationHandler {
	return &DeliberationHandler{svc: svc}
}

type turnRequest struct {
	Entry  domain.LogicEntry `json:"entry"`
	DryRun bool              `json:"dry_run"`
}

// Score flags profound insights without persisting or touching beliefs.
func (h *DeliberationHandler) Score(w http.ResponseWriter, r *http.Request) {
	var entry domain.LogicEntry
	if !decodeJSON(w, r, &entry) {
		return
	}

	report, err := h.svc.Score(r.Context(), &entry)
	if err != nil {
		writeTurnError(w, err, "failed to score deliberation")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ProcessTurn runs the full pipeline. A dry run returns the planned deltas without applying them.
func (h *DeliberationHandler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Process(r.Context(), &req.Entry, req.DryRun)
	if err != nil {
		writeTurnError(w, err, "failed to process turn")
		return
	}

	status := http.StatusCreated
	if req.DryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (h *DeliberationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deliberation id")
	if !ok {
		return
	}

	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		writeTurnError(w, err, "failed to get deliberation")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type flagStepRequest struct {
	Flagged *bool `json:"flagged"`
}

// FlagStep handles POST /deliberations/{id}/steps/{index}/flag.
func (h *DeliberationHandler) FlagStep(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deliberation id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid step index")
		return
	}

	req := flagStepRequest{}
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	flagged := true
	if req.Flagged != nil {
		flagged = *req.Flagged
	}

	report, err := h.svc.FlagStep(r.Context(), id, index, flagged)
	if err != nil {
		writeTurnError(w, err, "failed to flag step")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeTurnError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUserQueryEmpty),
		errors.Is(err, service.ErrDeliberationOpen),
		errors.Is(err, service.ErrInvalidDeliberation),
		errors.Is(err, service.ErrMemoryRecordEmpty),
		errors.Is(err, service.ErrInvalidInsight),
		errors.Is(err, service.ErrStepNotInsight),
		errors.Is(err, service.ErrStepOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLogicEntryNotFound),
		errors.Is(err, service.ErrMemoryRecordNotFound),
		errors.Is(err, service.ErrPatternNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidDelta),
		errors.Is(err, service.ErrBeliefNotFound):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
