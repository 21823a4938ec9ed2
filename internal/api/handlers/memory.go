package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
	"github.com/google/uuid"
)

type MemoryHandler struct {
	svc *service.TurnService
}

func NewMemoryHandler(svc *service.TurnService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type createMemoryRequest struct {
	LogicEntryID  *uuid.UUID             `json:"logic_entry_id,omitempty"`
	HumanInsights []domain.MemoryInsight `json:"human_insights"`
	SelfInsights  []domain.MemoryInsight `json:"self_insights"`
}

type memoryListResponse struct {
	Records []domain.MemoryRecord `json:"records"`
	Count   int                   `json:"count"`
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record := &domain.MemoryRecord{
		LogicEntryID:  req.LogicEntryID,
		HumanInsights: req.HumanInsights,
		SelfInsights:  req.SelfInsights,
	}
	if err := h.svc.CreateMemory(r.Context(), record); err != nil {
		writeTurnError(w, err, "failed to create memory record")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 0)
	if !ok {
		return
	}

	records, err := h.svc.ListMemories(r.Context(), limit)
	if err != nil {
		writeTurnError(w, err, "failed to list memory records")
		return
	}
	if records == nil {
		records = []domain.MemoryRecord{}
	}
	writeJSON(w, http.StatusOK, memoryListResponse{Records: records, Count: len(records)})
}

func (h *MemoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory record id")
	if !ok {
		return
	}

	record, err := h.svc.GetMemory(r.Context(), id)
	if err != nil {
		writeTurnError(w, err, "failed to get memory record")
		return
	}
	writeJSON(w, http.StatusOK, record)
}
