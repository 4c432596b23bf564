package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/webhook-relay/internal/domain"
	"github.com/Priya8975/webhook-relay/internal/store"
)

type SearchHandler struct {
	store  *store.EventStore
	logger *slog.Logger
}

func NewSearchHandler(es *store.EventStore, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{store: es, logger: logger}
}

type searchRequest struct {
	Status        string     `json:"status"`
	EventType     string     `json:"event_type"`
	FromTimestamp *time.Time `json:"from_timestamp"`
	ToTimestamp   *time.Time `json:"to_timestamp"`
	Skip          int        `json:"skip"`
	Limit         int        `json:"limit"`
}

type searchResponse struct {
	Data    []domain.Event       `json:"data"`
	Summary *store.SearchSummary `json:"summary"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	req.Limit = 10

	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "malformed search body")
			return
		}
	}

	if req.Status != "" && !domain.Status(req.Status).Valid() {
		respondError(w, http.StatusUnprocessableEntity, "invalid status filter")
		return
	}

	if req.FromTimestamp != nil && req.ToTimestamp != nil && !req.ToTimestamp.After(*req.FromTimestamp) {
		respondError(w, http.StatusUnprocessableEntity, "to_timestamp must be greater than from_timestamp")
		return
	}

	filter := store.SearchFilter{
		Status:        domain.Status(req.Status),
		EventType:     req.EventType,
		FromTimestamp: req.FromTimestamp,
		ToTimestamp:   req.ToTimestamp,
		Skip:          req.Skip,
		Limit:         req.Limit,
	}

	events, summary, err := h.store.Search(r.Context(), filter)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, searchResponse{Data: events, Summary: summary})
}
