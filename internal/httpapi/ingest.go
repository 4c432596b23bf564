package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-relay/internal/metrics"
	"github.com/Priya8975/webhook-relay/internal/queue"
	"github.com/Priya8975/webhook-relay/internal/store"
)

var errMalformed = errors.New("malformed json body")

type IngestHandler struct {
	store     *store.EventStore
	queue     *queue.Queue
	secretKey string
	logger    *slog.Logger
}

func NewIngestHandler(es *store.EventStore, q *queue.Queue, secretKey string, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{store: es, queue: q, secretKey: secretKey, logger: logger}
}

type ingestResult struct {
	Status     string `json:"status"`
	EventID    string `json:"event_id,omitempty"`
	Idempotent bool   `json:"idempotent"`
	Error      string `json:"error,omitempty"`
}

type rawEvent struct {
	EventType      string `json:"event_type"`
	IdempotencyKey string `json:"idempotency_key"`
	raw            json.RawMessage
}

// Ingest verifies the request signature over the raw body, normalizes
// the body into a batch of events, and persists + enqueues each
// independently.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())
	logger := h.logger.With("request_id", requestID)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("X-Signature")
	if signature == "" {
		respondError(w, http.StatusBadRequest, "X-Signature header is required")
		return
	}

	if !h.verifySignature(body, signature) {
		respondError(w, http.StatusUnauthorized, "signature mismatch")
		return
	}

	events, err := normalizeBatch(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	results := make([]ingestResult, len(events))
	for i, ev := range events {
		results[i] = h.processEvent(r.Context(), ev, requestID, logger)
	}

	respondJSON(w, http.StatusOK, results)
}

func (h *IngestHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secretKey))
	mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, decoded)
}

// processEvent inserts a single event and enqueues its delivery job.
// Failures are isolated per event; one store error does not abort
// siblings already processed.
func (h *IngestHandler) processEvent(ctx context.Context, ev rawEvent, requestID string, logger *slog.Logger) ingestResult {
	event, idempotent, err := h.store.CreateEvent(ctx, ev.raw, ev.EventType, ev.IdempotencyKey)
	if err != nil {
		if errors.Is(err, store.ErrIdempotencyConflict) {
			logger.Error("idempotency key conflict with no matching row", "idempotency_key", ev.IdempotencyKey)
			return ingestResult{Status: "error", Error: "internal error"}
		}
		logger.Error("failed to insert event", "error", err)
		return ingestResult{Status: "error", Error: "internal error"}
	}

	metrics.IncWebhooksReceived()

	if idempotent {
		return ingestResult{Status: "received", EventID: event.ID, Idempotent: true}
	}

	if err := h.queue.Enqueue(ctx, queue.Job{EventID: event.ID, RequestID: requestID}); err != nil {
		// Best-effort: the event remains RECEIVED and retriable by an
		// external sweeper; the HTTP response is not blocked on this.
		logger.Error("failed to enqueue delivery job", "error", err, "event_id", event.ID)
	}

	return ingestResult{Status: "received", EventID: event.ID, Idempotent: false}
}

// normalizeBatch parses the body as JSON; if the root is an array it is
// treated as a batch, otherwise the single object is wrapped in a
// one-element batch.
func normalizeBatch(body []byte) ([]rawEvent, error) {
	trimmed := trimLeadingSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, err
		}
		events := make([]rawEvent, len(raws))
		for i, r := range raws {
			ev, err := parseEvent(r)
			if err != nil {
				return nil, err
			}
			events[i] = ev
		}
		return events, nil
	}

	if !json.Valid(body) {
		return nil, errMalformed
	}
	ev, err := parseEvent(body)
	if err != nil {
		return nil, err
	}
	return []rawEvent{ev}, nil
}

func parseEvent(raw json.RawMessage) (rawEvent, error) {
	var fields struct {
		EventType      string `json:"event_type"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rawEvent{}, err
	}
	return rawEvent{EventType: fields.EventType, IdempotencyKey: fields.IdempotencyKey, raw: raw}, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return b[i:]
		}
	}
	return b[i:]
}
