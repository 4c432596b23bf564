// Package worker implements the delivery side: claiming an event,
// running the bounded in-process retry loop against the downstream
// endpoint, and recording each attempt. Retries sleep in-process
// between attempts on a fixed backoff schedule rather than
// re-enqueuing to Redis.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Priya8975/webhook-relay/internal/domain"
	"github.com/Priya8975/webhook-relay/internal/metrics"
	"github.com/Priya8975/webhook-relay/internal/queue"
	"github.com/Priya8975/webhook-relay/internal/store"
)

const maxAttempts = 5

// backoffSchedule is the fixed per-attempt sleep before the next retry,
// index i giving the delay after attempt i+1 fails.
var backoffSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

type Deliverer struct {
	httpClient    *http.Client
	store         *store.EventStore
	downstreamURL string
	logger        *slog.Logger
}

func NewDeliverer(es *store.EventStore, downstreamURL string, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		store:         es,
		downstreamURL: downstreamURL,
		logger:        logger,
	}
}

// Deliver claims the event named by job.EventID and, if the claim
// succeeds, runs the retry loop to completion. If the event is already
// claimed or missing, Deliver logs that and returns without error — this is the expected
// outcome when two workers race to pick up the same job.
func (d *Deliverer) Deliver(ctx context.Context, job queue.Job) {
	logger := d.logger.With("event_id", job.EventID, "request_id", job.RequestID)

	if _, err := uuid.Parse(job.EventID); err != nil {
		metrics.IncDeliveriesFailed()
		logger.Warn("dropping job with malformed event id", "error", err)
		return
	}

	event, err := d.store.ClaimEvent(ctx, job.EventID)
	if err != nil {
		logger.Error("claim failed", "error", err)
		return
	}
	if event == nil {
		logger.Info("event already claimed or missing")
		return
	}

	logger.Info("delivery started")

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		success, statusCode := d.attempt(ctx, event, attempt, logger)

		record := domain.AttemptRecord{
			AttemptNumber:  attempt,
			HTTPStatusCode: statusCode,
			Success:        success,
			Timestamp:      time.Now().UTC(),
		}

		nextStatus := domain.StatusReceived
		if success {
			nextStatus = domain.StatusDelivered
		}
		if err := d.store.AppendAttempt(ctx, job.EventID, record, nextStatus); err != nil {
			logger.Error("failed to record delivery attempt", "error", err, "attempt", attempt)
		}

		if success {
			metrics.IncDeliveriesSuccessful()
			logger.Info("delivery successful", "attempt", attempt, "status_code", statusCode)
			return
		}

		metrics.IncDeliveriesFailed()
		logger.Warn("delivery attempt failed", "attempt", attempt, "status_code", statusCode)

		if attempt < maxAttempts {
			delay := backoffSchedule[attempt-1]
			metrics.IncRetryAttempts()
			logger.Info("retry scheduled", "next_attempt", attempt+1, "backoff", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}

	if err := d.store.SetStatus(ctx, job.EventID, domain.StatusFailedPermanently); err != nil {
		logger.Error("failed to set terminal status", "error", err)
	}
	logger.Error("delivery failed permanently", "max_attempts", maxAttempts)
}

func (d *Deliverer) attempt(ctx context.Context, event *domain.Event, attemptNumber int, logger *slog.Logger) (success bool, statusCode *int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.downstreamURL, bytes.NewReader(event.Payload))
	if err != nil {
		logger.Error("failed to build delivery request", "error", err, "attempt", attemptNumber)
		return false, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", event.ID)
	req.Header.Set("X-Webhook-Attempt", fmt.Sprintf("%d", attemptNumber))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		logger.Warn("delivery request failed", "error", err, "attempt", attemptNumber)
		return false, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	code := resp.StatusCode
	return code == http.StatusOK, &code
}
