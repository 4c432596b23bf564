package domain

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an Event. Transitions form a DAG:
// Received -> Delivering -> {Delivered, Received, FailedPermanently}.
type Status string

const (
	StatusReceived          Status = "RECEIVED"
	StatusDelivering        Status = "DELIVERING"
	StatusDelivered         Status = "DELIVERED"
	StatusFailedPermanently Status = "FAILED_PERMANENTLY"
)

// Valid reports whether s is one of the known statuses. Used to reject
// unnormalized status strings at the search boundary.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusDelivering, StatusDelivered, StatusFailedPermanently:
		return true
	}
	return false
}

// AttemptRecord is a single outbound delivery completion, append-only
// and ordered by AttemptNumber starting at 1.
type AttemptRecord struct {
	AttemptNumber  int       `json:"attempt_number"`
	HTTPStatusCode *int      `json:"http_status_code"`
	Success        bool      `json:"success"`
	Timestamp      time.Time `json:"timestamp"`
}

// Event is the only persistent entity in the relay. Payload is stored
// verbatim as an opaque nested map; only EventType and IdempotencyKey
// are ever extracted from it for indexing.
type Event struct {
	ID               string          `json:"id"`
	Payload          json.RawMessage `json:"payload"`
	EventType        string          `json:"event_type,omitempty"`
	IdempotencyKey   string          `json:"idempotency_key,omitempty"`
	ReceivedAt       time.Time       `json:"received_at"`
	Status           Status          `json:"status"`
	LockedAt         *time.Time      `json:"locked_at,omitempty"`
	DeliveryAttempts []AttemptRecord `json:"delivery_attempts"`
}
