package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Priya8975/webhook-relay/internal/domain"
)

// ErrIdempotencyConflict is returned when a unique-index violation on
// idempotency_key occurs but no existing row can be found for that key.
var ErrIdempotencyConflict = errors.New("idempotency key conflict with no matching row")

const uniqueViolation = "23505"

// CreateEvent inserts a new event with status RECEIVED. If the
// idempotency key collides with an existing row, it returns the
// existing event and idempotent=true instead of an error.
func (s *EventStore) CreateEvent(ctx context.Context, payload json.RawMessage, eventType, idempotencyKey string) (event *domain.Event, idempotent bool, err error) {
	id := uuid.NewString()
	receivedAt := time.Now().UTC()

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}
	var typ *string
	if eventType != "" {
		typ = &eventType
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO events (id, payload, event_type, idempotency_key, received_at, status, delivery_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, '[]'::jsonb)
		RETURNING id, payload, event_type, idempotency_key, received_at, status, locked_at, delivery_attempts
	`, id, payload, typ, key, receivedAt, domain.StatusReceived)

	e, err := scanEvent(row)
	if err == nil {
		return e, false, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		existing, lookupErr := s.GetEventByIdempotencyKey(ctx, idempotencyKey)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("looking up existing idempotency key: %w", lookupErr)
		}
		if existing == nil {
			return nil, false, ErrIdempotencyConflict
		}
		return existing, true, nil
	}

	return nil, false, fmt.Errorf("inserting event: %w", err)
}

func (s *EventStore) GetEventByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, payload, event_type, idempotency_key, received_at, status, locked_at, delivery_attempts
		FROM events WHERE idempotency_key = $1
	`, idempotencyKey)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event by idempotency key: %w", err)
	}
	return e, nil
}

func (s *EventStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, payload, event_type, idempotency_key, received_at, status, locked_at, delivery_attempts
		FROM events WHERE id = $1
	`, id)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return e, nil
}

// ClaimEvent atomically transitions an event from RECEIVED to
// DELIVERING and stamps locked_at, giving the caller exclusive
// ownership. Returns nil, nil if no row matched (already claimed or
// missing) — never an error for that case.
func (s *EventStore) ClaimEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE events
		SET status = $2, locked_at = now()
		WHERE id = $1 AND status = $3
		RETURNING id, payload, event_type, idempotency_key, received_at, status, locked_at, delivery_attempts
	`, id, domain.StatusDelivering, domain.StatusReceived)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claiming event: %w", err)
	}
	return e, nil
}

// AppendAttempt appends a delivery attempt record and sets the new
// status in a single update, preserving append-only ordering on
// delivery_attempts.
func (s *EventStore) AppendAttempt(ctx context.Context, id string, attempt domain.AttemptRecord, newStatus domain.Status) error {
	attemptJSON, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshaling attempt record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE events
		SET delivery_attempts = delivery_attempts || $2::jsonb,
		    status = $3
		WHERE id = $1
	`, id, attemptJSON, newStatus)
	if err != nil {
		return fmt.Errorf("appending delivery attempt: %w", err)
	}
	return nil
}

// SetStatus transitions an event directly, used for the terminal
// FAILED_PERMANENTLY write after the retry loop is exhausted.
func (s *EventStore) SetStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := s.pool.Exec(ctx, `UPDATE events SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("setting status: %w", err)
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanEvent(r row) (*domain.Event, error) {
	var e domain.Event
	var eventType, idempotencyKey *string
	var attemptsJSON []byte

	err := r.Scan(
		&e.ID, &e.Payload, &eventType, &idempotencyKey,
		&e.ReceivedAt, &e.Status, &e.LockedAt, &attemptsJSON,
	)
	if err != nil {
		return nil, err
	}

	if eventType != nil {
		e.EventType = *eventType
	}
	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}
	if len(attemptsJSON) > 0 {
		if err := json.Unmarshal(attemptsJSON, &e.DeliveryAttempts); err != nil {
			return nil, fmt.Errorf("decoding delivery attempts: %w", err)
		}
	}

	return &e, nil
}
