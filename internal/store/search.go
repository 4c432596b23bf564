package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Priya8975/webhook-relay/internal/domain"
)

// SearchFilter mirrors the filterable fields of POST /webhooks/search.
// Zero values mean "no filter" for that field.
type SearchFilter struct {
	Status        domain.Status
	EventType     string
	FromTimestamp *time.Time
	ToTimestamp   *time.Time
	Skip          int
	Limit         int
}

// HistogramBucket is one hourly bucket in the search summary.
type HistogramBucket struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

// SearchSummary aggregates counts over the filtered result set,
// independent of the page returned alongside it.
type SearchSummary struct {
	StatusCounts    map[string]int    `json:"status_counts"`
	EventTypeCounts map[string]int    `json:"event_type_counts"`
	HourlyHistogram []HistogramBucket `json:"hourly_histogram"`
}

// Search returns the filtered, paginated event list plus an
// aggregated summary over the same filter (not the same page).
func (s *EventStore) Search(ctx context.Context, f SearchFilter) ([]domain.Event, *SearchSummary, error) {
	where, args := buildSearchWhere(f)

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT id, payload, event_type, idempotency_key, received_at, status, locked_at, delivery_attempts
		FROM events
		%s
		ORDER BY received_at DESC
		LIMIT %d OFFSET %d
	`, where, limit, f.Skip)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("searching events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning searched event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating searched events: %w", err)
	}

	summary, err := s.searchSummary(ctx, where, args)
	if err != nil {
		return nil, nil, err
	}

	return events, summary, nil
}

func (s *EventStore) searchSummary(ctx context.Context, where string, args []any) (*SearchSummary, error) {
	summary := &SearchSummary{
		StatusCounts:    map[string]int{},
		EventTypeCounts: map[string]int{},
		HourlyHistogram: []HistogramBucket{},
	}

	statusRows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT status, COUNT(*) FROM events %s GROUP BY status
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating status counts: %w", err)
	}
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			statusRows.Close()
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		summary.StatusCounts[status] = count
	}
	statusRows.Close()
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	typeRows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT COALESCE(event_type, ''), COUNT(*) FROM events %s GROUP BY event_type
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating event type counts: %w", err)
	}
	for typeRows.Next() {
		var eventType string
		var count int
		if err := typeRows.Scan(&eventType, &count); err != nil {
			typeRows.Close()
			return nil, fmt.Errorf("scanning event type count: %w", err)
		}
		summary.EventTypeCounts[eventType] = count
	}
	typeRows.Close()
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event type counts: %w", err)
	}

	histRows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT to_char(date_trunc('hour', received_at), 'YYYY-MM-DD HH24:00') AS bucket, COUNT(*)
		FROM events %s
		GROUP BY bucket
		ORDER BY bucket ASC
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating hourly histogram: %w", err)
	}
	for histRows.Next() {
		var b HistogramBucket
		if err := histRows.Scan(&b.ID, &b.Count); err != nil {
			histRows.Close()
			return nil, fmt.Errorf("scanning histogram bucket: %w", err)
		}
		summary.HourlyHistogram = append(summary.HourlyHistogram, b)
	}
	histRows.Close()
	if err := histRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating histogram buckets: %w", err)
	}

	return summary, nil
}

func buildSearchWhere(f SearchFilter) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, f.Status)
		argIdx++
	}
	if f.EventType != "" {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, f.EventType)
		argIdx++
	}
	if f.FromTimestamp != nil {
		conditions = append(conditions, fmt.Sprintf("received_at >= $%d", argIdx))
		args = append(args, *f.FromTimestamp)
		argIdx++
	}
	if f.ToTimestamp != nil {
		conditions = append(conditions, fmt.Sprintf("received_at <= $%d", argIdx))
		args = append(args, *f.ToTimestamp)
		argIdx++
	}

	if len(conditions) == 0 {
		return "", args
	}

	where := "WHERE "
	for i, c := range conditions {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}
