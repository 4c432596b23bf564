package store

import (
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/webhook-relay/internal/domain"
)

func TestBuildSearchWhere_NoFilters(t *testing.T) {
	where, args := buildSearchWhere(SearchFilter{})
	if where != "" {
		t.Fatalf("expected empty where clause, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildSearchWhere_CombinesWithAnd(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	where, args := buildSearchWhere(SearchFilter{
		Status:        domain.StatusDelivered,
		EventType:     "order.created",
		FromTimestamp: &from,
		ToTimestamp:   &to,
	})

	if !strings.Contains(where, "status = $1") {
		t.Errorf("expected status condition, got %q", where)
	}
	if !strings.Contains(where, "AND") {
		t.Errorf("expected conditions joined with AND, got %q", where)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
}

func TestBuildSearchWhere_PartialFilter(t *testing.T) {
	where, args := buildSearchWhere(SearchFilter{EventType: "payment.failed"})
	if where != "WHERE event_type = $1" {
		t.Fatalf("unexpected where clause: %q", where)
	}
	if len(args) != 1 || args[0] != "payment.failed" {
		t.Fatalf("unexpected args: %v", args)
	}
}
