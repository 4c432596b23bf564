package worker

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Priya8975/webhook-relay/internal/domain"
	"github.com/Priya8975/webhook-relay/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDeliverer_Attempt_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDeliverer(nil, server.URL, testLogger())
	event := &domain.Event{ID: "evt-1", Payload: []byte(`{"a":1}`)}

	success, statusCode := d.attempt(context.Background(), event, 1, testLogger())
	if !success {
		t.Fatal("expected success on HTTP 200")
	}
	if statusCode == nil || *statusCode != http.StatusOK {
		t.Fatalf("expected status code 200, got %v", statusCode)
	}
}

func TestDeliverer_Attempt_NonOKIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDeliverer(nil, server.URL, testLogger())
	event := &domain.Event{ID: "evt-1", Payload: []byte(`{"a":1}`)}

	success, statusCode := d.attempt(context.Background(), event, 1, testLogger())
	if success {
		t.Fatal("expected failure on non-200 status")
	}
	if statusCode == nil || *statusCode != http.StatusInternalServerError {
		t.Fatalf("expected status code 500, got %v", statusCode)
	}
}

func TestDeliverer_Attempt_TransportErrorHasNilStatusCode(t *testing.T) {
	d := NewDeliverer(nil, "http://127.0.0.1:0", testLogger())
	event := &domain.Event{ID: "evt-1", Payload: []byte(`{"a":1}`)}

	success, statusCode := d.attempt(context.Background(), event, 1, testLogger())
	if success {
		t.Fatal("expected failure on transport error")
	}
	if statusCode != nil {
		t.Fatalf("expected nil status code on transport error, got %v", *statusCode)
	}
}

func TestDeliverer_Deliver_MalformedEventIDNeverTouchesStore(t *testing.T) {
	d := NewDeliverer(nil, "http://127.0.0.1:0", testLogger())

	// A nil store would panic if Deliver tried ClaimEvent; reaching
	// here without panicking confirms the id check short-circuits first.
	d.Deliver(context.Background(), queue.Job{EventID: "not-a-uuid", RequestID: "req-1"})
}

func TestBackoffSchedule(t *testing.T) {
	expected := []int{1, 2, 4, 8, 16}
	if len(backoffSchedule) != len(expected) {
		t.Fatalf("expected %d backoff entries, got %d", len(expected), len(backoffSchedule))
	}
	for i, e := range expected {
		if backoffSchedule[i].Seconds() != float64(e) {
			t.Errorf("backoff[%d] = %v, want %ds", i, backoffSchedule[i], e)
		}
	}
}
