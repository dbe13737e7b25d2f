package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gav/internal/models"
	"gav/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuditorWritesEvents(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "audit-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	auditor := NewAuditor(st, discardLogger(), 16, nil)
	for i := 0; i < 3; i++ {
		if ok := auditor.Record(models.AuditEvent{
			Method:  "POST",
			Path:    "/v1/sprites",
			Status:  201,
			Outcome: models.AuditOutcomeOK,
		}); !ok {
			t.Fatalf("record %d dropped unexpectedly", i)
		}
	}
	auditor.Close()

	events, err := st.ListAuditEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after drain, got %d", len(events))
	}
}

// blockingAuditStore stalls writes until released, keeping the worker
// busy so the buffer can be filled deterministically.
type blockingAuditStore struct {
	store.AuditStore

	release chan struct{}
	failAll bool
}

func (s *blockingAuditStore) InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	if s.release != nil {
		<-s.release
	}
	if s.failAll {
		return fmt.Errorf("simulated audit store failure")
	}
	return nil
}

func TestAuditorDropsWhenBufferFull(t *testing.T) {
	stub := &blockingAuditStore{release: make(chan struct{})}
	auditor := NewAuditor(stub, discardLogger(), 1, nil)
	defer func() {
		close(stub.release)
		auditor.Close()
	}()

	// First event occupies the worker, second fills the buffer. Give the
	// worker a moment to pick up the first.
	if !auditor.Record(models.AuditEvent{Path: "/1"}) {
		t.Fatal("first record dropped")
	}
	deadline := time.Now().Add(time.Second)
	for {
		if auditor.Record(models.AuditEvent{Path: "/2"}) {
			if time.Now().After(deadline) {
				t.Fatal("buffer never filled")
			}
			continue
		}
		break
	}
}

func TestAuditorSurvivesStoreFailure(t *testing.T) {
	stub := &blockingAuditStore{failAll: true}
	auditor := NewAuditor(stub, discardLogger(), 4, nil)

	if !auditor.Record(models.AuditEvent{Path: "/fails"}) {
		t.Fatal("record dropped")
	}
	// Close drains; a failing store write must not panic or hang.
	auditor.Close()
}

func TestAuditorNilSafe(t *testing.T) {
	var auditor *Auditor
	if auditor.Record(models.AuditEvent{}) {
		t.Fatal("nil auditor must drop events")
	}
	auditor.Close()
}

func TestRequestAuditMiddleware(t *testing.T) {
	srv := newTestServerWith(t, testServerOptions{
		withBlobs: true,
		opts:      Options{AuditEnabled: true, AuditBuffer: 16},
	})

	w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/sprites/not-a-valid-id", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores", nil))

	// Health checks are not audited.
	doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	srv.auditor.Close()

	events, err := srv.store.ListAuditEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audited requests, got %d", len(events))
	}

	byPath := map[string]models.AuditEvent{}
	for _, event := range events {
		byPath[event.Path] = event
	}
	rejected, ok := byPath["/v1/sprites/not-a-valid-id"]
	if !ok || rejected.Outcome != models.AuditOutcomeRejected || rejected.Status != 400 {
		t.Fatalf("unexpected rejected event %+v", rejected)
	}
	if rejected.RequestID == "" {
		t.Fatal("expected request id on audit event")
	}
	listed, ok := byPath["/v1/scores"]
	if !ok || listed.Outcome != models.AuditOutcomeOK || listed.Status != 200 {
		t.Fatalf("unexpected ok event %+v", listed)
	}
}
