package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gav/internal/api"
	"gav/internal/auth"
	"gav/internal/models"
)

const testAdminToken = "admin-secret-token"

func newAdminTestServer(t *testing.T) *Server {
	t.Helper()
	hash, err := auth.HashToken(testAdminToken)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	return newTestServerWith(t, testServerOptions{
		withBlobs: true,
		opts:      Options{AdminTokenHash: hash},
	})
}

func adminRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	return req
}

func TestRequireAdmin(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		srv := newAdminTestServer(t)
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
		}
		var errResp api.ErrorResponse
		decodeBody(t, w, &errResp)
		if errResp.ErrorCode != ErrCodeUnauthorized {
			t.Fatalf("expected error_code %d, got %d", ErrCodeUnauthorized, errResp.ErrorCode)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		srv := newAdminTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		w := doRequest(t, srv, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		srv := newAdminTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil)
		req.Header.Set("Authorization", testAdminToken)
		w := doRequest(t, srv, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil)
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
		w := doRequest(t, srv, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403 when no admin token configured, got %d (%s)", w.Code, w.Body.String())
		}
		var errResp api.ErrorResponse
		decodeBody(t, w, &errResp)
		if errResp.ErrorCode != ErrCodeForbidden {
			t.Fatalf("expected error_code %d, got %d", ErrCodeForbidden, errResp.ErrorCode)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		srv := newAdminTestServer(t)
		w := doRequest(t, srv, adminRequest(http.MethodGet, "/v1/admin/audit", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
	})
}

func TestAdminGCEndpoint(t *testing.T) {
	srv := newAdminTestServer(t)

	t.Run("dry run", func(t *testing.T) {
		w := doRequest(t, srv, adminRequest(http.MethodPost, "/v1/admin/gc", `{"dry_run": true}`))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var result BlobGCResult
		decodeBody(t, w, &result)
		if !result.DryRun {
			t.Fatal("expected dry-run result")
		}
		if result.CandidateCount != 0 {
			t.Fatalf("expected no candidates, got %d", result.CandidateCount)
		}
	})

	t.Run("apply requires confirmation header", func(t *testing.T) {
		w := doRequest(t, srv, adminRequest(http.MethodPost, "/v1/admin/gc", `{"dry_run": false}`))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without X-Confirm, got %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("apply with confirmation", func(t *testing.T) {
		req := adminRequest(http.MethodPost, "/v1/admin/gc", `{"dry_run": false}`)
		req.Header.Set("X-Confirm", "true")
		w := doRequest(t, srv, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var result BlobGCResult
		decodeBody(t, w, &result)
		if result.DryRun {
			t.Fatal("expected applied result")
		}
	})
}

func TestAdminAuditEndpoints(t *testing.T) {
	srv := newAdminTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	events := []models.AuditEvent{
		{OccurredAt: now.Add(-72 * time.Hour), Method: "POST", Path: "/v1/sprites", Status: 201, Outcome: models.AuditOutcomeOK},
		{OccurredAt: now, Method: "GET", Path: "/v1/scores", Status: 200, Outcome: models.AuditOutcomeOK},
	}
	for i := range events {
		if err := srv.store.InsertAuditEvent(ctx, &events[i]); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	t.Run("list", func(t *testing.T) {
		w := doRequest(t, srv, adminRequest(http.MethodGet, "/v1/admin/audit", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var resp api.AuditListResponse
		decodeBody(t, w, &resp)
		if resp.Count != 2 || len(resp.Events) != 2 {
			t.Fatalf("unexpected listing %+v", resp)
		}
		if resp.Events[0].Path != "/v1/scores" {
			t.Fatalf("expected newest event first, got %+v", resp.Events[0])
		}
	})

	t.Run("list with limit", func(t *testing.T) {
		w := doRequest(t, srv, adminRequest(http.MethodGet, "/v1/admin/audit?limit=1", ""))
		var resp api.AuditListResponse
		decodeBody(t, w, &resp)
		if resp.Count != 1 {
			t.Fatalf("expected 1 event, got %d", resp.Count)
		}
	})

	t.Run("prune validates days", func(t *testing.T) {
		w := doRequest(t, srv, adminRequest(http.MethodPost, "/v1/admin/audit/prune", `{"older_than_days": 0}`))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("prune removes old events", func(t *testing.T) {
		w := doRequest(t, srv, adminRequest(http.MethodPost, "/v1/admin/audit/prune", `{"older_than_days": 1}`))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var resp api.AuditPruneResponse
		decodeBody(t, w, &resp)
		if resp.Deleted != 1 {
			t.Fatalf("expected 1 deleted, got %d", resp.Deleted)
		}

		w = doRequest(t, srv, adminRequest(http.MethodGet, "/v1/admin/audit", ""))
		var list api.AuditListResponse
		decodeBody(t, w, &list)
		if list.Count != 1 {
			t.Fatalf("expected 1 remaining event, got %d", list.Count)
		}
	})
}
