package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gav/internal/api"
	"gav/internal/blobstore"
	"gav/internal/content"
	"gav/internal/store"
)

// Small tiers keep test payloads tiny: inline below 1000 bytes,
// external up to 2000, rejected above.
const (
	testInlineThreshold int64 = 1000
	testMaxUpload       int64 = 2000
)

type testServerOptions struct {
	withBlobs bool
	opts      Options
}

func newTestServerWith(t *testing.T, tso testServerOptions) *Server {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "gav-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	var bs blobstore.BlobStore
	if tso.withBlobs {
		cas, err := blobstore.NewLocalCAS(filepath.Join(t.TempDir(), "blobs"))
		if err != nil {
			t.Fatalf("open blob store: %v", err)
		}
		bs = cas
	}

	policy, err := content.NewPolicy(testInlineThreshold, testMaxUpload)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New("127.0.0.1:0", st, bs, policy, logger, tso.opts)
	t.Cleanup(func() {
		if srv.auditor != nil {
			srv.auditor.Close()
		}
	})
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, testServerOptions{withBlobs: true})
}

func doRequest(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// multipartUpload builds a multipart request body with one file part
// and optional extra form fields.
func multipartUpload(t *testing.T, target, filename, contentType string, payload []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7411")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7411" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("allows localhost", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("http://localhost:7411"); err != nil {
			t.Fatalf("expected localhost to be allowed, got error: %v", err)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("http://0.0.0.0:7411"); err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7411")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7411" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("rejects empty url", func(t *testing.T) {
		if _, err := ListenAddr(""); err == nil {
			t.Fatal("expected error for empty url")
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	srv := newTestServer(t)

	t.Run("assigns request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := doRequest(t, srv, req)
		if w.Header().Get("X-Request-Id") == "" {
			t.Fatal("expected generated request id header")
		}
	})

	t.Run("echoes client request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-Id", "client-id-1")
		w := doRequest(t, srv, req)
		if got := w.Header().Get("X-Request-Id"); got != "client-id-1" {
			t.Fatalf("expected echoed request id, got %q", got)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.HealthResponse
	decodeBody(t, w, &resp)
	if resp.Status != "healthy" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	if resp.Message != "API is running" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := multipartUpload(t, "/v1/sprites", "a.png", "image/png", []byte("tiny"), nil)
	if w := doRequest(t, srv, req); w.Code != http.StatusCreated {
		t.Fatalf("seed upload failed: %d (%s)", w.Code, w.Body.String())
	}

	w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.InfoResponse
	decodeBody(t, w, &resp)
	if resp.SchemaVersion == 0 {
		t.Fatal("expected non-zero schema version")
	}
	if resp.AssetCounts["sprite"] != 1 || resp.TotalAssets != 1 {
		t.Fatalf("unexpected counts %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Generate one observed request first.
	doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/info", nil))

	w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("gav_http_requests_total")) {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestUploadLimiter(t *testing.T) {
	srv := newTestServer(t)

	// Saturate the limiter, then verify the next upload is shed.
	for i := 0; i < cap(srv.uploadLimiter); i++ {
		srv.uploadLimiter <- struct{}{}
	}
	defer func() {
		for i := 0; i < cap(srv.uploadLimiter); i++ {
			<-srv.uploadLimiter
		}
	}()

	req := multipartUpload(t, "/v1/sprites", "a.png", "image/png", []byte("tiny"), nil)
	w := doRequest(t, srv, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d (%s)", w.Code, w.Body.String())
	}
	var errResp api.ErrorResponse
	decodeBody(t, w, &errResp)
	if errResp.ErrorCode != ErrCodeResourceExhausted {
		t.Fatalf("expected error_code %d, got %d", ErrCodeResourceExhausted, errResp.ErrorCode)
	}
}
