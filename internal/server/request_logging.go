package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"gav/internal/models"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *loggingResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *loggingResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if requestID := requestIDFromContext(r.Context()); requestID != "" {
			fields = append(fields, "request_id", requestID)
		}
		if r.Pattern != "" {
			fields = append(fields, "route", r.Pattern)
		}

		s.recordAudit(r, rw.Status())

		if rw.Status() >= 500 {
			s.log().Error("request complete", fields...)
			return
		}
		s.log().Debug("request complete", fields...)
	})
}

// recordAudit emits one best-effort audit event for a completed request.
func (s *Server) recordAudit(r *http.Request, status int) {
	if s.auditor == nil {
		return
	}

	outcome := models.AuditOutcomeOK
	switch {
	case status >= 500:
		outcome = models.AuditOutcomeError
	case status >= 400:
		outcome = models.AuditOutcomeRejected
	}

	s.auditor.Record(models.AuditEvent{
		OccurredAt: time.Now().UTC(),
		RequestID:  requestIDFromContext(r.Context()),
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     status,
		Outcome:    outcome,
	})
}
