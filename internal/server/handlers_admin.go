package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"gav/internal/api"
	"gav/internal/auth"
)

// requireAdmin gates admin routes behind the configured bearer token.
// With no hash configured the admin surface is disabled outright.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminTokenHash == "" {
			s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("admin endpoints are not configured")))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("missing bearer token")))
			return
		}
		if !auth.VerifyToken(s.adminTokenHash, token) {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid token")))
			return
		}

		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

type blobGCRequest struct {
	DryRun    bool `json:"dry_run"`
	BatchSize int  `json:"batch_size,omitempty"`
}

func (s *Server) handleAdminGCBlobs(w http.ResponseWriter, r *http.Request) {
	var req blobGCRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if !req.DryRun && r.Header.Get("X-Confirm") != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("non-dry-run requires X-Confirm: true header"), ErrCodeMissingRequired))
		return
	}

	result, err := s.assets.GCBlobs(r.Context(), req.BatchSize, !req.DryRun)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdminAuditList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", 100)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	events, err := s.store.ListAuditEvents(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.AuditListResponse{Events: events, Count: len(events)})
}

type auditPruneRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

func (s *Server) handleAdminAuditPrune(w http.ResponseWriter, r *http.Request) {
	var req auditPruneRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.OlderThanDays <= 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("older_than_days must be > 0"), ErrCodeInvalidQuery))
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -req.OlderThanDays)
	deleted, err := s.store.PruneAuditEvents(r.Context(), cutoff)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.AuditPruneResponse{Deleted: deleted, Cutoff: cutoff})
}
