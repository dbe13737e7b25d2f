package server

import (
	"net/http"

	"gav/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "healthy", Message: "API is running"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Info(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		DBPath:        s.dbPath,
		SchemaVersion: info.SchemaVersion,
		AssetCounts:   info.AssetCounts,
		TotalAssets:   info.TotalAssets,
		TotalScores:   info.TotalScores,
	})
}
