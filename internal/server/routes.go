package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check, info, metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Sprite assets.
	mux.HandleFunc("POST /v1/sprites", s.handleUploadSprite)
	mux.HandleFunc("GET /v1/sprites", s.handleListSprites)
	mux.HandleFunc("GET /v1/sprites/{id}", s.handleGetSprite)
	mux.HandleFunc("GET /v1/sprites/{id}/content", s.handleGetSpriteContent)

	// Audio assets.
	mux.HandleFunc("POST /v1/audio", s.handleUploadAudio)
	mux.HandleFunc("GET /v1/audio", s.handleListAudio)
	mux.HandleFunc("GET /v1/audio/{id}", s.handleGetAudio)
	mux.HandleFunc("GET /v1/audio/{id}/content", s.handleGetAudioContent)

	// Player scores.
	mux.HandleFunc("POST /v1/scores", s.handleCreateScore)
	mux.HandleFunc("GET /v1/scores", s.handleListScores)
	mux.HandleFunc("GET /v1/scores/{id}", s.handleGetScore)

	// Admin.
	mux.HandleFunc("POST /v1/admin/gc", s.requireAdmin(s.handleAdminGCBlobs))
	mux.HandleFunc("GET /v1/admin/audit", s.requireAdmin(s.handleAdminAuditList))
	mux.HandleFunc("POST /v1/admin/audit/prune", s.requireAdmin(s.handleAdminAuditPrune))

	return s.withRequestID(s.withRequestLogging(s.withMetrics(mux)))
}
