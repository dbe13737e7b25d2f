// Package api defines the wire types of the gav HTTP API.
package api

import (
	"time"

	"gav/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// UploadAssetResponse confirms one stored asset.
type UploadAssetResponse struct {
	Message     string   `json:"message"`
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	Size        int64    `json:"size"`
	Tags        []string `json:"tags"`
	StorageTier string   `json:"storage_tier"`
}

// AssetListResponse is a paginated asset listing, content excluded.
type AssetListResponse struct {
	Assets []models.Asset `json:"assets"`
	Count  int            `json:"count"`
	Total  int            `json:"total"`
	Skip   int            `json:"skip"`
	Limit  int            `json:"limit"`
}

// ScoreCreateRequest records one player score.
type ScoreCreateRequest struct {
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
	GameLevel  string `json:"game_level,omitempty"`
}

// ScoreCreateResponse confirms one recorded score.
type ScoreCreateResponse struct {
	Message    string `json:"message"`
	ID         string `json:"id"`
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
	GameLevel  string `json:"game_level"`
}

// FormattedScore is the score list item shape.
type FormattedScore struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	Score      int64     `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
	GameLevel  string    `json:"game_level"`
}

// ScoreListResponse is a paginated, ordered score listing.
type ScoreListResponse struct {
	Scores []FormattedScore `json:"scores"`
	Count  int              `json:"count"`
	Total  int              `json:"total"`
	Skip   int              `json:"skip"`
	Limit  int              `json:"limit"`
}

// ScoreResponse is one score with its recorded metadata.
type ScoreResponse struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	Score      int64     `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
	GameLevel  string    `json:"game_level"`
	Metadata   ScoreMeta `json:"metadata"`
}

// ScoreMeta is the fixed metadata recorded with every score.
type ScoreMeta struct {
	Platform    string `json:"platform"`
	GameVersion string `json:"game_version"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// InfoResponse reports store state.
type InfoResponse struct {
	DBPath        string         `json:"db_path"`
	SchemaVersion int            `json:"schema_version"`
	AssetCounts   map[string]int `json:"asset_counts"`
	TotalAssets   int            `json:"total_assets"`
	TotalScores   int            `json:"total_scores"`
}

// AuditListResponse is the admin audit listing.
type AuditListResponse struct {
	Events []models.AuditEvent `json:"events"`
	Count  int                 `json:"count"`
}

// AuditPruneResponse reports one audit prune run.
type AuditPruneResponse struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}
