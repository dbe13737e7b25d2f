package models

import "time"

// Default score metadata recorded with every entry.
const (
	ScorePlatformWeb        = "web"
	ScoreGameVersionDefault = "1.0"
	ScoreGameLevelDefault   = "default"
)

// Score is one recorded player score.
type Score struct {
	ID          string    `json:"id"`
	PlayerName  string    `json:"player_name"`
	Score       int64     `json:"score"`
	Timestamp   time.Time `json:"timestamp"`
	GameLevel   string    `json:"game_level"`
	Platform    string    `json:"platform"`
	GameVersion string    `json:"game_version"`
}
