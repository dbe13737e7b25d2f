package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gav/internal/models"
	"gav/internal/records"
)

const scoreColumns = "id, player_name, score, timestamp, game_level, platform, game_version"

// ScoreSort selects the score list ordering key.
type ScoreSort string

const (
	ScoreSortScore     ScoreSort = "score"
	ScoreSortTimestamp ScoreSort = "timestamp"
)

// ParseScoreSort validates a client-supplied sort key.
func ParseScoreSort(raw string) (ScoreSort, error) {
	switch ScoreSort(raw) {
	case "", ScoreSortScore:
		return ScoreSortScore, nil
	case ScoreSortTimestamp:
		return ScoreSortTimestamp, nil
	default:
		return "", fmt.Errorf("invalid sort_by: %s", raw)
	}
}

// ScoreFilter narrows and orders score listings.
type ScoreFilter struct {
	PlayerName string
	GameLevel  string
	SortBy     ScoreSort
	Ascending  bool
	Limit      int
	Skip       int
}

// CreateScore inserts one score row.
func (s *Store) CreateScore(ctx context.Context, score *models.Score) error {
	if score == nil {
		return fmt.Errorf("score is required")
	}
	if score.ID == "" {
		id, err := records.GenerateID(func(candidate records.ID) (bool, error) {
			return s.ScoreExists(ctx, candidate.String())
		})
		if err != nil {
			return err
		}
		score.ID = id.String()
	}
	if score.Timestamp.IsZero() {
		score.Timestamp = time.Now().UTC()
	}
	if score.GameLevel == "" {
		score.GameLevel = models.ScoreGameLevelDefault
	}
	if score.Platform == "" {
		score.Platform = models.ScorePlatformWeb
	}
	if score.GameVersion == "" {
		score.GameVersion = models.ScoreGameVersionDefault
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO scores (id, player_name, score, timestamp, game_level, platform, game_version)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		score.ID,
		score.PlayerName,
		score.Score,
		dbFormatTime(score.Timestamp),
		score.GameLevel,
		score.Platform,
		score.GameVersion,
	)
	return err
}

// GetScore returns one score, or nil when missing.
func (s *Store) GetScore(ctx context.Context, id string) (*models.Score, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+scoreColumns+" FROM scores WHERE id = ?", id)
	return scanScore(row)
}

// ListScores lists scores matching the filter in the requested order.
func (s *Store) ListScores(ctx context.Context, filter ScoreFilter) ([]models.Score, error) {
	query, args := buildScoreListQuery(filter, false)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []models.Score{}
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		if score == nil {
			continue
		}
		scores = append(scores, *score)
	}
	return scores, rows.Err()
}

// CountScores returns the total number of scores matching the filter,
// ignoring pagination.
func (s *Store) CountScores(ctx context.Context, filter ScoreFilter) (int, error) {
	query, args := buildScoreListQuery(filter, true)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ScoreExists checks whether a score exists by id.
func (s *Store) ScoreExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM scores WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanScore(row rowScanner) (*models.Score, error) {
	var score models.Score
	var timestamp string
	err := row.Scan(
		&score.ID,
		&score.PlayerName,
		&score.Score,
		&timestamp,
		&score.GameLevel,
		&score.Platform,
		&score.GameVersion,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score.Timestamp, err = dbParseTime(timestamp)
	if err != nil {
		return nil, err
	}
	return &score, nil
}
