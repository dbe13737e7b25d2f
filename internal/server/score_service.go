package server

import (
	"context"
	"fmt"
	"strings"

	"gav/internal/models"
	"gav/internal/records"
	"gav/internal/sanitize"
	"gav/internal/store"
)

// ScoreService sanitizes and persists player scores.
type ScoreService struct {
	store store.ScoreStore
}

// NewScoreService constructs a ScoreService.
func NewScoreService(scoreStore store.ScoreStore) *ScoreService {
	return &ScoreService{store: scoreStore}
}

// CreateScoreInput holds raw client input for one score entry.
type CreateScoreInput struct {
	PlayerName string
	Score      int64
	GameLevel  string
}

// Create sanitizes free-text fields and records one score.
func (s *ScoreService) Create(ctx context.Context, in CreateScoreInput) (models.Score, error) {
	var zero models.Score
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("score service is not configured"))
	}

	playerName := sanitize.CleanString(strings.TrimSpace(in.PlayerName))
	if playerName == "" {
		return zero, badRequestCode(fmt.Errorf("player_name is required"), ErrCodeMissingRequired)
	}

	score := models.Score{
		PlayerName: playerName,
		Score:      in.Score,
		GameLevel:  sanitize.CleanString(strings.TrimSpace(in.GameLevel)),
	}
	if err := s.store.CreateScore(ctx, &score); err != nil {
		return zero, storeFailure(err)
	}
	return score, nil
}

// Get returns one score by raw id.
func (s *ScoreService) Get(ctx context.Context, rawID string) (models.Score, error) {
	var zero models.Score
	id, err := records.ParseID(rawID)
	if err != nil {
		return zero, badRequestCode(err, ErrCodeInvalidID)
	}

	score, err := s.store.GetScore(ctx, id.String())
	if err != nil {
		return zero, storeFailure(err)
	}
	if score == nil {
		return zero, notFoundCode(fmt.Errorf("score not found"), ErrCodeScoreNotFound)
	}
	return *score, nil
}

// List lists scores matching the sanitized filter in the requested order.
func (s *ScoreService) List(ctx context.Context, filter store.ScoreFilter) ([]models.Score, int, error) {
	scores, err := s.store.ListScores(ctx, filter)
	if err != nil {
		return nil, 0, storeFailure(err)
	}
	total, err := s.store.CountScores(ctx, filter)
	if err != nil {
		return nil, 0, storeFailure(err)
	}
	return scores, total, nil
}
