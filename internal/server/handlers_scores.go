package server

import (
	"fmt"
	"net/http"
	"strings"

	"gav/internal/api"
	"gav/internal/store"
)

func (s *Server) handleCreateScore(w http.ResponseWriter, r *http.Request) {
	var req api.ScoreCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	score, err := s.scores.Create(r.Context(), CreateScoreInput{
		PlayerName: req.PlayerName,
		Score:      req.Score,
		GameLevel:  req.GameLevel,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.ScoreCreateResponse{
		Message:    "Score recorded successfully",
		ID:         score.ID,
		PlayerName: score.PlayerName,
		Score:      score.Score,
		GameLevel:  score.GameLevel,
	})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	filter, err := scoreFilterFromQuery(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	scores, total, err := s.scores.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	formatted := make([]api.FormattedScore, 0, len(scores))
	for _, score := range scores {
		formatted = append(formatted, api.FormattedScore{
			ID:         score.ID,
			PlayerName: score.PlayerName,
			Score:      score.Score,
			Timestamp:  score.Timestamp,
			GameLevel:  score.GameLevel,
		})
	}

	s.writeJSON(w, http.StatusOK, api.ScoreListResponse{
		Scores: formatted,
		Count:  len(formatted),
		Total:  total,
		Skip:   filter.Skip,
		Limit:  filter.Limit,
	})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.scores.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.ScoreResponse{
		ID:         score.ID,
		PlayerName: score.PlayerName,
		Score:      score.Score,
		Timestamp:  score.Timestamp,
		GameLevel:  score.GameLevel,
		Metadata: api.ScoreMeta{
			Platform:    score.Platform,
			GameVersion: score.GameVersion,
		},
	})
}

// scoreFilterFromQuery parses, validates and sanitizes score listing
// parameters. Order follows the observed API shape: 1 ascending, -1
// descending, default -1.
func scoreFilterFromQuery(r *http.Request) (store.ScoreFilter, error) {
	var filter store.ScoreFilter

	limit, skip, err := listWindow(r)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Skip = skip

	sortBy, err := store.ParseScoreSort(strings.TrimSpace(r.URL.Query().Get("sort_by")))
	if err != nil {
		return filter, badRequestCode(err, ErrCodeInvalidSort)
	}
	filter.SortBy = sortBy

	switch strings.TrimSpace(r.URL.Query().Get("order")) {
	case "", "-1":
		filter.Ascending = false
	case "1":
		filter.Ascending = true
	default:
		return filter, badRequestCode(fmt.Errorf("order must be 1 or -1"), ErrCodeInvalidQuery)
	}

	filter.PlayerName = cleanQueryParam(r, "player_name")
	filter.GameLevel = cleanQueryParam(r, "game_level")
	return filter, nil
}
