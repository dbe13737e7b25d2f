package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gav/internal/api"
	"gav/internal/models"
)

func postScore(t *testing.T, srv *Server, payload api.ScoreCreateRequest) api.ScoreCreateResponse {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal score: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/scores", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := doRequest(t, srv, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.ScoreCreateResponse
	decodeBody(t, w, &resp)
	return resp
}

func TestCreateScoreEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postScore(t, srv, api.ScoreCreateRequest{PlayerName: "alice", Score: 1200, GameLevel: "level-3"})
	if resp.Message != "Score recorded successfully" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(resp.ID) != 24 {
		t.Fatalf("expected 24-char id, got %q", resp.ID)
	}
	if resp.PlayerName != "alice" || resp.Score != 1200 || resp.GameLevel != "level-3" {
		t.Fatalf("unexpected response %+v", resp)
	}

	w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores/"+resp.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var got api.ScoreResponse
	decodeBody(t, w, &got)
	if got.PlayerName != "alice" || got.Score != 1200 {
		t.Fatalf("unexpected score %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected recorded timestamp")
	}
	if got.Metadata.Platform != models.ScorePlatformWeb {
		t.Fatalf("unexpected platform %q", got.Metadata.Platform)
	}
	if got.Metadata.GameVersion != models.ScoreGameVersionDefault {
		t.Fatalf("unexpected game version %q", got.Metadata.GameVersion)
	}
}

func TestCreateScoreDefaultsAndValidation(t *testing.T) {
	srv := newTestServer(t)

	t.Run("default game level", func(t *testing.T) {
		resp := postScore(t, srv, api.ScoreCreateRequest{PlayerName: "bob", Score: 10})
		if resp.GameLevel != models.ScoreGameLevelDefault {
			t.Fatalf("expected default game level, got %q", resp.GameLevel)
		}
	})

	t.Run("missing player name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/scores", strings.NewReader(`{"score": 5}`))
		req.Header.Set("Content-Type", "application/json")
		w := doRequest(t, srv, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
		}
		var errResp api.ErrorResponse
		decodeBody(t, w, &errResp)
		if errResp.ErrorCode != ErrCodeMissingRequired {
			t.Fatalf("expected error_code %d, got %d", ErrCodeMissingRequired, errResp.ErrorCode)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/scores", strings.NewReader(`{nope`))
		req.Header.Set("Content-Type", "application/json")
		w := doRequest(t, srv, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
		}
		var errResp api.ErrorResponse
		decodeBody(t, w, &errResp)
		if errResp.ErrorCode != ErrCodeInvalidJSON {
			t.Fatalf("expected error_code %d, got %d", ErrCodeInvalidJSON, errResp.ErrorCode)
		}
	})

	t.Run("sanitizes player name", func(t *testing.T) {
		resp := postScore(t, srv, api.ScoreCreateRequest{
			PlayerName: "test_player', $where: 'this.score > 0",
			Score:      1,
		})
		if strings.ContainsAny(resp.PlayerName, "$'") {
			t.Fatalf("unsanitized player name %q", resp.PlayerName)
		}
		if !strings.Contains(resp.PlayerName, "&#39;") {
			t.Fatalf("expected escaped quote in player name %q", resp.PlayerName)
		}
	})
}

func TestListScoresEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postScore(t, srv, api.ScoreCreateRequest{PlayerName: "alice", Score: 300, GameLevel: "level-1"})
	postScore(t, srv, api.ScoreCreateRequest{PlayerName: "bob", Score: 100, GameLevel: "level-1"})
	postScore(t, srv, api.ScoreCreateRequest{PlayerName: "carol", Score: 200, GameLevel: "level-2"})

	t.Run("default order score descending", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		if list.Count != 3 || list.Total != 3 {
			t.Fatalf("unexpected counts %+v", list)
		}
		if list.Scores[0].Score != 300 || list.Scores[2].Score != 100 {
			t.Fatalf("unexpected order %+v", list.Scores)
		}
	})

	t.Run("ascending order", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?order=1", nil))
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		if list.Scores[0].Score != 100 {
			t.Fatalf("expected lowest score first, got %+v", list.Scores[0])
		}
	})

	t.Run("sort by timestamp", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?sort_by=timestamp&order=1", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		for i := 1; i < len(list.Scores); i++ {
			if list.Scores[i].Timestamp.Before(list.Scores[i-1].Timestamp) {
				t.Fatalf("timestamps not ascending: %+v", list.Scores)
			}
		}
	})

	t.Run("invalid sort key", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?sort_by=player_name", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
		}
		var errResp api.ErrorResponse
		decodeBody(t, w, &errResp)
		if errResp.ErrorCode != ErrCodeInvalidSort {
			t.Fatalf("expected error_code %d, got %d", ErrCodeInvalidSort, errResp.ErrorCode)
		}
	})

	t.Run("invalid order", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?order=2", nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("filter by player", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?player_name=alice", nil))
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		if list.Total != 1 || list.Scores[0].PlayerName != "alice" {
			t.Fatalf("unexpected filter result %+v", list)
		}
	})

	t.Run("filter by level", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?game_level=level-1", nil))
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		if list.Total != 2 {
			t.Fatalf("expected 2 level-1 scores, got %d", list.Total)
		}
	})

	t.Run("pagination window", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?limit=2&skip=2", nil))
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		if list.Count != 1 || list.Total != 3 || list.Skip != 2 || list.Limit != 2 {
			t.Fatalf("unexpected window %+v", list)
		}
	})

	t.Run("filter value is sanitized not executed", func(t *testing.T) {
		w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores?player_name="+
			"alice%27%3B+%24where%3A+1", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var list api.ScoreListResponse
		decodeBody(t, w, &list)
		// The sanitized literal matches no player.
		if list.Total != 0 {
			t.Fatalf("expected no matches for injected filter, got %d", list.Total)
		}
	})
}

func TestGetScoreErrors(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores/not-a-valid-id", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/v1/scores/507f1f77bcf86cd799439011", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
	var errResp api.ErrorResponse
	decodeBody(t, w, &errResp)
	if errResp.ErrorCode != ErrCodeScoreNotFound {
		t.Fatalf("expected error_code %d, got %d", ErrCodeScoreNotFound, errResp.ErrorCode)
	}
}
