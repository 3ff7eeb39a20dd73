package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/config"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

type fakeFeed struct {
	clusters []*models.Cluster
}

func (f *fakeFeed) Snapshot() []*models.Cluster { return f.clusters }

type fakeLeaderboard struct {
	sources []models.SourceStats
}

func (f *fakeLeaderboard) Leaderboard(minCalls, limit int, includeFlagged bool) []models.SourceStats {
	out := make([]models.SourceStats, 0, len(f.sources))
	for _, s := range f.sources {
		if s.TotalCalls < minCalls {
			continue
		}
		if s.IsFlagged && !includeFlagged {
			continue
		}
		out = append(out, s)
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (f *fakeLeaderboard) Get(sourceID string) (models.SourceStats, bool) {
	for _, s := range f.sources {
		if s.TelegramID == sourceID {
			return s, true
		}
	}
	return models.SourceStats{}, false
}

type fakeScanner struct {
	discussions []models.TokenDiscussion
}

func (f *fakeScanner) Scan(ctx context.Context, messages []ScanMessage, limit int) []models.TokenDiscussion {
	return f.discussions
}

func newTestServer() (*Server, *fakeFeed, *fakeLeaderboard, *fakeScanner) {
	feed := &fakeFeed{}
	lb := &fakeLeaderboard{}
	sc := &fakeScanner{}
	cfg := &config.APIConfig{Host: "localhost", Port: 8080, ReadTimeout: 10, WriteTimeout: 10, MaxHeaderBytes: 1 << 20}
	log := logger.NewLogger("error")
	srv := NewServer(cfg, feed, lb, sc, NewHub(log), log)
	return srv, feed, lb, sc
}

func TestHealthCheck(t *testing.T) {
	srv, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestFeedSortsByPriorityAndRespectsLimit(t *testing.T) {
	srv, feed, _, _ := newTestServer()
	feed.clusters = []*models.Cluster{
		{ID: "low", Scores: models.ClusterScores{Priority: 10}},
		{ID: "high", Scores: models.ClusterScores{Priority: 90}},
		{ID: "mid", Scores: models.ClusterScores{Priority: 50}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/feed?limit=2", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Clusters []*models.Cluster `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Clusters, 2)
	assert.Equal(t, "high", body.Clusters[0].ID)
	assert.Equal(t, "mid", body.Clusters[1].ID)
}

func TestLeaderboardFiltersFlaggedByDefault(t *testing.T) {
	srv, _, lb, _ := newTestServer()
	lb.sources = []models.SourceStats{
		{TelegramID: "a", TotalCalls: 20, IsFlagged: false},
		{TelegramID: "b", TotalCalls: 20, IsFlagged: true},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sources/leaderboard", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sources []models.SourceStats `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "a", body.Sources[0].TelegramID)
}

func TestScanRejectsInvalidBody(t *testing.T) {
	srv, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanReturnsDiscussions(t *testing.T) {
	srv, _, _, sc := newTestServer()
	sc.discussions = []models.TokenDiscussion{{Address: "So11111111111111111111111111111111111111112", Chain: "solana"}}

	reqBody := ScanRequest{Messages: []ScanMessage{{Text: "$FOO mooning", SourceName: "x", Time: time.Now()}}}
	raw, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Discussions []models.TokenDiscussion `json:"discussions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Discussions, 1)
	assert.Equal(t, "solana", body.Discussions[0].Chain)
}
