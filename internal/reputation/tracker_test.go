package reputation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCallCreatesSource(t *testing.T) {
	tr := New()
	now := time.Now()
	s := tr.RecordCall("s1", "Alpha Calls", "channel", now)
	require.Equal(t, 1, s.TotalCalls)
	assert.Equal(t, 50.0, s.TrustScore)
	assert.Equal(t, 0.5, s.HitRate)
}

func TestDefaultTrustBeforeMinCalls(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.RecordCall("s1", "Alpha", "channel", now)
	tr.RecordOutcome("s1", 1.0, time.Minute)
	s, ok := tr.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 50.0, s.TrustScore)
}

func TestTrustScoreComposite(t *testing.T) {
	tr := New()
	now := time.Now()
	for i := 0; i < 3; i++ {
		tr.RecordCall("s1", "Alpha", "channel", now)
	}
	tr.RecordOutcome("s1", 1.0, 30*time.Second)
	tr.RecordOutcome("s1", 1.0, 30*time.Second)
	tr.RecordOutcome("s1", 1.0, 30*time.Second)

	s, ok := tr.Get("s1")
	require.True(t, ok)
	assert.InDelta(t, 1.0, s.HitRate, 0.001)
	assert.InDelta(t, 1.0, s.AvgReturn, 0.001)
	// 100 - 30/36
	assert.InDelta(t, 99.1667, s.SpeedScore, 0.001)
	// hit(40) + min(1/5,1)*30=6 + 99.1667*0.2=19.8333 + min(3/50,1)*10=0.6 = 66.4333
	assert.InDelta(t, 66.4333, s.TrustScore, 0.01)
}

// Scenario F: 8 calls at -0.4 return, 2 at 0.0, source becomes flagged for
// high failure rate with hit_rate 0.
func TestScenarioFFlagging(t *testing.T) {
	tr := New()
	now := time.Now()
	for i := 0; i < 10; i++ {
		tr.RecordCall("s1", "Rug Central", "channel", now)
	}
	for i := 0; i < 8; i++ {
		tr.RecordOutcome("s1", -0.4, 0)
	}
	for i := 0; i < 2; i++ {
		tr.RecordOutcome("s1", 0.0, 0)
	}

	s, ok := tr.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 8, s.FailedCalls)
	assert.InDelta(t, 0.8, float64(s.FailedCalls)/float64(s.TotalCalls), 0.001)
	assert.Equal(t, 0.0, s.HitRate)
	assert.True(t, s.IsFlagged)
	assert.Contains(t, s.FlagReason, "failure rate")
}

func TestFlagDoesNotSpontaneouslyClearUntilRecomputed(t *testing.T) {
	tr := New()
	now := time.Now()
	for i := 0; i < 10; i++ {
		tr.RecordCall("s1", "Rug Central", "channel", now)
	}
	for i := 0; i < 9; i++ {
		tr.RecordOutcome("s1", -0.4, 0)
	}
	assert.True(t, tr.IsFlagged("s1"))

	for i := 0; i < 20; i++ {
		tr.RecordCall("s1", "Rug Central", "channel", now)
		tr.RecordOutcome("s1", 1.0, time.Second)
	}
	assert.False(t, tr.IsFlagged("s1"))
}

func TestAverageTrustUnknownSourcesDefault(t *testing.T) {
	tr := New()
	assert.Equal(t, 50.0, tr.AverageTrust(nil))
	assert.Equal(t, 50.0, tr.AverageTrust([]string{"ghost"}))
}

func TestLeaderboardSortedDescendingExcludesFlagged(t *testing.T) {
	tr := New()
	now := time.Now()

	for i := 0; i < 5; i++ {
		tr.RecordCall("good", "Good Calls", "channel", now)
	}
	for i := 0; i < 5; i++ {
		tr.RecordOutcome("good", 1.0, 10*time.Second)
	}

	for i := 0; i < 10; i++ {
		tr.RecordCall("bad", "Bad Calls", "channel", now)
	}
	for i := 0; i < 9; i++ {
		tr.RecordOutcome("bad", -0.4, 0)
	}

	board := tr.Leaderboard(5, 20, false)
	require.Len(t, board, 1)
	assert.Equal(t, "good", board[0].TelegramID)
}

func TestLeaderboardRespectsLimit(t *testing.T) {
	tr := New()
	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		tr.RecordCall(id, id, "channel", now)
		tr.RecordOutcome(id, 1.0, time.Second)
	}
	board := tr.Leaderboard(0, 2, true)
	assert.Len(t, board, 2)
}
