package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chainpulse/signal-engine/pkg/models"
)

func makeCluster(priority float64, sources int, mentions int, age time.Duration) *models.Cluster {
	c := models.NewCluster("c1", "addr1", "FOO", "solana", time.Now().Add(-age))
	c.Scores.Priority = priority
	c.Counters.TotalMentions = mentions
	for i := 0; i < sources; i++ {
		c.SourceIDs[string(rune('a'+i))] = struct{}{}
	}
	return c
}

func TestFilterAgeOrder(t *testing.T) {
	now := time.Now()
	old := makeCluster(90, 2, 5, 2*time.Hour)
	fresh := makeCluster(90, 2, 5, 5*time.Minute)

	opts := DefaultFilterOptions()
	out := Filter([]*models.Cluster{old, fresh}, now, opts, nil)

	assert.Len(t, out, 1)
	assert.Equal(t, fresh, out[0])
}

func TestRankDescendingStable(t *testing.T) {
	a := makeCluster(50, 1, 1, 0)
	b := makeCluster(90, 1, 1, 0)
	c := makeCluster(90, 1, 1, 0)

	ranked := Rank([]*models.Cluster{a, b, c})
	assert.Equal(t, b, ranked[0])
	assert.Equal(t, c, ranked[1])
	assert.Equal(t, a, ranked[2])
}

type fakeFlags struct{ flagged map[string]bool }

func (f fakeFlags) IsFlagged(id string) bool { return f.flagged[id] }

func TestFilterExcludesOnlySoleFlaggedSource(t *testing.T) {
	now := time.Now()
	solo := makeCluster(90, 1, 5, time.Minute)
	for id := range solo.SourceIDs {
		_ = id
	}
	flags := fakeFlags{flagged: map[string]bool{}}
	for id := range solo.SourceIDs {
		flags.flagged[id] = true
	}

	opts := DefaultFilterOptions()
	out := Filter([]*models.Cluster{solo}, now, opts, flags)
	assert.Empty(t, out)
}

func TestSpamScoreCapped(t *testing.T) {
	c := models.NewCluster("c1", "addr1", "FOO", "solana", time.Now())
	for i := 0; i < 5; i++ {
		c.Messages = append(c.Messages, models.ProcessedMessage{OriginalText: "giveaway airdrop free tokens click here join now verify wallet"})
	}
	score := SpamScore(c)
	assert.LessOrEqual(t, score, 1.0)
	assert.Greater(t, score, 0.9)
}

func TestOverallSentimentAndBullishPercent(t *testing.T) {
	c := models.NewCluster("c1", "addr1", "FOO", "solana", time.Now())
	c.Counters.SentimentBullish = 8
	c.Counters.SentimentBearish = 2
	assert.Equal(t, "bullish", OverallSentiment(c))
	assert.InDelta(t, 80.0, BullishPercent(c), 0.001)
}
