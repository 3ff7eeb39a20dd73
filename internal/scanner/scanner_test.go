package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpulse/signal-engine/pkg/models"
)

type fakeMarket struct {
	data map[string]*models.MarketData
	err  error
}

func (f *fakeMarket) Lookup(_ context.Context, address, _ string) (*models.MarketData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[address], nil
}

type fakeSummarizer struct {
	out string
	err error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string, _ []string) (string, error) {
	return f.out, f.err
}

func TestExtractAddressPrefersURLPattern(t *testing.T) {
	addr, chain, ok := extractAddress("check this out https://pump.fun/coin/Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump nice")
	require.True(t, ok)
	assert.Equal(t, "solana", chain)
	assert.Contains(t, addr, "pump")
}

func TestExtractAddressRejectsTxCue(t *testing.T) {
	_, _, ok := extractAddress("tx: Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxYYYY confirmed")
	assert.False(t, ok)
}

func TestExtractAddressSkipsWellKnown(t *testing.T) {
	_, _, ok := extractAddress("So11111111111111111111111111111111111111112 is just wrapped sol")
	assert.False(t, ok)
}

func TestIsDiscussionMessageFiltersBotLines(t *testing.T) {
	assert.False(t, isDiscussionMessage("CA: Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump"))
	assert.False(t, isDiscussionMessage("https://pump.fun/coin/abc"))
	assert.True(t, isDiscussionMessage("this looks really bullish, I'm aping in with a full bag because the chart is clean"))
}

func TestScanSkipsTokensWithoutMarketData(t *testing.T) {
	s := New(&fakeMarket{data: map[string]*models.MarketData{}}, nil)
	now := time.Now()
	msgs := []Message{
		{Text: "check CA: Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump looks good", SourceName: "chat1", Time: now},
	}
	out := s.Scan(context.Background(), msgs, 10)
	assert.Empty(t, out)
}

func TestScanGathersContextAndSummarizes(t *testing.T) {
	addr := "Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump"
	market := &fakeMarket{data: map[string]*models.MarketData{addr: {Symbol: "FOO", Chain: "solana"}}}
	summ := &fakeSummarizer{out: "Traders are **bullish** on this one with a $2M target."}
	s := New(market, summ)

	now := time.Now()
	msgs := []Message{
		{Text: "this is looking really strong, might run to a new high soon", SourceName: "chat1", Time: now.Add(-2 * time.Minute)},
		{Text: "just dropped CA: " + addr, SourceName: "chat1", Time: now},
		{Text: "yeah I'm aping in, feels like a solid entry here honestly", SourceName: "chat1", Time: now.Add(2 * time.Minute)},
	}

	out := s.Scan(context.Background(), msgs, 10)
	require.Len(t, out, 1)
	assert.Equal(t, "FOO", out[0].Market.Symbol)
	assert.Equal(t, models.PolarityBullish, out[0].Sentiment)
	assert.NotContains(t, out[0].Summary, "**")
	assert.LessOrEqual(t, len(out[0].Summary), 500)
}

func TestScanFallsBackOnSummarizerFailure(t *testing.T) {
	addr := "Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump"
	market := &fakeMarket{data: map[string]*models.MarketData{addr: {Symbol: "FOO", Chain: "solana"}}}
	summ := &fakeSummarizer{err: errors.New("oracle down")}
	s := New(market, summ)

	now := time.Now()
	msgs := []Message{
		{Text: "this chart looks bullish honestly, strong setup here for a breakout", SourceName: "chat1", Time: now.Add(-1 * time.Minute)},
		{Text: "CA: " + addr, SourceName: "chat1", Time: now},
	}

	out := s.Scan(context.Background(), msgs, 10)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].Summary)
	assert.Equal(t, models.PolarityNeutral, out[0].Sentiment)
}

func TestScanSortedByLastSeenDescendingAndLimited(t *testing.T) {
	addrA := "Gk7dZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump"
	addrB := "Hx9eZCZYLYjsNJzBjKfRBGfJ4q3mUjfTcZdAMvnxpump"
	market := &fakeMarket{data: map[string]*models.MarketData{
		addrA: {Symbol: "FOO", Chain: "solana"},
		addrB: {Symbol: "BAR", Chain: "solana"},
	}}
	s := New(market, nil)

	now := time.Now()
	msgs := []Message{
		{Text: "CA: " + addrA, SourceName: "chat1", Time: now.Add(-10 * time.Minute)},
		{Text: "CA: " + addrB, SourceName: "chat1", Time: now},
	}

	out := s.Scan(context.Background(), msgs, 1)
	require.Len(t, out, 1)
	assert.Equal(t, "BAR", out[0].Market.Symbol)
}
