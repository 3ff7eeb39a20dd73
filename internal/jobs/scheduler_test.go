package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpulse/signal-engine/internal/cluster"
	"github.com/chainpulse/signal-engine/internal/reputation"
	"github.com/chainpulse/signal-engine/pkg/models"
)

type fakeSource struct{ batches [][]models.RawMessage }

func (f *fakeSource) Drain(_ context.Context) []models.RawMessage {
	if len(f.batches) == 0 {
		return nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b
}

type identityPipeline struct{}

func (identityPipeline) Process(_ context.Context, raw []models.RawMessage) []models.ProcessedMessage {
	out := make([]models.ProcessedMessage, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.ProcessedMessage{
			ID:             r.ID,
			SourceID:       r.SourceID,
			SourceName:     r.SourceName,
			Classification: models.ClassificationCall,
			Tokens:         []models.TokenRef{{Address: "addrX", Chain: "solana", Confidence: 0.9}},
			OriginalText:   r.Text,
		})
	}
	return out
}

type fakePriceOracle struct{ price float64 }

func (f fakePriceOracle) Lookup(_ context.Context, _, _ string) (*models.MarketData, error) {
	return &models.MarketData{Symbol: "FOO", PriceUSD: f.price}, nil
}

type fakeSink struct {
	clusters  []*models.Cluster
	snapshots []*models.SourceStats
}

func (f *fakeSink) StoreCluster(_ context.Context, c *models.Cluster) error {
	f.clusters = append(f.clusters, c)
	return nil
}

func (f *fakeSink) StoreSourceSnapshot(_ context.Context, s *models.SourceStats) error {
	f.snapshots = append(f.snapshots, s)
	return nil
}

func TestRunBatchClustersAndRecordsCalls(t *testing.T) {
	src := &fakeSource{batches: [][]models.RawMessage{{{ID: "m1", SourceID: "s1", SourceName: "Chat"}}}}
	eng := cluster.New(30*time.Minute, reputation.New(), nil)
	sources := reputation.New()

	s := New(DefaultConfig(), nil, src, identityPipeline{}, eng, sources, nil, nil)
	s.runBatch(context.Background())

	snap := eng.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].Counters.TotalMentions)

	stats, ok := sources.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 1, stats.TotalCalls)
}

func TestRunPriceRefreshUpdatesCurrentPrice(t *testing.T) {
	eng := cluster.New(30*time.Minute, reputation.New(), nil)
	now := time.Now()
	eng.Add(models.ProcessedMessage{
		ID: "m1", SourceID: "s1", SourceName: "Chat",
		Tokens: []models.TokenRef{{Address: "addrX", Chain: "solana", Confidence: 0.9}},
	}, now)

	s := New(DefaultConfig(), nil, nil, nil, eng, reputation.New(), fakePriceOracle{price: 2.5}, nil)
	s.runPriceRefresh(context.Background())

	snap := eng.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2.5, snap[0].Prices.Current)
	assert.Equal(t, 2.5, snap[0].Prices.AtFirstMention)
}

func TestRunOutcomesFeedsSourceTrackerAndMarksComputed(t *testing.T) {
	eng := cluster.New(30*time.Minute, reputation.New(), nil)
	base := time.Now().Add(-65 * time.Minute)
	eng.Add(models.ProcessedMessage{
		ID: "m1", SourceID: "s1", SourceName: "Chat",
		Tokens: []models.TokenRef{{Address: "addrX", Chain: "solana", Confidence: 0.9}},
	}, base)

	eng.UpdatePrice(eng.Snapshot()[0].Key(), 1.0, base)
	eng.UpdatePrice(eng.Snapshot()[0].Key(), 1.6, time.Now())

	sources := reputation.New()
	sources.RecordCall("s1", "Chat", "channel", base)

	cfg := DefaultConfig()
	s := New(cfg, nil, nil, nil, eng, sources, nil, nil)
	s.runOutcomes(context.Background())

	stats, ok := sources.Get("s1")
	require.True(t, ok)
	assert.InDelta(t, 0.6, stats.AvgReturn, 0.001)

	snap := eng.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].OutcomeComputed)
}

func TestRunPersistStoresEverySourceSnapshot(t *testing.T) {
	sources := reputation.New()
	sources.RecordCall("s1", "Chat", "channel", time.Now())
	sink := &fakeSink{}

	s := New(DefaultConfig(), nil, nil, nil, cluster.New(30*time.Minute, reputation.New(), nil), sources, nil, sink)
	s.runPersist(context.Background())

	assert.Len(t, sink.snapshots, 1)
}

func TestRunRetireCallsSink(t *testing.T) {
	sink := &fakeClusterSink{}
	eng := cluster.New(time.Minute, reputation.New(), sink)
	eng.Add(models.ProcessedMessage{
		ID: "m1", SourceID: "s1", SourceName: "Chat",
		Tokens: []models.TokenRef{{Address: "addrX", Chain: "solana", Confidence: 0.9}},
	}, time.Now().Add(-10*time.Minute))

	s := New(DefaultConfig(), nil, nil, nil, eng, reputation.New(), nil, nil)
	s.runRetire(context.Background())

	assert.Len(t, sink.retired, 1)
}

type fakeClusterSink struct{ retired []*models.Cluster }

func (f *fakeClusterSink) Retire(c *models.Cluster) { f.retired = append(f.retired, c) }
