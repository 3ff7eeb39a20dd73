// Package cluster implements the Clustering Engine: per-token rolling
// aggregates with minute-bucket velocity tracking and composite scoring.
package cluster

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chainpulse/signal-engine/internal/rank"
	"github.com/chainpulse/signal-engine/pkg/models"
)

// TrustProvider supplies the average trust score across a set of sources,
// used by the source_quality score component. Implementations return 50
// for unknown sources.
type TrustProvider interface {
	AverageTrust(sourceIDs []string) float64
}

// Sink receives clusters retired by the engine, either lazily (superseded
// on next Add) or periodically (the hourly retirement job).
type Sink interface {
	Retire(c *models.Cluster)
}

const (
	sourceDiversityWeight = 25.0
	recencyWeight         = 20.0
	velocityWeight        = 20.0
	walletActivityWeight  = 15.0
	sourceQualityWeight   = 20.0
	spamPenaltyWeight     = -30.0
)

type entry struct {
	mu      sync.Mutex
	cluster *models.Cluster
	buckets minuteRing
}

// Engine maintains the active-cluster map and the velocity/score
// recomputation on every Add.
type Engine struct {
	window time.Duration
	trust  TrustProvider
	sink   Sink

	mapMu   sync.RWMutex
	active  map[string]*entry
}

// New creates an Engine with the given retirement window (spec default 30
// minutes).
func New(window time.Duration, trust TrustProvider, sink Sink) *Engine {
	return &Engine{
		window: window,
		trust:  trust,
		sink:   sink,
		active: make(map[string]*entry),
	}
}

func clusterKey(address, symbol, chain string) string {
	if address != "" {
		return address + ":" + chain
	}
	if symbol != "" {
		return "$" + symbol + ":" + chain
	}
	return "unknown:" + chain + ":" + uuid.NewString()
}

// Add appends a ProcessedMessage to every token's cluster it references,
// creating or retiring clusters as needed, and recomputes scores.
// Recomputation happens while the cluster's own lock is held, so readers
// observe either the pre- or post-Add state, never a partial one.
func (e *Engine) Add(pm models.ProcessedMessage, now time.Time) {
	for _, tok := range pm.Tokens {
		e.addForToken(pm, tok, now)
	}
}

func (e *Engine) addForToken(pm models.ProcessedMessage, tok models.TokenRef, now time.Time) {
	key := clusterKey(tok.Address, tok.Symbol, tok.Chain)

	ent := e.getOrCreateEntry(key, tok, now)

	ent.mu.Lock()
	defer ent.mu.Unlock()

	if now.Sub(ent.cluster.Timestamps.LastSeen) > e.window {
		if e.sink != nil {
			e.sink.Retire(ent.cluster)
		}
		ent.cluster = models.NewCluster(uuid.NewString(), tok.Address, tok.Symbol, tok.Chain, now)
		ent.buckets = minuteRing{}
	}

	c := ent.cluster
	c.Messages = append(c.Messages, pm)
	c.Timestamps.LastSeen = now
	c.Counters.TotalMentions++
	c.SourceIDs[pm.SourceID] = struct{}{}
	c.SourceNames[pm.SourceName] = struct{}{}
	for _, w := range pm.Wallets {
		c.WalletAddrs[w.Address] = struct{}{}
	}

	switch pm.Sentiment.Polarity {
	case models.PolarityBullish:
		c.Counters.SentimentBullish++
	case models.PolarityBearish:
		c.Counters.SentimentBearish++
	default:
		c.Counters.SentimentNeutral++
	}

	minute := now.Unix() / 60
	ent.buckets.increment(minute)
	count := ent.buckets.countAt(minute)
	if count > int(c.Counters.PeakMentionsPerMinute) {
		c.Counters.PeakMentionsPerMinute = float64(count)
		c.Timestamps.PeakActivityTime = now
	}
	c.Counters.MentionsPerMinute = ent.buckets.last5Average(minute)

	e.recomputeScores(c, now)
}

func (e *Engine) getOrCreateEntry(key string, tok models.TokenRef, now time.Time) *entry {
	e.mapMu.RLock()
	ent, ok := e.active[key]
	e.mapMu.RUnlock()
	if ok {
		return ent
	}

	e.mapMu.Lock()
	defer e.mapMu.Unlock()
	if ent, ok := e.active[key]; ok {
		return ent
	}
	ent = &entry{cluster: models.NewCluster(uuid.NewString(), tok.Address, tok.Symbol, tok.Chain, now)}
	e.active[key] = ent
	return ent
}

func (e *Engine) recomputeScores(c *models.Cluster, now time.Time) {
	ageSeconds := now.Sub(c.Timestamps.FirstSeen).Seconds()

	sourceCount := float64(len(c.SourceIDs))
	sourceDiversity := minF(sourceCount/5.0, 1.0) * sourceDiversityWeight

	recency := maxF(0, 1-ageSeconds/3600) * recencyWeight

	velocityComponent := minF(c.Counters.MentionsPerMinute/5.0, 1.0) * velocityWeight

	walletCount := float64(len(c.WalletAddrs))
	walletActivity := minF(walletCount/3.0, 1.0) * walletActivityWeight

	confidence := minF(sourceCount*15, 100)

	avgTrust := 50.0
	if e.trust != nil {
		ids := make([]string, 0, len(c.SourceIDs))
		for id := range c.SourceIDs {
			ids = append(ids, id)
		}
		avgTrust = e.trust.AverageTrust(ids)
	}
	sourceQuality := (avgTrust / 100.0) * sourceQualityWeight

	spam := rank.SpamScore(c)

	urgency := minF((velocityComponent+recency)*1.5, 100)
	novelty := maxF(0, 100-ageSeconds/60)

	priority := sourceDiversity + recency + velocityComponent + walletActivity + sourceQuality + spam*spamPenaltyWeight
	priority = clamp(priority, 0, 100)

	c.Scores.Confidence = confidence
	c.Scores.Urgency = urgency
	c.Scores.Novelty = novelty
	c.Scores.Priority = priority
}

// Snapshot returns a shallow copy of all currently active clusters, safe
// for readers to inspect without holding the engine's internal locks.
func (e *Engine) Snapshot() []*models.Cluster {
	e.mapMu.RLock()
	defer e.mapMu.RUnlock()

	out := make([]*models.Cluster, 0, len(e.active))
	for _, ent := range e.active {
		ent.mu.Lock()
		cp := *ent.cluster
		ent.mu.Unlock()
		out = append(out, &cp)
	}
	return out
}

// RetireExpired retires every active cluster whose last_seen predates
// now-window, per the hourly maintenance job. Idempotent: a cluster
// retired lazily by a subsequent Add is simply absent from the map already.
func (e *Engine) RetireExpired(now time.Time) int {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	retired := 0
	for key, ent := range e.active {
		ent.mu.Lock()
		expired := now.Sub(ent.cluster.Timestamps.LastSeen) > e.window
		if expired && e.sink != nil {
			e.sink.Retire(ent.cluster)
		}
		ent.mu.Unlock()
		if expired {
			delete(e.active, key)
			retired++
		}
	}
	return retired
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
