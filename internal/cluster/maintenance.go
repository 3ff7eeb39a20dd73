package cluster

import (
	"time"

	"github.com/chainpulse/signal-engine/pkg/models"
)

// RefreshTarget is one active cluster whose price the 60s job should
// refresh through the market-data oracle.
type RefreshTarget struct {
	Key     string
	Address string
	Chain   string
}

// PriceTargets lists every active cluster with a known token address,
// for the periodic price-refresh job.
func (e *Engine) PriceTargets() []RefreshTarget {
	e.mapMu.RLock()
	defer e.mapMu.RUnlock()

	out := make([]RefreshTarget, 0, len(e.active))
	for key, ent := range e.active {
		ent.mu.Lock()
		addr := ent.cluster.TokenAddress
		chain := ent.cluster.Chain
		ent.mu.Unlock()
		if addr == "" {
			continue
		}
		out = append(out, RefreshTarget{Key: key, Address: addr, Chain: chain})
	}
	return out
}

// UpdatePrice applies a fresh market price to the cluster at key, setting
// the at-first-mention price on the first observation and bumping the
// peak price when exceeded. A stale key (cluster retired since the
// target was listed) is silently ignored.
func (e *Engine) UpdatePrice(key string, price float64, now time.Time) {
	e.mapMu.RLock()
	ent, ok := e.active[key]
	e.mapMu.RUnlock()
	if !ok {
		return
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	c := ent.cluster
	if c.Prices.AtFirstMention == 0 {
		c.Prices.AtFirstMention = price
	}
	if price > c.Prices.AtPeak {
		c.Prices.AtPeak = price
	}
	c.Prices.Current = price
	e.recomputeScores(c, now)
}

// AgedForOutcome returns a snapshot of every active cluster whose age
// falls within [minAge, maxAge] and whose 1-hour outcome has not yet been
// computed, per the outcome job's ~1 hour window.
func (e *Engine) AgedForOutcome(now time.Time, minAge, maxAge time.Duration) []*models.Cluster {
	e.mapMu.RLock()
	defer e.mapMu.RUnlock()

	var out []*models.Cluster
	for _, ent := range e.active {
		ent.mu.Lock()
		age := now.Sub(ent.cluster.Timestamps.FirstSeen)
		if !ent.cluster.OutcomeComputed && age >= minAge && age <= maxAge {
			cp := *ent.cluster
			out = append(out, &cp)
		}
		ent.mu.Unlock()
	}
	return out
}

// MarkOutcomeComputed flags the cluster at key so the outcome job does
// not process it again on a later run.
func (e *Engine) MarkOutcomeComputed(key string) {
	e.mapMu.RLock()
	ent, ok := e.active[key]
	e.mapMu.RUnlock()
	if !ok {
		return
	}
	ent.mu.Lock()
	ent.cluster.OutcomeComputed = true
	ent.mu.Unlock()
}
