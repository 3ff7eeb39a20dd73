// Package reputation implements the Source Reputation Tracker: an
// in-memory registry of per-source call/outcome history and the derived
// hit-rate, speed, and trust scores used by clustering and ranking.
package reputation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainpulse/signal-engine/pkg/models"
)

const (
	successThreshold = 0.5
	failureThreshold = -0.3
	minCallsForScore = 3
)

// Tracker holds every known source's reputation, keyed by source ID
// (the chat's telegram_id equivalent). Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	sources map[string]*models.SourceStats
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{sources: make(map[string]*models.SourceStats)}
}

// GetOrCreate returns the stats record for sourceID, creating one with
// first_tracked=now if it doesn't exist yet.
func (t *Tracker) GetOrCreate(sourceID, name, sourceType string, now time.Time) *models.SourceStats {
	t.mu.RLock()
	s, ok := t.sources[sourceID]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sources[sourceID]; ok {
		return s
	}
	s = models.NewSourceStats(sourceID, name, sourceType, now)
	t.sources[sourceID] = s
	return s
}

// RecordCall bumps total_calls and last_call for a source, creating its
// stats on first sight. Which messages count as calls is up to the caller.
func (t *Tracker) RecordCall(sourceID, name, sourceType string, now time.Time) *models.SourceStats {
	s := t.GetOrCreate(sourceID, name, sourceType, now)

	t.mu.Lock()
	defer t.mu.Unlock()
	s.TotalCalls++
	s.LastCall = now
	return s
}

// RecordOutcome attaches a realized return (as a fraction, 0.5 = +50%) to
// a source's history and recalculates its derived scores. timeToMove is
// the time from call to the price move that produced the outcome, zero if
// unknown. A source with no prior call history is a no-op, matching the
// reference tracker's behavior of silently dropping outcomes for unknown
// sources.
func (t *Tracker) RecordOutcome(sourceID string, returnFraction float64, timeToMove time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sources[sourceID]
	if !ok {
		return
	}

	ret := decimal.NewFromFloat(returnFraction)
	s.Returns = append(s.Returns, ret)
	s.TotalReturn = s.TotalReturn.Add(ret)

	if timeToMove > 0 {
		s.TimesToMove = append(s.TimesToMove, timeToMove)
	}

	switch {
	case returnFraction >= successThreshold:
		s.SuccessfulCalls++
	case returnFraction <= failureThreshold:
		s.FailedCalls++
	}

	recalculate(s)
}

func recalculate(s *models.SourceStats) {
	if s.TotalCalls > 0 {
		s.HitRate = float64(s.SuccessfulCalls) / float64(s.TotalCalls)
	}

	if len(s.Returns) > 0 {
		sum := decimal.Zero
		for _, r := range s.Returns {
			sum = sum.Add(r)
		}
		avg, _ := sum.Div(decimal.NewFromInt(int64(len(s.Returns)))).Float64()
		s.AvgReturn = avg
	}

	if len(s.TimesToMove) > 0 {
		var totalSeconds float64
		for _, d := range s.TimesToMove {
			totalSeconds += d.Seconds()
		}
		avgSeconds := totalSeconds / float64(len(s.TimesToMove))
		speed := 100 - avgSeconds/36
		s.SpeedScore = clamp(speed, 0, 100)
	}

	if s.TotalCalls >= minCallsForScore {
		hitComponent := s.HitRate * 40
		returnComponent := minF(s.AvgReturn/5, 1) * 30
		speedComponent := s.SpeedScore * 0.2
		volumeComponent := minF(float64(s.TotalCalls)/50, 1) * 10
		s.TrustScore = hitComponent + returnComponent + speedComponent + volumeComponent
	} else {
		s.TrustScore = 50.0
	}

	checkFlags(s)
}

func checkFlags(s *models.SourceStats) {
	s.IsFlagged = false
	s.FlagReason = ""

	if s.TotalCalls >= 10 && s.HitRate < 0.15 {
		s.IsFlagged = true
		s.FlagReason = fmt.Sprintf("very low hit rate: %.0f%%", s.HitRate*100)
	}

	if s.TotalCalls >= 5 && s.AvgReturn < -0.2 {
		s.IsFlagged = true
		s.FlagReason = fmt.Sprintf("negative average return: %.0f%%", s.AvgReturn*100)
	}

	total := s.TotalCalls
	if total < 1 {
		total = 1
	}
	if s.FailedCalls >= 5 && float64(s.FailedCalls)/float64(total) > 0.5 {
		s.IsFlagged = true
		s.FlagReason = fmt.Sprintf("high failure rate: %d failures", s.FailedCalls)
	}
}

// IsFlagged satisfies rank.FlagProvider.
func (t *Tracker) IsFlagged(sourceID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sources[sourceID]
	return ok && s.IsFlagged
}

// AverageTrust satisfies cluster.TrustProvider: the mean trust score
// across the given source IDs, 50 when none are known yet.
func (t *Tracker) AverageTrust(sourceIDs []string) float64 {
	if len(sourceIDs) == 0 {
		return 50.0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var sum float64
	var n int
	for _, id := range sourceIDs {
		if s, ok := t.sources[id]; ok {
			sum += s.TrustScore
			n++
		}
	}
	if n == 0 {
		return 50.0
	}
	return sum / float64(n)
}

// Get returns a copy of a source's stats, for API/leaderboard rendering.
func (t *Tracker) Get(sourceID string) (models.SourceStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sources[sourceID]
	if !ok {
		return models.SourceStats{}, false
	}
	return *s, true
}

// Leaderboard returns sources with at least minCalls, sorted by trust
// score descending, capped at limit. Flagged sources are excluded unless
// includeFlagged is set.
func (t *Tracker) Leaderboard(minCalls, limit int, includeFlagged bool) []models.SourceStats {
	t.mu.RLock()
	out := make([]models.SourceStats, 0, len(t.sources))
	for _, s := range t.sources {
		if s.TotalCalls < minCalls {
			continue
		}
		if !includeFlagged && s.IsFlagged {
			continue
		}
		out = append(out, *s)
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TrustScore > out[j].TrustScore
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Flagged returns every currently flagged source.
func (t *Tracker) Flagged() []models.SourceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.SourceStats, 0)
	for _, s := range t.sources {
		if s.IsFlagged {
			out = append(out, *s)
		}
	}
	return out
}

func minF(a, b float64) float64 {
	if a < b {
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
