// Package dedup suppresses repeated messages over a sliding time window
// using an exact content-fingerprint match plus an optional semantic
// similarity check against a bounded embedding cache.
package dedup

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/chainpulse/signal-engine/internal/extract"
)

// EmbeddingOracle maps text to a fixed-dimension vector. A nil oracle makes
// the Deduplicator fall back to fingerprint-only suppression.
type EmbeddingOracle interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	defaultMaxEmbeddings   = 1000
	semanticMinTextLen     = 20
)

type embeddingEntry struct {
	hash      string
	embedding []float32
	seenAt    time.Time
}

// Deduplicator implements the sliding-window exact+semantic suppression
// contract. Safe for concurrent use.
type Deduplicator struct {
	mu sync.Mutex

	window             time.Duration
	similarityThreshold float64
	maxEmbeddings      int

	recentHashes     map[string]time.Time
	recentEmbeddings []embeddingEntry

	oracle EmbeddingOracle

	warnMu       sync.Mutex
	lastWarnedAt time.Time
	onOracleDown func(err error)
}

// Option configures a Deduplicator at construction time.
type Option func(*Deduplicator)

// WithEmbeddingOracle wires the semantic-similarity oracle.
func WithEmbeddingOracle(o EmbeddingOracle) Option {
	return func(d *Deduplicator) { d.oracle = o }
}

// WithMaxEmbeddings overrides the default bounded-cache size.
func WithMaxEmbeddings(n int) Option {
	return func(d *Deduplicator) { d.maxEmbeddings = n }
}

// WithOracleDownHandler is called (rate-limited internally to once a
// minute) whenever the embedding oracle is unavailable.
func WithOracleDownHandler(fn func(err error)) Option {
	return func(d *Deduplicator) { d.onOracleDown = fn }
}

// New creates a Deduplicator with the given window and similarity
// threshold (spec defaults: 5 minutes, 0.85).
func New(window time.Duration, similarityThreshold float64, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		window:              window,
		similarityThreshold: similarityThreshold,
		maxEmbeddings:       defaultMaxEmbeddings,
		recentHashes:        make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsDuplicate reports whether text has already been seen within the
// window, either by exact fingerprint or (for texts longer than 20
// characters) by semantic similarity ≥ the configured threshold. It
// returns the matched fingerprint when true.
func (d *Deduplicator) IsDuplicate(ctx context.Context, text string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.cleanOldEntriesLocked(now)

	fp := extract.Fingerprint(text)
	if _, ok := d.recentHashes[fp]; ok {
		return true, fp
	}

	if d.oracle != nil && len(text) > semanticMinTextLen && len(d.recentEmbeddings) > 0 {
		vec, err := d.oracle.Embed(ctx, text)
		if err != nil {
			d.reportOracleDown(err)
			return false, ""
		}
		for _, entry := range d.recentEmbeddings {
			if cosineSimilarity(vec, entry.embedding) >= d.similarityThreshold {
				return true, entry.hash
			}
		}
	}

	return false, ""
}

// MarkSeen records text as seen as of now, inserting its fingerprint and,
// for texts long enough to be worth embedding, its vector.
func (d *Deduplicator) MarkSeen(ctx context.Context, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	fp := extract.Fingerprint(text)
	d.recentHashes[fp] = now

	if d.oracle == nil || len(text) <= semanticMinTextLen {
		return
	}

	vec, err := d.oracle.Embed(ctx, text)
	if err != nil {
		d.reportOracleDown(err)
		return
	}

	d.recentEmbeddings = append(d.recentEmbeddings, embeddingEntry{hash: fp, embedding: vec, seenAt: now})
	if len(d.recentEmbeddings) > d.maxEmbeddings {
		overflow := len(d.recentEmbeddings) - d.maxEmbeddings
		d.recentEmbeddings = d.recentEmbeddings[overflow:]
	}
}

func (d *Deduplicator) cleanOldEntriesLocked(now time.Time) {
	cutoff := now.Add(-d.window)

	for h, t := range d.recentHashes {
		if t.Before(cutoff) {
			delete(d.recentHashes, h)
		}
	}

	kept := d.recentEmbeddings[:0]
	for _, e := range d.recentEmbeddings {
		if !e.seenAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	d.recentEmbeddings = kept
}

func (d *Deduplicator) reportOracleDown(err error) {
	if d.onOracleDown == nil {
		return
	}
	d.warnMu.Lock()
	defer d.warnMu.Unlock()
	now := time.Now()
	if now.Sub(d.lastWarnedAt) < time.Minute {
		return
	}
	d.lastWarnedAt = now
	d.onOracleDown(err)
}

// DeduplicateBatch returns the first occurrence of each fingerprint in
// order, stable with respect to input order.
func DeduplicateBatch(texts []string) []string {
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		fp := extract.Fingerprint(t)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, t)
	}
	return out
}

// GroupSimilar partitions texts into semantic clusters with a greedy
// single pass: each text joins the first existing group whose
// representative is similar enough, else opens a new group.
func (d *Deduplicator) GroupSimilar(ctx context.Context, texts []string) [][]string {
	if len(texts) == 0 || d.oracle == nil {
		return wrapEach(texts)
	}

	type group struct {
		representative []float32
		members        []string
	}
	var groups []group

	for _, t := range texts {
		vec, err := d.oracle.Embed(ctx, t)
		if err != nil {
			d.reportOracleDown(err)
			groups = append(groups, group{members: []string{t}})
			continue
		}
		joined := false
		for i := range groups {
			if groups[i].representative == nil {
				continue
			}
			if cosineSimilarity(vec, groups[i].representative) >= d.similarityThreshold {
				groups[i].members = append(groups[i].members, t)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, group{representative: vec, members: []string{t}})
		}
	}

	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.members
	}
	return out
}

func wrapEach(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = []string{t}
	}
	return out
}

// cosineSimilarity computes the cosine similarity of two equal-length
// vectors; mismatched or empty vectors yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
