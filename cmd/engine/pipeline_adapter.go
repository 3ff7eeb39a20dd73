package main

import (
	"context"

	"github.com/chainpulse/signal-engine/internal/dedup"
	"github.com/chainpulse/signal-engine/internal/extract"
	"github.com/chainpulse/signal-engine/pkg/models"
)

// extractDedupPipeline adapts the Entity Extractor and Deduplicator to
// jobs.Pipeline, so the scheduler never needs to know about either
// package directly.
type extractDedupPipeline struct {
	extractor *extract.Extractor
	dedup     *dedup.Deduplicator
}

func newExtractDedupPipeline(extractor *extract.Extractor, dd *dedup.Deduplicator) *extractDedupPipeline {
	return &extractDedupPipeline{extractor: extractor, dedup: dd}
}

// Process satisfies jobs.Pipeline: it drops raw messages already seen
// within the configured window, marks the rest as seen, then extracts
// structured facts from each of them.
func (p *extractDedupPipeline) Process(ctx context.Context, raw []models.RawMessage) []models.ProcessedMessage {
	out := make([]models.ProcessedMessage, 0, len(raw))
	for _, rm := range raw {
		if dup, _ := p.dedup.IsDuplicate(ctx, rm.Text); dup {
			continue
		}
		p.dedup.MarkSeen(ctx, rm.Text)
		out = append(out, p.extractor.Extract(rm))
	}
	return out
}
