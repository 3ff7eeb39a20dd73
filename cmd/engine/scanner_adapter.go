package main

import (
	"context"

	"github.com/chainpulse/signal-engine/internal/api"
	"github.com/chainpulse/signal-engine/internal/scanner"
	"github.com/chainpulse/signal-engine/pkg/models"
)

// scannerAdapter satisfies api.Scanner by converting the HTTP-layer
// message shape into the one internal/scanner.Scanner expects.
type scannerAdapter struct {
	inner *scanner.Scanner
}

func newScannerAdapter(inner *scanner.Scanner) *scannerAdapter {
	return &scannerAdapter{inner: inner}
}

func (a *scannerAdapter) Scan(ctx context.Context, messages []api.ScanMessage, limit int) []models.TokenDiscussion {
	converted := make([]scanner.Message, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, scanner.Message{
			Text:       m.Text,
			SourceName: m.SourceName,
			Time:       m.Time,
		})
	}
	return a.inner.Scan(ctx, converted, limit)
}
