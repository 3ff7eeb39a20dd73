package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceStats is the per-source reputation record the Source Reputation
// Tracker maintains for the lifetime of the process.
type SourceStats struct {
	TelegramID string
	Name       string
	SourceType string

	TotalCalls    int
	SuccessfulCalls int
	FailedCalls   int
	FirstTracked  time.Time
	LastCall      time.Time

	Returns      []decimal.Decimal
	TotalReturn  decimal.Decimal
	TimesToMove  []time.Duration

	HitRate    float64
	AvgReturn  float64
	SpeedScore float64
	TrustScore float64

	IsFlagged bool
	FlagReason string
}

// NewSourceStats creates a fresh stats record with the default trust score
// of 50 a source carries until it has enough calls.
func NewSourceStats(telegramID, name, sourceType string, now time.Time) *SourceStats {
	return &SourceStats{
		TelegramID:   telegramID,
		Name:         name,
		SourceType:   sourceType,
		FirstTracked: now,
		TrustScore:   50,
		HitRate:      0.5,
	}
}
