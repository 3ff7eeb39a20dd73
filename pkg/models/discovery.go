package models

import "time"

// MarketData is the shape the Market Data Oracle returns for a token
// address, per the external interface contract.
type MarketData struct {
	Symbol        string
	Name          string
	PriceUSD      float64
	MarketCap     float64
	LiquidityUSD  float64
	PriceChange1h float64
	PriceChange24h float64
	Volume24h     float64
	Chain         string
	ImageURL      string
	DexURL        string
}

// DiscussionWindow is one gathered context window around a mention: the
// messages surrounding a single address mention in a single chat.
type DiscussionWindow struct {
	Chat      string
	Time      time.Time
	Messages  []string
}

// TokenDiscussion is the Contextual Scanner's per-token output record.
type TokenDiscussion struct {
	Address      string
	Chain        string
	Market       *MarketData
	MentionCount int
	Chats        map[string]struct{}
	FirstSeen    time.Time
	LastSeen     time.Time
	Windows      []DiscussionWindow
	Summary      string
	Sentiment    Polarity
}
