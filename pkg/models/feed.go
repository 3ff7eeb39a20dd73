package models

// FeedEntry is the consumer-facing shape served over HTTP and the push
// channel: one ranked cluster.
type FeedEntry struct {
	ClusterID string        `json:"cluster_id"`
	Token     FeedToken     `json:"token"`
	Score     float64       `json:"score"`
	Metrics   FeedMetrics   `json:"metrics"`
	Sentiment FeedSentiment `json:"sentiment"`
	Timing    FeedTiming    `json:"timing"`
	TopSignal FeedTopSignal `json:"top_signal"`
	Sources   []string      `json:"sources"`
	Wallets   []string      `json:"wallets"`
}

type FeedToken struct {
	Address string `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Chain   string `json:"chain"`
}

type FeedMetrics struct {
	UniqueSources int     `json:"unique_sources"`
	TotalMentions int     `json:"total_mentions"`
	UniqueWallets int     `json:"unique_wallets"`
	Velocity      float64 `json:"velocity"`
}

type FeedSentiment struct {
	Bullish        int     `json:"bullish"`
	Bearish        int     `json:"bearish"`
	Neutral        int     `json:"neutral"`
	Overall        string  `json:"overall"`
	PercentBullish float64 `json:"percent_bullish"`
}

type FeedTiming struct {
	FirstSeenISO string  `json:"first_seen_iso"`
	AgeMinutes   float64 `json:"age_minutes"`
}

type FeedTopSignal struct {
	Text         string `json:"text"`
	Source       string `json:"source"`
	IsDiscussion bool   `json:"is_discussion"`
}
