package models

import "time"

// ClusterScores holds the composite scores the Clustering Engine maintains
// for a cluster. All fields are clamped to [0,100] before exposure.
type ClusterScores struct {
	Urgency    float64
	Novelty    float64
	Confidence float64
	Priority   float64
}

// ClusterPrices tracks the price trajectory a cluster has observed, when the
// market-data oracle has supplied one.
type ClusterPrices struct {
	AtFirstMention float64
	AtPeak         float64
	Current        float64
}

// ClusterTimestamps groups the three timestamps a cluster tracks.
type ClusterTimestamps struct {
	FirstSeen        time.Time
	LastSeen         time.Time
	PeakActivityTime time.Time
}

// ClusterCounters groups the mention/sentiment tallies a cluster maintains.
// SentimentBullish + SentimentBearish + SentimentNeutral must always equal
// TotalMentions.
type ClusterCounters struct {
	TotalMentions        int
	MentionsPerMinute    float64
	PeakMentionsPerMinute float64
	SentimentBullish     int
	SentimentBearish     int
	SentimentNeutral     int
}

// Cluster is the in-memory rolling aggregate of recent messages about a
// single token on a single chain. Mutated only by the Clustering Engine.
type Cluster struct {
	ID            string
	TokenAddress  string
	TokenSymbol   string
	Chain         string
	Timestamps    ClusterTimestamps
	Messages      []ProcessedMessage
	SourceIDs     map[string]struct{}
	SourceNames   map[string]struct{}
	WalletAddrs   map[string]struct{}
	Counters      ClusterCounters
	Scores        ClusterScores
	Prices        ClusterPrices

	// OutcomeComputed marks that the 1-hour-return job has already fed
	// this cluster's result into the Source Tracker, so it is skipped on
	// later runs of the same job.
	OutcomeComputed bool
}

// Key returns the cluster key this cluster was created under:
// address:chain if the address is known, else $symbol:chain.
func (c *Cluster) Key() string {
	if c.TokenAddress != "" {
		return c.TokenAddress + ":" + c.Chain
	}
	if c.TokenSymbol != "" {
		return "$" + c.TokenSymbol + ":" + c.Chain
	}
	return "unknown:" + c.Chain + ":" + c.ID
}

// NewCluster creates an empty cluster for the given key material, seeded
// with a novelty score of 100 per the Clustering Engine contract.
func NewCluster(id, address, symbol, chain string, now time.Time) *Cluster {
	return &Cluster{
		ID:           id,
		TokenAddress: address,
		TokenSymbol:  symbol,
		Chain:        chain,
		Timestamps: ClusterTimestamps{
			FirstSeen: now,
			LastSeen:  now,
		},
		SourceIDs:   make(map[string]struct{}),
		SourceNames: make(map[string]struct{}),
		WalletAddrs: make(map[string]struct{}),
		Scores:      ClusterScores{Novelty: 100},
	}
}
