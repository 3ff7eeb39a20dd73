package rank

import (
	"sort"
	"strings"
	"time"

	"github.com/chainpulse/signal-engine/pkg/models"
)

// FlagProvider answers whether a source is currently flagged, used by the
// filter step to exclude clusters whose only source is flagged.
type FlagProvider interface {
	IsFlagged(sourceID string) bool
}

// FilterOptions configures Filter's criteria; zero values disable a given
// check except MaxAge, which defaults to 60 minutes when unset via
// DefaultFilterOptions.
type FilterOptions struct {
	MaxAge               time.Duration
	MinScore             float64
	MinSources           int
	MinMentions          int
	Chains               map[string]struct{}
	ExcludeFlaggedSources bool
}

// DefaultFilterOptions mirrors the reference defaults.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		MaxAge:     60 * time.Minute,
		MinSources: 1,
		MinMentions: 1,
		ExcludeFlaggedSources: true,
	}
}

// Filter applies the age → score → sources → mentions → chain →
// flagged-source-exclusion pipeline, in that order.
func Filter(clusters []*models.Cluster, now time.Time, opts FilterOptions, flags FlagProvider) []*models.Cluster {
	out := make([]*models.Cluster, 0, len(clusters))

	for _, c := range clusters {
		if opts.MaxAge > 0 && now.Sub(c.Timestamps.FirstSeen) > opts.MaxAge {
			continue
		}
		if c.Scores.Priority < opts.MinScore {
			continue
		}
		if len(c.SourceIDs) < opts.MinSources {
			continue
		}
		if c.Counters.TotalMentions < opts.MinMentions {
			continue
		}
		if len(opts.Chains) > 0 {
			if _, ok := opts.Chains[c.Chain]; !ok {
				continue
			}
		}
		if opts.ExcludeFlaggedSources && flags != nil && len(c.SourceIDs) == 1 {
			flagged := false
			for sourceID := range c.SourceIDs {
				if flags.IsFlagged(sourceID) {
					flagged = true
				}
			}
			if flagged {
				continue
			}
		}
		out = append(out, c)
	}

	return out
}

// Rank stable-sorts clusters by priority score, descending.
func Rank(clusters []*models.Cluster) []*models.Cluster {
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Scores.Priority > clusters[j].Scores.Priority
	})
	return clusters
}

var opinionWords = []string{
	"bullish", "bearish", "ape", "buy", "sell", "moon", "pump", "dev", "team",
	"looks", "think", "feel", "might", "could", "should", "entry", "target",
	"whale", "holding", "sold", "bought", "profit", "loss", "dip", "send",
	"gem", "alpha", "early", "undervalued", "potential", "legit", "rug",
	"scam", "careful", "risky", "safe", "trust", "based",
}

var botLikeSubstrings = []string{"pump.fun", "dexscreener", "birdeye", "http"}

// RepresentativeMessage picks the best "discussion" message for a cluster
// per the three-tier fallback.
func RepresentativeMessage(c *models.Cluster, contextMessages []models.ProcessedMessage) models.FeedTopSignal {
	if sig, ok := bestContextMessage(c, contextMessages); ok {
		return sig
	}

	start := len(c.Messages) - 10
	if start < 0 {
		start = 0
	}
	for i := len(c.Messages) - 1; i >= start; i-- {
		m := c.Messages[i]
		text := m.OriginalText
		if len(text) < 30 {
			continue
		}
		lower := strings.ToLower(text)
		if containsAny(lower, []string{"pump.fun/", "dexscreener.com", "birdeye.so"}) {
			continue
		}
		hasOpinion := containsAny(lower, []string{"bullish", "bearish", "looks", "think", "ape", "buy", "moon", "gem"})
		if hasOpinion || len(text) > 100 {
			return models.FeedTopSignal{Text: cap500(text), Source: m.SourceName, IsDiscussion: hasOpinion}
		}
	}

	if len(c.Messages) > 0 {
		m := c.Messages[len(c.Messages)-1]
		return models.FeedTopSignal{Text: cap500(m.OriginalText), Source: m.SourceName, IsDiscussion: false}
	}

	return models.FeedTopSignal{Text: "", Source: "Unknown", IsDiscussion: false}
}

func bestContextMessage(c *models.Cluster, contextMessages []models.ProcessedMessage) (models.FeedTopSignal, bool) {
	var best *models.ProcessedMessage
	var bestScore float64

	for i := range contextMessages {
		ctx := &contextMessages[i]
		text := ctx.OriginalText
		if len(text) < 20 {
			continue
		}
		lower := strings.ToLower(text)
		if containsAny(lower, botLikeSubstrings) {
			continue
		}
		if strings.Count(text, "/") > 3 {
			continue
		}

		score := float64(len(text))
		if score > 300 {
			score = 300
		}
		for _, w := range opinionWords {
			if strings.Contains(lower, w) {
				score += 40
			}
		}
		if ctx.Sentiment.Polarity == models.PolarityBullish || ctx.Sentiment.Polarity == models.PolarityBearish {
			score += 50
		}

		if score > bestScore {
			bestScore = score
			best = ctx
		}
	}

	if best != nil && bestScore > 80 {
		source := "Unknown"
		for name := range c.SourceNames {
			source = name
			break
		}
		return models.FeedTopSignal{Text: cap500(best.OriginalText), Source: source, IsDiscussion: true}, true
	}
	return models.FeedTopSignal{}, false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func cap500(s string) string {
	if len(s) <= 500 {
		return s
	}
	return s[:500]
}

// OverallSentiment derives the coarse feed sentiment label from a
// cluster's triad counters.
func OverallSentiment(c *models.Cluster) string {
	total := c.Counters.SentimentBullish + c.Counters.SentimentBearish + c.Counters.SentimentNeutral
	if total == 0 {
		return "neutral"
	}
	if c.Counters.SentimentBullish > c.Counters.SentimentBearish*2 {
		return "bullish"
	}
	if c.Counters.SentimentBearish > c.Counters.SentimentBullish*2 {
		return "bearish"
	}
	return "neutral"
}

// BullishPercent returns the bullish share of a cluster's classified
// sentiment, 50 when no sentiment has been recorded yet.
func BullishPercent(c *models.Cluster) float64 {
	total := c.Counters.SentimentBullish + c.Counters.SentimentBearish + c.Counters.SentimentNeutral
	if total == 0 {
		return 50.0
	}
	return float64(c.Counters.SentimentBullish) / float64(total) * 100
}

// ToFeedEntry builds the consumer-facing feed shape for a ranked cluster.
func ToFeedEntry(c *models.Cluster, now time.Time, contextMessages []models.ProcessedMessage) models.FeedEntry {
	sources := make([]string, 0, len(c.SourceNames))
	for name := range c.SourceNames {
		sources = append(sources, name)
		if len(sources) == 5 {
			break
		}
	}
	wallets := make([]string, 0, len(c.WalletAddrs))
	for addr := range c.WalletAddrs {
		wallets = append(wallets, addr)
		if len(wallets) == 3 {
			break
		}
	}

	return models.FeedEntry{
		ClusterID: c.ID,
		Token: models.FeedToken{
			Address: c.TokenAddress,
			Symbol:  c.TokenSymbol,
			Chain:   c.Chain,
		},
		Score: c.Scores.Priority,
		Metrics: models.FeedMetrics{
			UniqueSources: len(c.SourceIDs),
			TotalMentions: c.Counters.TotalMentions,
			UniqueWallets: len(c.WalletAddrs),
			Velocity:      c.Counters.MentionsPerMinute,
		},
		Sentiment: models.FeedSentiment{
			Bullish:        c.Counters.SentimentBullish,
			Bearish:        c.Counters.SentimentBearish,
			Neutral:        c.Counters.SentimentNeutral,
			Overall:        OverallSentiment(c),
			PercentBullish: BullishPercent(c),
		},
		Timing: models.FeedTiming{
			FirstSeenISO: c.Timestamps.FirstSeen.Format(time.RFC3339),
			AgeMinutes:   now.Sub(c.Timestamps.FirstSeen).Minutes(),
		},
		TopSignal: RepresentativeMessage(c, contextMessages),
		Sources:   sources,
		Wallets:   wallets,
	}
}
