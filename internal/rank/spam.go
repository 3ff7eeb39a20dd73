// Package rank implements the Ranking Engine: spam detection, cluster
// filtering, stable priority-descending ordering, and representative-
// message selection.
package rank

import (
	"regexp"
	"strings"

	"github.com/chainpulse/signal-engine/pkg/models"
)

var spamPatternWeights = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`(?i)\bgiveaway\b`), 0.3},
	{regexp.MustCompile(`(?i)\bairdrop\b`), 0.2},
	{regexp.MustCompile(`(?i)\bfree\s+(?:tokens|coins|money)\b`), 0.3},
	{regexp.MustCompile(`(?i)\bclick\s+(?:here|link)\b`), 0.2},
	{regexp.MustCompile(`(?i)\bjoin\s+(?:now|us|today)\b`), 0.1},
	{regexp.MustCompile(`(?i)\blimited\s+time\b`), 0.2},
	{regexp.MustCompile(`(?i)\bverify\s+wallet\b`), 0.4},
	{regexp.MustCompile(`(?i)\bconnect\s+wallet\b`), 0.3},
	{regexp.MustCompile(`(?i)\bdm\s+(?:me|us)\b`), 0.2},
	{regexp.MustCompile(`(?i)\b(?:100|1000)x\s+guaranteed\b`), 0.4},
	{regexp.MustCompile(`(?i)\bpresale\b`), 0.15},
	{regexp.MustCompile(`(?i)\bwhitelist\b`), 0.1},
}

// SpamScore returns the cluster's spam score in [0,1]: a sum of matched
// regex weights over the cluster's combined message text, plus bonuses for
// bot-like repetition and single-source high-volume posting.
func SpamScore(c *models.Cluster) float64 {
	var score float64

	texts := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		texts[i] = m.OriginalText
	}
	combined := strings.ToLower(strings.Join(texts, " "))

	for _, p := range spamPatternWeights {
		if p.re.MatchString(combined) {
			score += p.weight
		}
	}

	if len(texts) > 3 {
		unique := make(map[string]struct{}, len(texts))
		for _, t := range texts {
			unique[t] = struct{}{}
		}
		if float64(len(unique))/float64(len(texts)) < 0.5 {
			score += 0.3
		}
	}

	if len(c.SourceIDs) == 1 && c.Counters.TotalMentions > 10 {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
