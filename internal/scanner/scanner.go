// Package scanner implements the Contextual Scanner: a batch pass over a
// window of chat history that finds token mentions, gathers the
// conversation around each one, and produces a per-token discussion
// summary backed by market data and an optional LLM oracle.
package scanner

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/chainpulse/signal-engine/pkg/models"
)

// MarketDataOracle looks up live market data for a token address. A
// lookup failure or "not found" both signal the scanner to drop the
// address entirely, per the failure semantics in spec.md §4.6.
type MarketDataOracle interface {
	Lookup(ctx context.Context, address, chain string) (*models.MarketData, error)
}

// SummarizerOracle produces natural-language prose summarizing a set of
// discussion texts about a symbol. A failure falls back to a rule-based
// summary rather than failing the scan.
type SummarizerOracle interface {
	Summarize(ctx context.Context, symbol string, messages []string) (string, error)
}

// Message is one chat message as the scanner consumes it: text, the chat
// it came from, and its timestamp.
type Message struct {
	Text       string
	SourceName string
	Time       time.Time
}

// Scanner holds the (optional) external collaborators; a nil oracle
// degrades gracefully rather than erroring.
type Scanner struct {
	Market     MarketDataOracle
	Summarizer SummarizerOracle

	// ContextWindow is how far before/after a mention to gather
	// conversation context from the same chat. Defaults to 10 minutes.
	ContextWindow time.Duration
}

// New returns a Scanner with the spec default 10-minute context window.
func New(market MarketDataOracle, summarizer SummarizerOracle) *Scanner {
	return &Scanner{Market: market, Summarizer: summarizer, ContextWindow: 10 * time.Minute}
}

var tokenURLPatterns = []struct {
	re    *regexp.Regexp
	chain string
}{
	{regexp.MustCompile(`(?i)pump\.fun/(?:coin/)?([1-9A-HJ-NP-Za-km-z]{32,44})`), "solana"},
	{regexp.MustCompile(`(?i)dexscreener\.com/solana/([1-9A-HJ-NP-Za-km-z]{32,44})`), "solana"},
	{regexp.MustCompile(`(?i)dexscreener\.com/base/(0x[a-fA-F0-9]{40})`), "base"},
	{regexp.MustCompile(`(?i)birdeye\.so/token/([1-9A-HJ-NP-Za-km-z]{32,44})`), "solana"},
	{regexp.MustCompile(`(?i)solscan\.io/token/([1-9A-HJ-NP-Za-km-z]{32,44})`), "solana"},
	{regexp.MustCompile(`(?i)photon-sol\.tinyastro\.io/[^/]+/([1-9A-HJ-NP-Za-km-z]{32,44})`), "solana"},
}

var (
	solanaAddrRe = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)
	evmAddrRe    = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	urlRe        = regexp.MustCompile(`https?://\S+`)

	botLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^CA[:\s]`),
		regexp.MustCompile(`(?i)^Contract[:\s]`),
		regexp.MustCompile(`^\d+\.\d+[KMB]?\s*\|\s*\d+`),
		regexp.MustCompile(`^[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`),
	}
)

// skipAddresses are well-known wrapped-SOL and stablecoin addresses that
// never count as a "discovered" token.
var skipAddresses = map[string]struct{}{
	"So11111111111111111111111111111111111111112": {},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {},
}

// extractAddress returns at most one (address, chain) per message,
// trying platform-link patterns first, then a raw Solana address
// (rejected if it reads like a tx/signature reference), then an EVM
// address.
func extractAddress(text string) (address, chain string, ok bool) {
	for _, p := range tokenURLPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			if _, skip := skipAddresses[m[1]]; skip {
				continue
			}
			return m[1], p.chain, true
		}
	}

	if m := solanaAddrRe.FindString(text); m != "" {
		if _, skip := skipAddresses[m]; !skip {
			lower := strings.ToLower(text)
			if !strings.Contains(lower, "tx:") && !strings.Contains(lower, "transaction:") && !strings.Contains(lower, "sig:") {
				return m, "solana", true
			}
		}
	}

	if m := evmAddrRe.FindString(text); m != "" {
		return m, "ethereum", true
	}

	return "", "", false
}

// isDiscussionMessage filters automated bot posts out of a context
// window so summaries are built from human opinion, not scan noise.
func isDiscussionMessage(text string) bool {
	lower := strings.ToLower(text)

	if len(text) < 50 && (strings.Contains(lower, "pump.fun/") || strings.Contains(lower, "dexscreener.com/") || strings.Contains(lower, "birdeye.so/")) {
		withoutURLs := strings.TrimSpace(urlRe.ReplaceAllString(text, ""))
		if len(withoutURLs) < 20 {
			return false
		}
	}

	for _, p := range botLinePatterns {
		if p.MatchString(text) {
			return false
		}
	}

	return true
}

type mention struct {
	chat  string
	time  time.Time
	chain string
}

// Scan runs the full batch pass: address extraction, market-data
// filtering, contextual-window gathering, and summarization. Market-data
// and summarizer failures are isolated per token and never abort the
// scan. Results are sorted by last_seen descending and capped at limit
// (0 uses the spec default of 50).
func (s *Scanner) Scan(ctx context.Context, messages []Message, limit int) []models.TokenDiscussion {
	if limit <= 0 {
		limit = 50
	}

	mentionsByAddr := make(map[string][]mention)
	msgsByChat := make(map[string][]Message)

	for _, m := range messages {
		msgsByChat[m.SourceName] = append(msgsByChat[m.SourceName], m)
		if m.Text == "" {
			continue
		}
		addr, chain, ok := extractAddress(m.Text)
		if !ok {
			continue
		}
		mentionsByAddr[addr] = append(mentionsByAddr[addr], mention{chat: m.SourceName, time: m.Time, chain: chain})
	}

	for chat := range msgsByChat {
		msgs := msgsByChat[chat]
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].Time.Before(msgs[j].Time) })
		msgsByChat[chat] = msgs
	}

	tokens := make([]models.TokenDiscussion, 0, len(mentionsByAddr))

	for addr, mentions := range mentionsByAddr {
		market, err := s.lookupMarket(ctx, addr, mentions[0].chain)
		if err != nil || market == nil || market.Symbol == "" {
			continue
		}

		td := models.TokenDiscussion{
			Address:      addr,
			Chain:        market.Chain,
			Market:       market,
			MentionCount: len(mentions),
			Chats:        make(map[string]struct{}),
		}
		if td.Chain == "" {
			td.Chain = mentions[0].chain
		}

		seenContexts := make(map[string]struct{})
		var allDiscussionTexts []string

		for _, men := range mentions {
			td.Chats[men.chat] = struct{}{}
			if td.FirstSeen.IsZero() || men.time.Before(td.FirstSeen) {
				td.FirstSeen = men.time
			}
			if men.time.After(td.LastSeen) {
				td.LastSeen = men.time
			}

			key := men.chat + ":" + men.time.Truncate(time.Minute).Format(time.RFC3339)
			if _, dup := seenContexts[key]; dup {
				continue
			}
			seenContexts[key] = struct{}{}

			ctxMsgs := contextMessages(msgsByChat[men.chat], men.time, s.windowOrDefault())
			if len(ctxMsgs) == 0 {
				continue
			}

			texts := make([]string, 0, len(ctxMsgs))
			for _, cm := range ctxMsgs {
				texts = append(texts, cm.Text)
				if isDiscussionMessage(cm.Text) {
					allDiscussionTexts = append(allDiscussionTexts, cm.Text)
				}
			}
			td.Windows = append(td.Windows, models.DiscussionWindow{Chat: men.chat, Time: men.time, Messages: texts})
		}

		s.summarize(ctx, &td, allDiscussionTexts)
		tokens = append(tokens, td)
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].LastSeen.After(tokens[j].LastSeen) })
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens
}

func (s *Scanner) windowOrDefault() time.Duration {
	if s.ContextWindow > 0 {
		return s.ContextWindow
	}
	return 10 * time.Minute
}

func (s *Scanner) lookupMarket(ctx context.Context, address, chain string) (*models.MarketData, error) {
	if s.Market == nil {
		return nil, nil
	}
	return s.Market.Lookup(ctx, address, chain)
}

// contextMessages returns every message from the same chat within window
// of target, sorted ascending by time (msgs is assumed pre-sorted).
func contextMessages(msgs []Message, target time.Time, window time.Duration) []Message {
	var out []Message
	for _, m := range msgs {
		d := m.Time.Sub(target)
		if d < 0 {
			d = -d
		}
		if d <= window {
			out = append(out, m)
		}
	}
	return out
}

var (
	markdownBoldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	markdownItalicRe = regexp.MustCompile(`\*([^*]+)\*`)
	markdownHeaderRe = regexp.MustCompile(`(?m)^#+\s*`)
	markdownNumRe    = regexp.MustCompile(`(?m)^\d+\.\s*`)
	markdownBulletRe = regexp.MustCompile(`(?m)^[-•]\s*`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
)

func stripMarkdown(s string) string {
	s = markdownBoldRe.ReplaceAllString(s, "$1")
	s = markdownItalicRe.ReplaceAllString(s, "$1")
	s = markdownHeaderRe.ReplaceAllString(s, "")
	s = markdownNumRe.ReplaceAllString(s, "")
	s = markdownBulletRe.ReplaceAllString(s, "")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func derivePolarity(summary string) models.Polarity {
	lower := strings.ToLower(summary)
	switch {
	case strings.Contains(lower, "bullish") || strings.Contains(lower, "optimistic") || strings.Contains(lower, "positive"):
		return models.PolarityBullish
	case strings.Contains(lower, "bearish") || strings.Contains(lower, "cautious") || strings.Contains(lower, "warning") || strings.Contains(lower, "scam"):
		return models.PolarityBearish
	case strings.Contains(lower, "mixed"):
		return models.PolarityMixed
	default:
		return models.PolarityNeutral
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// summarize fills in td.Summary and td.Sentiment, preferring the LLM
// oracle and falling back to a rule-based one-liner on any failure or
// when no oracle is configured.
func (s *Scanner) summarize(ctx context.Context, td *models.TokenDiscussion, discussionTexts []string) {
	if s.Summarizer == nil {
		td.Summary = defaultMentionSummary(td)
		td.Sentiment = models.PolarityNeutral
		return
	}

	if len(discussionTexts) == 0 {
		td.Summary = fmt.Sprintf("token shared %d times but no detailed discussion found", td.MentionCount)
		td.Sentiment = models.PolarityNeutral
		return
	}

	sample := discussionTexts
	if len(sample) > 15 {
		sample = sample[:15]
	}

	raw, err := s.Summarizer.Summarize(ctx, td.Market.Symbol, sample)
	if err != nil || raw == "" {
		td.Summary = fmt.Sprintf("discussed in %d chats with %d messages", len(td.Chats), len(discussionTexts))
		td.Sentiment = models.PolarityNeutral
		return
	}

	td.Sentiment = derivePolarity(raw)
	td.Summary = truncate(stripMarkdown(raw), 500)
}

func defaultMentionSummary(td *models.TokenDiscussion) string {
	return fmt.Sprintf("mentioned %d times across %d chats", td.MentionCount, len(td.Chats))
}
