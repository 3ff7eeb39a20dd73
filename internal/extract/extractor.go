package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/chainpulse/signal-engine/pkg/models"
)

const (
	maxOriginalTextLen = 2000
	defaultChain        = "solana"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor composes Patterns and the sentiment/risk analyzer into the
// Entity Extractor contract: pure, total, no I/O.
type Extractor struct {
	defaultChain string
}

// New returns an Extractor using the given default chain when neither the
// text nor an address shape names one.
func New(defaultChainTag string) *Extractor {
	if defaultChainTag == "" {
		defaultChainTag = defaultChain
	}
	return &Extractor{defaultChain: defaultChainTag}
}

// Extract turns a RawMessage into a ProcessedMessage. It never fails; a
// message that yields no tokens still produces a record.
func (e *Extractor) Extract(raw models.RawMessage) models.ProcessedMessage {
	text := raw.Text

	tokens := extractTokens(text, e.defaultChain)
	wallets := extractWallets(text, e.defaultChain)
	wallets = subtractTokenAddresses(wallets, tokens)
	prices := extractPrices(text)

	sentiment := analyzeSentiment(text)
	classification, confidence := classifyMessage(text)

	original := text
	if len(original) > maxOriginalTextLen {
		original = original[:maxOriginalTextLen]
	}

	return models.ProcessedMessage{
		ID:                       raw.ID,
		SourceID:                 raw.SourceID,
		SourceName:               raw.SourceName,
		Timestamp:                raw.Timestamp,
		OriginalText:             original,
		ContentFingerprint:       Fingerprint(text),
		Tokens:                   tokens,
		Wallets:                  wallets,
		PriceMentions:            prices,
		Sentiment:                sentiment,
		Classification:           classification,
		ClassificationConfidence: confidence,
	}
}

// subtractTokenAddresses removes any wallet whose address was also captured
// as a token address in the same message.
func subtractTokenAddresses(wallets []models.WalletRef, tokens []models.TokenRef) []models.WalletRef {
	if len(tokens) == 0 {
		return wallets
	}
	tokenAddrs := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t.Address != "" {
			tokenAddrs[t.Address] = struct{}{}
		}
	}
	out := wallets[:0:0]
	for _, w := range wallets {
		if _, ok := tokenAddrs[w.Address]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Fingerprint normalizes text (case-fold, collapse whitespace, trim) and
// returns its SHA-256 hex digest.
func Fingerprint(text string) string {
	normalized := strings.ToLower(text)
	normalized = whitespaceRun.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
