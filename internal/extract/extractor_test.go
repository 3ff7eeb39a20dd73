package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpulse/signal-engine/pkg/models"
)

func msg(text string) models.RawMessage {
	return models.RawMessage{
		ID:        "m1",
		SourceID:  "s1",
		SourceName: "source-one",
		Timestamp: time.Now().UTC(),
		Text:      text,
	}
}

func TestExtractDeterminism(t *testing.T) {
	e := New("solana")
	text := "Aped $PEPE hard lfg 🚀"
	a := e.Extract(msg(text))
	b := e.Extract(msg(text))
	assert.Equal(t, a.ContentFingerprint, b.ContentFingerprint)
	assert.Equal(t, a.Classification, b.Classification)
	assert.Equal(t, a.Sentiment.Polarity, b.Sentiment.Polarity)
}

func TestFingerprintNormalization(t *testing.T) {
	assert.Equal(t, Fingerprint("  Hello   WORLD "), Fingerprint("hello world"))
}

func TestSentimentBounds(t *testing.T) {
	e := New("solana")
	samples := []string{
		"gm $FROG looking strong today",
		"this is a rugpull scam honeypot avoid",
		"",
		"just launched, watching closely",
	}
	for _, s := range samples {
		pm := e.Extract(msg(s))
		assert.GreaterOrEqual(t, pm.Sentiment.Score, -1.0)
		assert.LessOrEqual(t, pm.Sentiment.Score, 1.0)
		assert.GreaterOrEqual(t, pm.Sentiment.RiskScore, 0.0)
		assert.LessOrEqual(t, pm.Sentiment.RiskScore, 100.0)
		assert.GreaterOrEqual(t, pm.Sentiment.QualityScore, 0.0)
		assert.LessOrEqual(t, pm.Sentiment.QualityScore, 100.0)
	}
}

// Scenario A from the seed set: symbol + CA address association.
func TestScenarioASymbolAndAddress(t *testing.T) {
	e := New("solana")
	text := "Aped $PEPE hard — CA: 0x6982508145454Ce325dDbE47a25d4ec3d2311933"
	pm := e.Extract(msg(text))

	require.Len(t, pm.Tokens, 1)
	tok := pm.Tokens[0]
	assert.Equal(t, "PEPE", tok.Symbol)
	assert.Equal(t, "0x6982508145454Ce325dDbE47a25d4ec3d2311933", tok.Address)
	assert.Equal(t, "base", tok.Chain)

	assert.Equal(t, models.ClassificationCall, pm.Classification)
	assert.Equal(t, models.PolarityBullish, pm.Sentiment.Polarity)
}

// Scenario B: pump.fun link, no wallet refs, high confidence.
func TestScenarioBPumpLink(t *testing.T) {
	e := New("solana")
	text := "https://pump.fun/coin/7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
	pm := e.Extract(msg(text))

	require.Len(t, pm.Tokens, 1)
	assert.Equal(t, "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", pm.Tokens[0].Address)
	assert.Equal(t, "solana", pm.Tokens[0].Chain)
	assert.GreaterOrEqual(t, pm.Tokens[0].Confidence, 0.9)
	assert.Empty(t, pm.Wallets)
}

// Scenario C: dedup fingerprint equality under whitespace/case variance.
func TestScenarioCDedupFingerprints(t *testing.T) {
	t1 := "gm $FROG looking strong today"
	t2 := "GM  $FROG  looking strong today"
	assert.Equal(t, Fingerprint(t1), Fingerprint(t2))
}

func TestSymbolAssociationProximityRule(t *testing.T) {
	e := New("solana")
	text := "$FOO looks great CA: 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr and another $BAR token later"
	pm := e.Extract(msg(text))
	require.NotEmpty(t, pm.Tokens)
	assert.Equal(t, "FOO", pm.Tokens[0].Symbol)
}

func TestEmptyTextStillProducesMessage(t *testing.T) {
	e := New("solana")
	pm := e.Extract(msg(""))
	assert.Empty(t, pm.Tokens)
	assert.Equal(t, models.ClassificationDiscussion, pm.Classification)
}
