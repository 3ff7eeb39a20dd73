package models

import "time"

// Classification is the four-way message classification produced by the
// Entity Extractor.
type Classification string

const (
	ClassificationCall       Classification = "call"
	ClassificationAlert      Classification = "alert"
	ClassificationDiscussion Classification = "discussion"
	ClassificationSpam       Classification = "spam"
)

// Polarity is the coarse sentiment bucket of a message or cluster.
type Polarity string

const (
	PolarityBullish Polarity = "bullish"
	PolarityBearish Polarity = "bearish"
	PolarityNeutral Polarity = "neutral"
	PolarityMixed   Polarity = "mixed"
)

// MatchSource records which pattern produced a TokenRef.
type MatchSource string

const (
	MatchSymbol   MatchSource = "symbol"
	MatchPumpLink MatchSource = "pump_link"
	MatchDexLink  MatchSource = "dex_link"
	MatchAddress  MatchSource = "address"
	MatchCAPrefix MatchSource = "ca_prefix"
)

// WalletLabel tags the role a wallet plays in a call, when the surrounding
// text gives it away.
type WalletLabel string

const (
	WalletLabelWhale  WalletLabel = "whale"
	WalletLabelDev    WalletLabel = "dev"
	WalletLabelSniper WalletLabel = "sniper"
	WalletLabelFresh  WalletLabel = "fresh"
	WalletLabelInsider WalletLabel = "insider"
	WalletLabelKOL    WalletLabel = "kol"
)

// RawMessage is an immutable unit of ingest from a chat source.
type RawMessage struct {
	ID         string
	SourceID   string
	SourceName string
	Timestamp  time.Time
	Text       string
	ReplyToID  string
}

// TokenRef is a token mention recognized inside a message.
type TokenRef struct {
	Symbol      string
	Address     string
	Chain       string
	Confidence  float64
	MatchSource MatchSource
}

// WalletRef is a wallet address recognized inside a message.
type WalletRef struct {
	Address string
	Chain   string
	Label   WalletLabel
}

// SentimentVerdict is the output of the sentiment/risk analyzer.
type SentimentVerdict struct {
	Polarity        Polarity
	Score           float64
	Confidence      float64
	RiskScore       float64
	QualityScore    float64
	MatchedSignals  []string
	TopRiskFactors  []string
	TopQualityFactors []string
}

// ProcessedMessage is the Extractor's output: a RawMessage enriched with
// structured facts. Never mutated after creation.
type ProcessedMessage struct {
	ID                      string
	SourceID                string
	SourceName              string
	Timestamp               time.Time
	OriginalText            string
	ContentFingerprint      string
	Tokens                  []TokenRef
	Wallets                 []WalletRef
	PriceMentions           []string
	Sentiment               SentimentVerdict
	Classification          Classification
	ClassificationConfidence float64
}
