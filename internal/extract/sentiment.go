package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/chainpulse/signal-engine/pkg/models"
)

var bullishSignals = map[string]float64{
	"🚀": 0.3, "🔥": 0.25, "💎": 0.2, "🌙": 0.25, "📈": 0.2, "💰": 0.15,
	"🎯": 0.15, "⬆️": 0.15, "✅": 0.1, "💪": 0.1, "🐂": 0.2, "🦍": 0.15,

	"moon": 0.3, "mooning": 0.35, "lfg": 0.3, "let's go": 0.2, "send it": 0.3,
	"ape": 0.25, "aping": 0.3, "buy": 0.15, "buying": 0.15, "bought": 0.15,
	"bullish": 0.3, "pump": 0.2, "pumping": 0.25, "100x": 0.35, "10x": 0.25,
	"gem": 0.2, "alpha": 0.2, "early": 0.15, "potential": 0.1, "undervalued": 0.2,
	"accumulate": 0.2, "accumulating": 0.2, "loading": 0.2, "loaded": 0.15,
	"bags": 0.1, "holding": 0.1, "hodl": 0.15, "diamond hands": 0.2, "strong": 0.1,
	"breakout": 0.2, "breaking out": 0.25, "all time high": 0.2, "ath": 0.15,
	"parabolic": 0.3, "explosive": 0.2, "insane": 0.15, "massive": 0.15, "huge": 0.1,
	"whale": 0.15, "smart money": 0.2, "insider": 0.15, "don't miss": 0.2,
	"dont miss": 0.2, "easy money": 0.2, "free money": 0.2, "guaranteed": 0.15,
	"next": 0.1, "based": 0.15, "chad": 0.1, "fomo": 0.15,
}

var bearishSignals = map[string]float64{
	"📉": 0.25, "💀": 0.3, "🔴": 0.2, "⚠️": 0.2, "🚨": 0.2, "⬇️": 0.15,
	"❌": 0.15, "🐻": 0.2, "😭": 0.1, "💩": 0.2,

	"rug": 0.4, "rugged": 0.45, "rugpull": 0.45, "rug pull": 0.45, "scam": 0.4,
	"scammer": 0.4, "honeypot": 0.45, "honey pot": 0.45, "dump": 0.3,
	"dumping": 0.35, "dumped": 0.3, "sell": 0.15, "selling": 0.15, "sold": 0.15,
	"bearish": 0.3, "dead": 0.3, "dying": 0.25, "rip": 0.25, "over": 0.15,
	"finished": 0.2, "done": 0.15, "avoid": 0.3, "stay away": 0.35,
	"red flag": 0.3, "red flags": 0.3, "warning": 0.25, "careful": 0.15,
	"caution": 0.15, "fake": 0.3, "fraud": 0.35, "dev sold": 0.4,
	"dev dumped": 0.4, "dev wallet": 0.2, "exit scam": 0.45, "ponzi": 0.4,
	"crash": 0.3, "crashing": 0.35, "tanking": 0.3, "plummeting": 0.35,
	"bleeding": 0.25, "rekt": 0.3, "wrecked": 0.25, "loss": 0.2, "lost": 0.15,
	"no liquidity": 0.35, "locked": 0.15, "mint": 0.2, "unlocked": 0.2,
	"jeet": 0.25, "jeets": 0.25, "paper hands": 0.15, "ngmi": 0.2,
	"not gonna make it": 0.2,
}

var neutralSignals = map[string]float64{
	"watching": 0.1, "interesting": 0.1, "new": 0.05, "launched": 0.1,
	"launching": 0.1, "update": 0.05, "news": 0.05, "announcement": 0.05,
	"info": 0.05, "information": 0.05, "analysis": 0.05, "review": 0.05,
	"looking at": 0.1, "checking": 0.05, "monitor": 0.05, "tracking": 0.05,
}

var riskSignals = map[string]float64{
	"gamble": 25, "gambling": 25, "casino": 20, "lottery": 20, "risky": 20,
	"high risk": 25, "degen": 15, "degen play": 20, "yolo": 15, "punt": 15,
	"flip": 10, "quick flip": 15,
	"be careful": 20, "careful": 15, "nfa": 10, "dyor": 10,
	"not financial advice": 10, "proceed with caution": 20, "at your own risk": 25,
	"rug": 40, "rugged": 45, "scam": 40, "honeypot": 45, "dev sold": 40,
	"dev dumped": 40, "no audit": 25, "unaudited": 20, "anonymous": 15,
	"anon dev": 20, "no doxx": 15,
	"no utility": 20, "meme only": 15, "just vibes": 10, "pure speculation": 25,
	"no roadmap": 15, "dead project": 30, "abandoned": 30,
	"already pumped": 20, "late entry": 15, "top is in": 25, "overbought": 15,
	"overextended": 15, "fading": 20,
}

var qualitySignals = map[string]float64{
	"alpha": 15, "conviction": 20, "high conviction": 25, "strong conviction": 25,
	"thesis": 20, "fundamental": 15, "fundamentals": 15, "solid": 10,
	"legitimate": 15, "legit": 10,
	"researched": 15, "due diligence": 20, "dd": 10, "analysis": 10,
	"analyzed": 10, "deep dive": 20, "looked into": 10,
	"doxxed": 15, "doxxed team": 20, "audited": 20, "audit": 15, "verified": 15,
	"kyc": 15, "established": 15, "experienced team": 20,
	"undervalued": 20, "underrated": 15, "hidden gem": 20, "under the radar": 15,
	"early": 15, "ground floor": 20, "asymmetric": 20, "asymmetric bet": 25,
	"risk reward": 15, "good r/r": 20,
	"catalyst": 15, "upcoming": 10, "partnership": 15, "listing": 15,
	"cex listing": 20, "binance": 20, "coinbase": 20,
	"smart money": 20, "whales buying": 20, "institutions": 15, "vc backed": 20,
}

var (
	bullishSignalKeys = sortedSignalKeys(bullishSignals)
	bearishSignalKeys = sortedSignalKeys(bearishSignals)
	neutralSignalKeys = sortedSignalKeys(neutralSignals)
	riskSignalKeys    = sortedSignalKeys(riskSignals)
	qualitySignalKeys = sortedSignalKeys(qualitySignals)
)

func sortedSignalKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	callPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcall\b`),
		regexp.MustCompile(`(?i)\balpha\b`),
		regexp.MustCompile(`(?i)\bgem\b`),
		regexp.MustCompile(`(?i)\bentry\b`),
		regexp.MustCompile(`(?i)\bbuy\s+now\b`),
		regexp.MustCompile(`(?i)\bload\s+up\b`),
		regexp.MustCompile(`(?i)\bape\s+in\b`),
		regexp.MustCompile(`(?i)\bap(?:e|ed|ing)\b`),
	}
	alertPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\balert\b`),
		regexp.MustCompile(`(?i)\bwhale\b`),
		regexp.MustCompile(`(?i)\bsmart\s+money\b`),
		regexp.MustCompile(`(?i)\bvolume\s+spike\b`),
		regexp.MustCompile(`(?i)\bbreaking\b`),
		regexp.MustCompile(`(?i)\burgent\b`),
	}
	spamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bgiveaway\b`),
		regexp.MustCompile(`(?i)\bairdrop\b`),
		regexp.MustCompile(`(?i)\bfree\s+(?:tokens|coins|crypto)\b`),
		regexp.MustCompile(`(?i)\bclick\s+(?:here|link)\b`),
		regexp.MustCompile(`(?i)\bjoin\s+(?:now|us)\b`),
		regexp.MustCompile(`(?i)\blimited\s+time\b`),
		regexp.MustCompile(`(?i)\bverify\s+wallet\b`),
		regexp.MustCompile(`(?i)\bconnect\s+wallet\b`),
		regexp.MustCompile(`(?i)\bdm\s+(?:me|us)\b`),
	}
)

// analyzeSentiment scores a message on sentiment, risk and quality and
// returns the matched signal lists capped per the contract.
func analyzeSentiment(text string) models.SentimentVerdict {
	lower := strings.ToLower(text)

	var bullishScore, bearishScore, neutralScore, riskScore, qualityScore float64
	var matchedSignals, riskFactors, qualityFactors []string

	for _, signal := range bullishSignalKeys {
		if strings.Contains(lower, signal) || strings.Contains(text, signal) {
			bullishScore += bullishSignals[signal]
			matchedSignals = append(matchedSignals, "+"+signal)
		}
	}
	for _, signal := range bearishSignalKeys {
		if strings.Contains(lower, signal) || strings.Contains(text, signal) {
			bearishScore += bearishSignals[signal]
			matchedSignals = append(matchedSignals, "-"+signal)
		}
	}
	for _, signal := range neutralSignalKeys {
		if strings.Contains(lower, signal) {
			neutralScore += neutralSignals[signal]
			matchedSignals = append(matchedSignals, "~"+signal)
		}
	}
	for _, signal := range riskSignalKeys {
		if strings.Contains(lower, signal) {
			riskScore += riskSignals[signal]
			riskFactors = append(riskFactors, signal)
		}
	}
	for _, signal := range qualitySignalKeys {
		if strings.Contains(lower, signal) {
			qualityScore += qualitySignals[signal]
			qualityFactors = append(qualityFactors, signal)
		}
	}

	riskFactors = capStrings(riskFactors, 5)
	qualityFactors = capStrings(qualityFactors, 5)

	total := bullishScore + bearishScore + neutralScore
	if total == 0 {
		return models.SentimentVerdict{
			Polarity:          models.PolarityNeutral,
			Score:             0,
			Confidence:        0.3,
			RiskScore:         minF(riskScore, 100),
			QualityScore:      minF(qualityScore+50, 100),
			MatchedSignals:    nil,
			TopRiskFactors:    riskFactors,
			TopQualityFactors: qualityFactors,
		}
	}

	denom := bullishScore + bearishScore
	if denom < 1 {
		denom = 1
	}
	netScore := (bullishScore - bearishScore) / denom

	var polarity models.Polarity
	switch {
	case netScore > 0.2:
		polarity = models.PolarityBullish
	case netScore < -0.2:
		polarity = models.PolarityBearish
	default:
		polarity = models.PolarityNeutral
	}

	confidence := minF(total/2.0, 1.0)

	finalRisk := minF(riskScore, 100)
	finalQuality := minF(qualityScore+50, 100)
	if finalRisk > 50 {
		finalQuality = finalQuality - (finalRisk-50)*0.5
		if finalQuality < 10 {
			finalQuality = 10
		}
	}

	return models.SentimentVerdict{
		Polarity:          polarity,
		Score:             netScore,
		Confidence:        confidence,
		RiskScore:         finalRisk,
		QualityScore:      finalQuality,
		MatchedSignals:    capStrings(matchedSignals, 10),
		TopRiskFactors:    riskFactors,
		TopQualityFactors: qualityFactors,
	}
}

// classifyMessage applies the four-way classifier in spam→call→alert→
// discussion priority order.
func classifyMessage(text string) (models.Classification, float64) {
	lower := strings.ToLower(text)

	spamMatches := countMatches(spamPatterns, lower)
	if spamMatches >= 2 {
		return models.ClassificationSpam, 0.9
	}

	callMatches := countMatches(callPatterns, lower)
	if callMatches >= 1 {
		return models.ClassificationCall, minF(0.5+float64(callMatches)*0.15, 0.95)
	}

	alertMatches := countMatches(alertPatterns, lower)
	if alertMatches >= 1 {
		return models.ClassificationAlert, minF(0.5+float64(alertMatches)*0.15, 0.95)
	}

	return models.ClassificationDiscussion, 0.5
}

func countMatches(patterns []*regexp.Regexp, lower string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(lower) {
			n++
		}
	}
	return n
}

func capStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
