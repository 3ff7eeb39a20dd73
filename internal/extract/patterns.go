// Package extract turns raw chat text into structured token, wallet, price
// and sentiment facts. Every function here is pure: no I/O, no shared state,
// safe to call concurrently from many workers against pre-compiled regexes.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"github.com/chainpulse/signal-engine/pkg/models"
)

var (
	symbolPattern  = regexp.MustCompile(`(?i)\$([A-Za-z]{2,10})\b`)
	caPrefixPattern = regexp.MustCompile(`(?i)(?:CA|Contract|Address)[\s:]+([A-Za-z0-9]{32,44})\b`)
	pumpAddressPattern = regexp.MustCompile(`\b([1-9A-HJ-NP-Za-km-z]{32,44})pump\b`)
	pumpLinkPattern    = regexp.MustCompile(`(?i)pump\.fun/(?:coin/)?([A-Za-z0-9]+)`)
	dexscreenerPattern = regexp.MustCompile(`(?i)dexscreener\.com/(\w+)/([A-Za-z0-9]+)`)
	birdeyePattern     = regexp.MustCompile(`(?i)birdeye\.so/token/([A-Za-z0-9]+)`)
	jupiterPattern     = regexp.MustCompile(`(?i)jup\.ag/swap/\w+-([A-Za-z0-9]+)`)
	photonPattern      = regexp.MustCompile(`(?i)photon-sol\.tinyastro\.io/\w+/([A-Za-z0-9]+)`)

	solanaAddrPattern = regexp.MustCompile(`\b([1-9A-HJ-NP-Za-km-z]{32,44})\b`)
	evmAddrPattern    = regexp.MustCompile(`\b(0x[a-fA-F0-9]{40})\b`)

	usdPricePattern  = regexp.MustCompile(`(?i)\$?([\d,]+\.?\d*)\s*(?:USD|USDT|USDC)?\b`)
	solPricePattern  = regexp.MustCompile(`(?i)([\d,]+\.?\d*)\s*SOL\b`)
	ethPricePattern  = regexp.MustCompile(`(?i)([\d,]+\.?\d*)\s*ETH\b`)
	bnbPricePattern  = regexp.MustCompile(`(?i)([\d,]+\.?\d*)\s*BNB\b`)
	multiplierPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[xX]\b`)
	mcapPattern       = regexp.MustCompile(`(?i)(?:MC|mcap|market\s*cap)[\s:]*\$?([\d,]+\.?\d*)\s*([KMB])?`)

	whalePatterns = []struct {
		re    *regexp.Regexp
		label models.WalletLabel
	}{
		{regexp.MustCompile(`(?i)\bwhale\b`), models.WalletLabelWhale},
		{regexp.MustCompile(`(?i)\bdev\s*wallet\b`), models.WalletLabelDev},
		{regexp.MustCompile(`(?i)\bsniper\b`), models.WalletLabelSniper},
		{regexp.MustCompile(`(?i)\bfresh\s*wallet\b`), models.WalletLabelFresh},
		{regexp.MustCompile(`(?i)\binsider\b`), models.WalletLabelInsider},
		{regexp.MustCompile(`(?i)\bkol\b`), models.WalletLabelKOL},
	}

	chainKeywords = []struct {
		chain    string
		keywords []string
	}{
		{"solana", []string{"solana", "sol", "pump.fun", "raydium", "jupiter", "photon"}},
		{"base", []string{"base", "aerodrome", "basechain"}},
		{"bsc", []string{"bsc", "bnb", "binance", "pancakeswap"}},
		{"ethereum", []string{"eth", "ethereum", "uniswap", "mainnet"}},
	}

	// wrapped-SOL and USDC, skipped everywhere a discovered address is
	// checked against known non-token addresses.
	skipAddresses = map[string]struct{}{
		"So11111111111111111111111111111111111111112": {},
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {},
	}
)

// isValidSolanaAddress checks the base58/length shape and, where possible,
// that it decodes to a 32-byte public key.
func isValidSolanaAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	if !isBase58(address) {
		return false
	}
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return false
	}
	return true
}

func isValidEVMAddress(address string) bool {
	return common.IsHexAddress(address)
}

var base58Chars = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func isBase58(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(base58Chars, r) {
			return false
		}
	}
	return true
}

// detectChainFromAddress returns "evm", "solana" or "unknown" purely from
// address shape.
func detectChainFromAddress(address string) string {
	if strings.HasPrefix(address, "0x") && len(address) == 42 {
		return "evm"
	}
	if len(address) >= 32 && len(address) <= 44 && isBase58(address) {
		return "solana"
	}
	return "unknown"
}

// detectChainFromContext scans text for chain keywords, returning "" if
// none match.
func detectChainFromContext(text string) string {
	lower := strings.ToLower(text)
	for _, ck := range chainKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				return ck.chain
			}
		}
	}
	return ""
}

// extractTokens returns the token addresses found in text: CA:/Contract:/
// Address:-prefixed addresses, pump-suffixed addresses and the supported
// link forms. Only prefixed addresses are associated with a $SYMBOL (the
// nearest unused one within a 100-character window); a $SYMBOL with no
// address is not returned as a token.
func extractTokens(text, defaultChain string) []models.TokenRef {
	var tokens []models.TokenRef
	seenAddresses := make(map[string]struct{})

	detectedChain := detectChainFromContext(text)
	if detectedChain == "" {
		detectedChain = defaultChain
	}

	type symPos struct {
		symbol string
		pos    int
	}
	symbolPositions := make(map[string]int)
	for _, m := range symbolPattern.FindAllStringSubmatchIndex(text, -1) {
		symbol := strings.ToUpper(text[m[2]:m[3]])
		if _, ok := symbolPositions[symbol]; !ok {
			symbolPositions[symbol] = m[0]
		}
	}

	findNearbySymbol := func(addressPos int) string {
		const maxDistance = 100
		closestSymbol := ""
		closestDistance := maxDistance + 1
		for symbol, pos := range symbolPositions {
			d := pos - addressPos
			if d < 0 {
				d = -d
			}
			if d < closestDistance {
				closestDistance = d
				closestSymbol = symbol
			}
		}
		if closestDistance <= maxDistance {
			return closestSymbol
		}
		return ""
	}

	// CA:/Contract:/Address: prefixed addresses, symbol-associated.
	for _, m := range caPrefixPattern.FindAllStringSubmatchIndex(text, -1) {
		address := text[m[2]:m[3]]
		if _, ok := seenAddresses[address]; ok {
			continue
		}
		seenAddresses[address] = struct{}{}

		chain := detectChainFromAddress(address)
		switch chain {
		case "evm":
			if detectedChain == "base" || detectedChain == "bsc" || detectedChain == "ethereum" {
				chain = detectedChain
			} else {
				chain = "base"
			}
		case "solana":
			// keep
		default:
			chain = detectedChain
			if chain == "" {
				chain = defaultChain
			}
		}

		nearby := findNearbySymbol(m[0])
		tokens = append(tokens, models.TokenRef{
			Symbol:      nearby,
			Address:     address,
			Chain:       chain,
			Confidence:  0.95,
			MatchSource: models.MatchCAPrefix,
		})
		if nearby != "" {
			delete(symbolPositions, nearby)
		}
	}

	// Bare pump.fun-suffixed addresses.
	for _, m := range pumpAddressPattern.FindAllStringSubmatch(text, -1) {
		address := m[1]
		if _, ok := seenAddresses[address]; ok {
			continue
		}
		seenAddresses[address] = struct{}{}
		tokens = append(tokens, models.TokenRef{
			Address:     address,
			Chain:       "solana",
			Confidence:  0.9,
			MatchSource: models.MatchAddress,
		})
	}

	// pump.fun links.
	for _, m := range pumpLinkPattern.FindAllStringSubmatch(text, -1) {
		address := m[1]
		if len(address) <= 10 {
			continue
		}
		if _, ok := seenAddresses[address]; ok {
			continue
		}
		seenAddresses[address] = struct{}{}
		tokens = append(tokens, models.TokenRef{
			Address:     address,
			Chain:       "solana",
			Confidence:  0.95,
			MatchSource: models.MatchPumpLink,
		})
	}

	// dexscreener links carry their own chain segment.
	for _, m := range dexscreenerPattern.FindAllStringSubmatch(text, -1) {
		chain := strings.ToLower(m[1])
		address := m[2]
		if _, ok := seenAddresses[address]; ok {
			continue
		}
		seenAddresses[address] = struct{}{}
		mapped := chain
		switch chain {
		case "solana", "base", "bsc", "ethereum":
		default:
			mapped = detectedChain
			if mapped == "" {
				mapped = defaultChain
			}
		}
		tokens = append(tokens, models.TokenRef{
			Address:     address,
			Chain:       mapped,
			Confidence:  0.95,
			MatchSource: models.MatchDexLink,
		})
	}

	// birdeye/jupiter/photon are all solana-only link forms.
	for _, re := range []*regexp.Regexp{birdeyePattern, jupiterPattern, photonPattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			address := m[1]
			if _, ok := seenAddresses[address]; ok {
				continue
			}
			seenAddresses[address] = struct{}{}
			tokens = append(tokens, models.TokenRef{
				Address:     address,
				Chain:       "solana",
				Confidence:  0.95,
				MatchSource: models.MatchDexLink,
			})
		}
	}

	return tokens
}

// hasTxCue reports whether the text around a position reads like a
// transaction/signature reference rather than a token address.
func hasTxCue(text string, start, end int) bool {
	lo := start - 15
	if lo < 0 {
		lo = 0
	}
	hi := end + 15
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, cue := range []string{"tx:", "txn", "signature", "hash:"} {
		if strings.Contains(window, cue) {
			return true
		}
	}
	return false
}

// extractWallets finds wallet addresses, tagging every wallet found in the
// message with the first whale-style label the message contains.
func extractWallets(text, defaultChain string) []models.WalletRef {
	var wallets []models.WalletRef
	seen := make(map[string]struct{})

	lower := strings.ToLower(text)
	var label models.WalletLabel
	for _, wp := range whalePatterns {
		if wp.re.MatchString(lower) {
			label = wp.label
			break
		}
	}

	detectedChain := detectChainFromContext(text)
	if detectedChain == "" {
		detectedChain = defaultChain
	}

	if detectedChain == "solana" {
		for _, m := range solanaAddrPattern.FindAllStringSubmatchIndex(text, -1) {
			address := text[m[2]:m[3]]
			if _, ok := seen[address]; ok {
				continue
			}
			lo := m[0] - 10
			if lo < 0 {
				lo = 0
			}
			hi := m[1] + 10
			if hi > len(text) {
				hi = len(text)
			}
			if strings.Contains(strings.ToLower(text[lo:hi]), "pump") {
				continue
			}
			seen[address] = struct{}{}
			wallets = append(wallets, models.WalletRef{Address: address, Chain: "solana", Label: label})
		}
	}

	for _, m := range evmAddrPattern.FindAllStringSubmatch(text, -1) {
		address := m[1]
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		chain := detectedChain
		if chain != "base" && chain != "bsc" && chain != "ethereum" {
			chain = "base"
		}
		wallets = append(wallets, models.WalletRef{Address: address, Chain: chain, Label: label})
	}

	return wallets
}

// extractPrices pulls every recognizable price/multiplier/market-cap
// literal out of text.
func extractPrices(text string) []string {
	var out []string
	add := func(re *regexp.Regexp, unit string, scaleSuffix bool) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(m[1], ",", "")
			val, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			if scaleSuffix && len(m) > 2 {
				switch strings.ToUpper(m[2]) {
				case "K":
					val *= 1_000
				case "M":
					val *= 1_000_000
				case "B":
					val *= 1_000_000_000
				}
			}
			out = append(out, strconv.FormatFloat(val, 'f', -1, 64)+unit)
		}
	}
	add(usdPricePattern, "USD", false)
	add(solPricePattern, "SOL", false)
	add(ethPricePattern, "ETH", false)
	add(bnbPricePattern, "BNB", false)
	add(multiplierPattern, "x", false)
	add(mcapPattern, "MCAP", true)
	return out
}

// extractWithContext returns the text surrounding an address occurrence,
// ±100 characters.
func extractWithContext(text, address string) string {
	idx := strings.Index(text, address)
	if idx == -1 {
		return ""
	}
	start := idx - 100
	if start < 0 {
		start = 0
	}
	end := idx + len(address) + 100
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}
