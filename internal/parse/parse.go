// Package parse turns a model-written briefing into structured setups.
//
// Two passes run over every line. The strict pass reads the tagged block the
// prompts ask for:
//
//	EQUITY|AAPL|150|145|160
//	CRYPTO|BTC|93000|98000|bullish
//
// The heuristic pass scans free prose for "TICKER: ... numbers" and crypto
// lines. Results are merged by (kind, symbol) with strict records winning.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"trade-briefing/internal/types"
)

const (
	tagEquity = "EQUITY"
	tagCrypto = "CRYPTO"
)

var (
	equityLinePattern = regexp.MustCompile(`^([A-Z]{2,5})\s*[-:]`)
	tickerPattern     = regexp.MustCompile(`^[A-Z]{2,5}$`)
	numberPattern     = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)
	bullishPattern    = regexp.MustCompile(`(?i)\bbullish\b`)
	bearishPattern    = regexp.MustCompile(`(?i)\bbearish\b`)
)

// Options configures the parser.
type Options struct {
	// ContextLength is the approximate rune length of the market context excerpt.
	ContextLength int
	// CryptoSymbols are the tokens that mark a crypto line. They are never
	// treated as equity tickers.
	CryptoSymbols []string
	// Now stamps GeneratedAt; defaults to time.Now.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{ContextLength: 500, CryptoSymbols: []string{"BTC", "ETH"}}
}

type Parser struct {
	opts          Options
	cryptoSet     map[string]bool
	cryptoPattern *regexp.Regexp
}

func New(opts Options) *Parser {
	if opts.ContextLength <= 0 {
		opts.ContextLength = 500
	}
	if len(opts.CryptoSymbols) == 0 {
		opts.CryptoSymbols = []string{"BTC"}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	set := make(map[string]bool, len(opts.CryptoSymbols))
	quoted := make([]string, 0, len(opts.CryptoSymbols))
	for _, s := range opts.CryptoSymbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || set[s] {
			continue
		}
		set[s] = true
		quoted = append(quoted, regexp.QuoteMeta(s))
	}
	if len(quoted) == 0 {
		set["BTC"] = true
		quoted = append(quoted, "BTC")
	}

	return &Parser{
		opts:          opts,
		cryptoSet:     set,
		cryptoPattern: regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Parse extracts every setup it can find in narrative. Lines that do not carry
// enough numbers are skipped silently; an empty result is not an error.
func (p *Parser) Parse(narrative string) types.BriefingData {
	data := types.BriefingData{
		Equities:      []types.TradeSetup{},
		Crypto:        []types.CryptoSetup{},
		MarketContext: p.Excerpt(narrative),
		GeneratedAt:   p.opts.Now(),
	}

	narrativeBias := keywordBias(narrative)

	var strict, loose []record
	for _, raw := range strings.Split(narrative, "\n") {
		r, ok := p.lineRecord(cleanLine(raw), narrativeBias)
		switch {
		case !ok:
		case r.tagged:
			strict = append(strict, r)
		default:
			loose = append(loose, r)
		}
	}

	seen := make(map[string]bool)
	for _, r := range append(strict, loose...) {
		if seen[r.key()] {
			continue
		}
		seen[r.key()] = true
		if r.equity != nil {
			data.Equities = append(data.Equities, *r.equity)
		} else {
			data.Crypto = append(data.Crypto, *r.crypto)
		}
	}

	return data
}

// record is the setup found on one line. Exactly one of equity or crypto is set.
type record struct {
	tagged bool
	equity *types.TradeSetup
	crypto *types.CryptoSetup
}

func (r record) key() string {
	if r.equity != nil {
		return tagEquity + ":" + r.equity.Ticker
	}
	return tagCrypto + ":" + r.crypto.Name
}

// lineRecord parses one cleaned line. A tagged line that fails the strict
// form is not retried heuristically.
func (p *Parser) lineRecord(line string, narrativeBias types.Bias) (record, bool) {
	switch tagOf(line) {
	case tagEquity:
		s, ok := parseTaggedEquity(line)
		return record{tagged: true, equity: &s}, ok
	case tagCrypto:
		s, ok := p.parseTaggedCrypto(line)
		return record{tagged: true, crypto: &s}, ok
	}
	if line == "" {
		return record{}, false
	}
	if s, ok := p.scanEquity(line); ok {
		return record{equity: &s}, true
	}
	if s, ok := p.scanCrypto(line, narrativeBias); ok {
		return record{crypto: &s}, true
	}
	return record{}, false
}

// Excerpt returns roughly the first ContextLength runes of narrative, cut back
// to a whitespace boundary so no number is split. When the last line is cut
// short it is trimmed word by word until it no longer yields a setup the full
// narrative lacks, so parsing the excerpt never adds records.
func (p *Parser) Excerpt(narrative string) string {
	runes := []rune(strings.TrimSpace(narrative))
	if len(runes) <= p.opts.ContextLength {
		return string(runes)
	}

	cut := p.opts.ContextLength
	if !unicode.IsSpace(runes[cut]) {
		for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
			cut--
		}
		if cut == 0 {
			cut = p.opts.ContextLength
		}
	}
	if runes[cut] == '\n' {
		return strings.TrimSpace(string(runes[:cut]))
	}

	start := cut
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	allowed := p.recordKeys(narrative)
	partial := runes[start:cut]
	for len(partial) > 0 {
		r, ok := p.lineRecord(cleanLine(string(partial)), types.BiasNeutral)
		if !ok || allowed[r.key()] {
			break
		}
		partial = dropLastWord(partial)
	}
	return strings.TrimSpace(string(runes[:start]) + string(partial))
}

// recordKeys lists the kind:symbol of every setup any line of text yields.
func (p *Parser) recordKeys(text string) map[string]bool {
	keys := make(map[string]bool)
	for _, raw := range strings.Split(text, "\n") {
		if r, ok := p.lineRecord(cleanLine(raw), types.BiasNeutral); ok {
			keys[r.key()] = true
		}
	}
	return keys
}

// dropLastWord cuts s back to its last whitespace, or by one rune when it has none.
func dropLastWord(s []rune) []rune {
	end := len(s)
	for end > 0 && unicode.IsSpace(s[end-1]) {
		end--
	}
	i := end
	for i > 0 && !unicode.IsSpace(s[i-1]) {
		i--
	}
	if i == 0 {
		if end == 0 {
			return nil
		}
		return s[:end-1]
	}
	return s[:i]
}

// cleanLine trims whitespace, list bullets and markdown emphasis from the
// start of a line.
func cleanLine(line string) string {
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*•#>` \t")
	line = strings.TrimRight(line, "` \t")
	return line
}

// tagOf returns EQUITY or CRYPTO when line is a tagged record.
func tagOf(line string) string {
	i := strings.IndexByte(line, '|')
	if i < 0 {
		return ""
	}
	switch tag := strings.ToUpper(strings.TrimSpace(line[:i])); tag {
	case tagEquity, tagCrypto:
		return tag
	}
	return ""
}

func splitFields(line string) []string {
	fields := strings.Split(line, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseTaggedEquity(line string) (types.TradeSetup, bool) {
	f := splitFields(line)
	if len(f) != 5 {
		return types.TradeSetup{}, false
	}
	ticker := strings.ToUpper(f[1])
	if !tickerPattern.MatchString(ticker) {
		return types.TradeSetup{}, false
	}
	entry, ok1 := parseNumber(f[2])
	stop, ok2 := parseNumber(f[3])
	target, ok3 := parseNumber(f[4])
	if !ok1 || !ok2 || !ok3 {
		return types.TradeSetup{}, false
	}
	return types.TradeSetup{
		Ticker: ticker,
		Entry:  entry,
		Stop:   stop,
		Target: target,
		Bias:   types.EquityBias(entry, target),
	}, true
}

func (p *Parser) parseTaggedCrypto(line string) (types.CryptoSetup, bool) {
	f := splitFields(line)
	if len(f) != 4 && len(f) != 5 {
		return types.CryptoSetup{}, false
	}
	name := strings.ToUpper(f[1])
	if !tickerPattern.MatchString(name) && !p.cryptoSet[name] {
		return types.CryptoSetup{}, false
	}
	support, ok1 := parseNumber(f[2])
	resistance, ok2 := parseNumber(f[3])
	if !ok1 || !ok2 {
		return types.CryptoSetup{}, false
	}
	bias := types.BiasNeutral
	if len(f) == 5 {
		bias = parseBias(f[4])
	}
	return types.CryptoSetup{Name: name, Support: support, Resistance: resistance, Bias: bias}, true
}

func (p *Parser) scanEquity(line string) (types.TradeSetup, bool) {
	m := equityLinePattern.FindStringSubmatch(line)
	if m == nil || p.cryptoSet[m[1]] {
		return types.TradeSetup{}, false
	}
	nums := numbers(line[len(m[0]):])
	if len(nums) < 3 {
		return types.TradeSetup{}, false
	}
	return types.TradeSetup{
		Ticker: m[1],
		Entry:  nums[0],
		Stop:   nums[1],
		Target: nums[2],
		Bias:   types.EquityBias(nums[0], nums[2]),
	}, true
}

func (p *Parser) scanCrypto(line string, narrativeBias types.Bias) (types.CryptoSetup, bool) {
	m := p.cryptoPattern.FindStringSubmatch(line)
	if m == nil {
		return types.CryptoSetup{}, false
	}
	nums := numbers(line)
	if len(nums) < 2 {
		return types.CryptoSetup{}, false
	}
	bias := keywordBias(line)
	if bias == types.BiasNeutral {
		bias = narrativeBias
	}
	return types.CryptoSetup{Name: m[1], Support: nums[0], Resistance: nums[1], Bias: bias}, true
}

// keywordBias returns the direction named in text when exactly one of
// "bullish" or "bearish" occurs, otherwise Neutral.
func keywordBias(text string) types.Bias {
	bull := bullishPattern.MatchString(text)
	bear := bearishPattern.MatchString(text)
	switch {
	case bull && !bear:
		return types.BiasBullish
	case bear && !bull:
		return types.BiasBearish
	}
	return types.BiasNeutral
}

func parseBias(s string) types.Bias {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "bull", "long":
		return types.BiasBullish
	case "bearish", "bear", "short":
		return types.BiasBearish
	}
	return types.BiasNeutral
}

func numbers(s string) []float64 {
	matches := numberPattern.FindAllString(s, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		if f, ok := parseNumber(m); ok {
			out = append(out, f)
		}
	}
	return out
}

// parseNumber accepts "1,234.5", "$150" and "150".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
