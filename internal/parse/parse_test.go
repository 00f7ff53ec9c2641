package parse

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"trade-briefing/internal/types"
)

func fixedParser() *Parser {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC) }
	return New(opts)
}

func TestParseHeuristicEquityLine(t *testing.T) {
	data := fixedParser().Parse("AAPL: entry 150, stop 145, target 160")

	if len(data.Equities) != 1 {
		t.Fatalf("Expected 1 equity setup, got %d", len(data.Equities))
	}
	got := data.Equities[0]
	want := types.TradeSetup{Ticker: "AAPL", Entry: 150, Stop: 145, Target: 160, Bias: types.BiasBullish}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if !data.GeneratedAt.Equal(time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected GeneratedAt %v", data.GeneratedAt)
	}
}

func TestParseEquityBiasFollowsTarget(t *testing.T) {
	data := fixedParser().Parse("TSLA - short below 250, stop 262, target 230")
	if len(data.Equities) != 1 {
		t.Fatalf("Expected 1 equity setup, got %d", len(data.Equities))
	}
	if data.Equities[0].Bias != types.BiasBearish {
		t.Errorf("Expected Bearish, got %s", data.Equities[0].Bias)
	}
}

func TestParseSkipsLinesWithTooFewNumbers(t *testing.T) {
	narrative := strings.Join([]string{
		"NVDA: looking strong above 900",
		"BTC holding up well around 95000",
		"MARKET CONTEXT: risk on",
	}, "\n")
	data := fixedParser().Parse(narrative)
	if !data.Empty() {
		t.Errorf("Expected no setups, got %+v / %+v", data.Equities, data.Crypto)
	}
}

func TestParseEquityAndCryptoEndToEnd(t *testing.T) {
	narrative := "MARKET CONTEXT\nRisk appetite is improving.\n" +
		"AAPL: entry 150, stop 145, target 160\n" +
		"BTC support 93000 resistance 98000 bullish\n"

	data := fixedParser().Parse(narrative)
	if len(data.Equities) != 1 || len(data.Crypto) != 1 {
		t.Fatalf("Expected 1 equity and 1 crypto, got %d and %d", len(data.Equities), len(data.Crypto))
	}
	c := data.Crypto[0]
	if c.Name != "BTC" || c.Support != 93000 || c.Resistance != 98000 || c.Bias != types.BiasBullish {
		t.Errorf("Unexpected crypto setup %+v", c)
	}
	if !strings.HasPrefix(data.MarketContext, "MARKET CONTEXT") {
		t.Errorf("Expected market context excerpt, got %q", data.MarketContext)
	}
}

func TestParseCryptoBiasFallsBackToNarrative(t *testing.T) {
	p := fixedParser()

	data := p.Parse("Overall tone is bearish.\nBTC range 90,000 to 96,500")
	if len(data.Crypto) != 1 {
		t.Fatalf("Expected 1 crypto setup, got %d", len(data.Crypto))
	}
	if data.Crypto[0].Bias != types.BiasBearish {
		t.Errorf("Expected Bearish from narrative, got %s", data.Crypto[0].Bias)
	}
	if data.Crypto[0].Support != 90000 || data.Crypto[0].Resistance != 96500 {
		t.Errorf("Expected thousands separators to parse, got %+v", data.Crypto[0])
	}

	data = p.Parse("Some are bullish, some are bearish.\nBTC range 90000 to 96500")
	if data.Crypto[0].Bias != types.BiasNeutral {
		t.Errorf("Expected Neutral when both keywords appear, got %s", data.Crypto[0].Bias)
	}
}

func TestParseCryptoSymbolsAreNotEquities(t *testing.T) {
	data := fixedParser().Parse("ETH: support 2400 resistance 2600 target 2800")
	if len(data.Equities) != 0 {
		t.Errorf("Expected ETH not to be an equity, got %+v", data.Equities)
	}
	if len(data.Crypto) != 1 || data.Crypto[0].Name != "ETH" {
		t.Errorf("Expected ETH crypto setup, got %+v", data.Crypto)
	}
}

func TestParseStrictTaggedLines(t *testing.T) {
	narrative := strings.Join([]string{
		"EQUITY SETUPS",
		"- **MSFT**: watching 410 area, stop 400, target 440",
		"```",
		"EQUITY|MSFT|412|402|445",
		"equity | amd | 160.5 | 155 | 150",
		"EQUITY|BAD|x|1|2",
		"EQUITY|TOOLONGTICKER|1|2|3",
		"CRYPTO|BTC|93,000|98,000|bearish",
		"CRYPTO|SOL|180|210",
		"```",
	}, "\n")

	data := fixedParser().Parse(narrative)

	if len(data.Equities) != 2 {
		t.Fatalf("Expected 2 equities, got %+v", data.Equities)
	}
	if data.Equities[0] != (types.TradeSetup{Ticker: "MSFT", Entry: 412, Stop: 402, Target: 445, Bias: types.BiasBullish}) {
		t.Errorf("Expected strict MSFT record to win, got %+v", data.Equities[0])
	}
	if data.Equities[1].Ticker != "AMD" || data.Equities[1].Bias != types.BiasBearish {
		t.Errorf("Expected AMD bearish, got %+v", data.Equities[1])
	}
	if len(data.Crypto) != 2 {
		t.Fatalf("Expected 2 crypto setups, got %+v", data.Crypto)
	}
	if data.Crypto[0].Name != "BTC" || data.Crypto[0].Bias != types.BiasBearish || data.Crypto[0].Support != 93000 {
		t.Errorf("Unexpected BTC record %+v", data.Crypto[0])
	}
	if data.Crypto[1].Name != "SOL" || data.Crypto[1].Bias != types.BiasNeutral {
		t.Errorf("Unexpected SOL record %+v", data.Crypto[1])
	}
}

func TestParseDeduplicatesFirstWins(t *testing.T) {
	narrative := "AAPL: 150 145 160\nAAPL: 170 165 180\n"
	data := fixedParser().Parse(narrative)
	if len(data.Equities) != 1 || data.Equities[0].Entry != 150 {
		t.Errorf("Expected first AAPL record only, got %+v", data.Equities)
	}
}

func TestExcerptCutsAtWhitespace(t *testing.T) {
	p := New(Options{ContextLength: 12})
	got := p.Excerpt("alpha beta gamma delta")
	if got != "alpha beta" {
		t.Errorf("Expected %q, got %q", "alpha beta", got)
	}
	if short := p.Excerpt("  short  "); short != "short" {
		t.Errorf("Expected short narrative unchanged, got %q", short)
	}
}

func TestExcerptKeepsPartialLineWithoutSetup(t *testing.T) {
	p := New(Options{ContextLength: 30})
	narrative := "Intro line\nEQUITY | AAPL | 150 | 145 | 160x\n"
	got := p.Excerpt(narrative)
	if got != "Intro line\nEQUITY | AAPL | 150" {
		t.Errorf("Expected partial line kept up to the cut, got %q", got)
	}
}

func TestExcerptTrimsPartialLineThatChangesKind(t *testing.T) {
	words := strings.Repeat("word ", 90)
	narrative := words + "\nMSTR - proxy for BTC, entry 300 stop 280 target 350"
	p := New(Options{ContextLength: len(words) + 1 + len("MSTR - proxy for BTC, entry 300 stop 280"), CryptoSymbols: []string{"BTC", "ETH"}})

	full := p.Parse(narrative)
	if len(full.Equities) != 1 || full.Equities[0].Ticker != "MSTR" || len(full.Crypto) != 0 {
		t.Fatalf("Expected only the MSTR equity, got %+v / %+v", full.Equities, full.Crypto)
	}

	excerpt := full.MarketContext
	if !strings.HasSuffix(excerpt, "entry 300 stop") {
		t.Errorf("Expected the cut line trimmed before its second number, got %q", excerpt[len(excerpt)-30:])
	}
	again := p.Parse(excerpt)
	if len(again.Crypto) != 0 || len(again.Equities) != 0 {
		t.Errorf("Expected no setups from the excerpt, got %+v / %+v", again.Equities, again.Crypto)
	}
}

func TestExcerptWithoutWhitespaceFallsBackToHardCut(t *testing.T) {
	p := New(Options{ContextLength: 500, CryptoSymbols: []string{"BTC"}})
	narrative := strings.Repeat("=", 600) + "\nEQUITY|AAPL|150|145|160\nCRYPTO|BTC|93000|98000|bullish"

	data := p.Parse(narrative)
	if len(data.Equities) != 1 || len(data.Crypto) != 1 {
		t.Fatalf("Expected both setups, got %+v / %+v", data.Equities, data.Crypto)
	}
	if data.MarketContext != strings.Repeat("=", 500) {
		t.Errorf("Expected a 500 rune context, got %d runes", len([]rune(data.MarketContext)))
	}
}

func TestMarketContextReparseIsSubset(t *testing.T) {
	narratives := []string{
		"AAPL: 7 1,234 and more text that keeps going past the excerpt limit",
		"MARKET CONTEXT strong tape.\nAAPL: entry 150, stop 145, target 160\nBTC support 93000 resistance 98000\n" + strings.Repeat("filler ", 100),
		"EQUITY|NVDA|900|880|950\nCRYPTO|ETH|2400|2600|bullish\n" + strings.Repeat("x", 600),
		strings.Repeat("word ", 98) + "TSLA: 250 240 2",
		strings.Repeat("word ", 90) + "\nMSTR - proxy for BTC, entry 300 stop 280 target 350",
		"x \n NVDA: CRYPTO|ETH|1|2|bullish and NVDA: 10 9 12",
	}
	for _, ctxLen := range []int{10, 25, 40, 60, 100, 500} {
		p := New(Options{ContextLength: ctxLen, CryptoSymbols: []string{"BTC", "ETH"}})
		for _, n := range narratives {
			full := keys(p.Parse(n))
			excerpt := keys(p.Parse(p.Parse(n).MarketContext))
			for k := range excerpt {
				if !full[k] {
					t.Errorf("ctx=%d: excerpt yielded %s not present in full parse of %q", ctxLen, k, n)
				}
			}
		}
	}
}

func TestMarketContextReparseIsSubsetGenerated(t *testing.T) {
	tokens := []string{
		"AAPL:", "NVDA -", "MSTR", "BTC", "ETH", "**TSLA**:",
		"CRYPTO|ETH|1|2|bullish", "EQUITY|TSLA|250|240|270", "CRYPTO|BTC|93000",
		"150", "1,234.5", "93000", "$98,000", "7", "entry", "stop", "target",
		"bullish", "bearish", "word", "-", "|", "\n", "\n", "\n",
	}
	rng := rand.New(rand.NewSource(42))
	p := New(Options{ContextLength: 1, CryptoSymbols: []string{"BTC", "ETH"}})

	for i := 0; i < 300; i++ {
		var b strings.Builder
		for j, n := 0, 3+rng.Intn(25); j < n; j++ {
			b.WriteString(tokens[rng.Intn(len(tokens))])
			if rng.Intn(4) > 0 {
				b.WriteByte(' ')
			}
		}
		narrative := b.String()
		full := keys(p.Parse(narrative))

		for ctxLen := 1; ctxLen <= len([]rune(narrative)); ctxLen++ {
			p.opts.ContextLength = ctxLen
			excerpt := p.Excerpt(narrative)
			for k := range keys(p.Parse(excerpt)) {
				if !full[k] {
					t.Fatalf("ctx=%d: excerpt %q yielded %s not present in full parse of %q", ctxLen, excerpt, k, narrative)
				}
			}
		}
	}
}

func keys(d types.BriefingData) map[string]bool {
	out := map[string]bool{}
	for _, e := range d.Equities {
		out["E:"+e.Ticker] = true
	}
	for _, c := range d.Crypto {
		out["C:"+c.Name] = true
	}
	return out
}

func TestBlankCryptoSymbolsFallBackToBTC(t *testing.T) {
	p := New(Options{CryptoSymbols: []string{" ", ""}})
	d := p.Parse("BTC holding 93000 with 98000 overhead, bullish\nnothing else here 1 2 3")
	if len(d.Crypto) != 1 || d.Crypto[0].Name != "BTC" {
		t.Fatalf("Expected one BTC setup, got %+v", d.Crypto)
	}
	if len(d.Equities) != 0 {
		t.Errorf("Expected no equities, got %+v", d.Equities)
	}
}
