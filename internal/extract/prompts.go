package extract

import (
	"fmt"
	"strings"

	"trade-briefing/internal/types"
)

// tagContract is appended to every synthesis prompt so the parser can read the
// result without guessing.
const tagContract = `Finish with a SETUPS block, one setup per line, in exactly this form:
EQUITY|TICKER|ENTRY|STOP|TARGET
CRYPTO|SYMBOL|SUPPORT|RESISTANCE|BULLISH, BEARISH or NEUTRAL
Use plain numbers only: no $ signs, no "k" suffixes, no ranges. Omit a setup rather than guess a level.`

const priceSanity = `Price sanity rules:
- Captions often drop digits. If a level is far from where the instrument trades (for example BTC quoted at $1,026 when the discussion is about ~$102,600), correct it from context.
- Keep every level on the same scale as the instrument's current price.
- Never invent levels that were not discussed.`

type promptSet struct {
	role    string
	segment string
	merge   string
}

var prompts = map[types.Intent]promptSet{
	types.IntentEquity: {
		role: "You are an equity trading analyst reading a video transcript.",
		segment: `Extract the key trading setups from this transcript excerpt.
For each setup list: ticker, entry level, stop, targets, chart pattern and the speaker's confidence.
Skip small talk and sponsor reads.`,
		merge: `Combine these partial notes into one equity briefing with the headers:
MARKET CONTEXT
EQUITY SETUPS
RISK MANAGEMENT
Merge duplicate tickers, keeping the most specific levels.`,
	},
	types.IntentCrypto: {
		role: "You are a crypto technical analyst reading a video transcript.",
		segment: `Extract crypto setups from this transcript excerpt.
List: BTC, ETH and altcoins discussed, support and resistance levels, chart patterns, candlestick signals, indicators (RSI, MACD, moving averages) and the directional bias.`,
		merge: `Combine these partial notes into one crypto briefing with the headers:
MARKET CONTEXT
CRYPTO SETUPS
KEY LEVELS
State the overall bias for each coin as bullish, bearish or neutral.`,
	},
}

func segmentPrompt(intent types.Intent, seg types.Segment, total int) string {
	p := prompts[intent]
	var b strings.Builder
	b.WriteString(p.role)
	b.WriteString("\n\n")
	b.WriteString(p.segment)
	fmt.Fprintf(&b, "\n\nTranscript part %d of %d:\n", seg.Index+1, total)
	b.WriteString(seg.Text)
	return b.String()
}

func mergePrompt(intent types.Intent, partials []string) string {
	p := prompts[intent]
	var b strings.Builder
	b.WriteString(p.role)
	b.WriteString("\n\n")
	b.WriteString(p.merge)
	b.WriteString("\n\n")
	b.WriteString(priceSanity)
	b.WriteString("\n\n")
	b.WriteString(tagContract)
	b.WriteString("\n\n")
	for i, part := range partials {
		fmt.Fprintf(&b, "--- Notes from part %d ---\n%s\n\n", i+1, strings.TrimSpace(part))
	}
	return strings.TrimRight(b.String(), "\n")
}

const briefingHeaders = `Write the morning briefing with these headers, in this order:
MARKET CONTEXT
EQUITY SETUPS
CRYPTO SETUPS
RISK MANAGEMENT
EXECUTION CHECKLIST
KEY LEVELS`

func briefingPrompt(reports []types.SourceReport) string {
	var b strings.Builder
	b.WriteString("You are a trading desk lead combining analyst notes from several video sources into one briefing.\n\n")
	b.WriteString(briefingHeaders)
	b.WriteString("\n\n")
	b.WriteString(priceSanity)
	b.WriteString("\n\n")
	b.WriteString(tagContract)
	b.WriteString("\n\n")

	for _, r := range reports {
		if !r.OK() {
			reason := "no data"
			if r.Err != nil {
				reason = r.Err.Error()
			}
			fmt.Fprintf(&b, "WARNING: %s (%s) is unavailable today: %s. Note the missing coverage in MARKET CONTEXT.\n\n", r.Name, r.Intent, reason)
			continue
		}
		title := r.Video.Title
		if title == "" {
			title = r.Video.URL
		}
		fmt.Fprintf(&b, "=== %s (%s) | %s ===\n%s\n\n", r.Name, r.Intent, title, strings.TrimSpace(r.Narrative))
	}
	return strings.TrimRight(b.String(), "\n")
}
