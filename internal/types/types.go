package types

import "time"

// Bias is the directional call attached to a setup.
type Bias string

const (
	BiasBullish Bias = "Bullish"
	BiasBearish Bias = "Bearish"
	BiasNeutral Bias = "Neutral"
)

// Intent selects the prompt family used for a source.
type Intent string

const (
	IntentEquity Intent = "equity"
	IntentCrypto Intent = "crypto"
)

// Valid reports whether the intent is one the extractor has templates for.
func (i Intent) Valid() bool {
	return i == IntentEquity || i == IntentCrypto
}

// Segment is a contiguous slice of a transcript, offsets counted in runes.
type Segment struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

type TradeSetup struct {
	Ticker string  `json:"ticker"`
	Entry  float64 `json:"entry"`
	Stop   float64 `json:"stop"`
	Target float64 `json:"target"`
	Bias   Bias    `json:"bias"`
}

// EquityBias derives the direction of an equity setup from its levels.
func EquityBias(entry, target float64) Bias {
	if target > entry {
		return BiasBullish
	}
	return BiasBearish
}

type CryptoSetup struct {
	Name       string  `json:"name"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	Bias       Bias    `json:"bias"`
}

// BriefingData is the structured result of one run.
type BriefingData struct {
	Equities      []TradeSetup  `json:"equities"`
	Crypto        []CryptoSetup `json:"crypto"`
	MarketContext string        `json:"market_context"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// Empty reports whether no setups of either kind were found.
func (b BriefingData) Empty() bool {
	return len(b.Equities) == 0 && len(b.Crypto) == 0
}

// VideoInfo is the metadata reported for a single video.
type VideoInfo struct {
	URL        string `json:"url"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	UploadDate string `json:"upload_date"`
	Duration   int    `json:"duration"`
	Uploader   string `json:"uploader"`
}

// SourceReport records what a single configured source contributed to a run.
type SourceReport struct {
	Name      string    `json:"name"`
	Intent    Intent    `json:"intent"`
	Video     VideoInfo `json:"video"`
	Segments  int       `json:"segments"`
	Narrative string    `json:"narrative,omitempty"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the source produced a usable narrative.
func (r SourceReport) OK() bool {
	return r.Err == nil && r.Narrative != ""
}

// Outcome is everything a run produced.
type Outcome struct {
	Mode         string         `json:"mode"`
	StartedAt    time.Time      `json:"started_at"`
	Sources      []SourceReport `json:"sources"`
	Narrative    string         `json:"-"`
	Briefing     BriefingData   `json:"briefing"`
	DashboardURL string         `json:"dashboard_url,omitempty"`
	LocalPath    string         `json:"local_path,omitempty"`
	Delivered    bool           `json:"delivered"`
}
