// Package render produces the mobile dashboard page for a briefing.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/types"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// Options caps how many cards of each kind are shown.
type Options struct {
	Title       string
	MaxEquities int
	MaxCrypto   int
	Location    *time.Location
}

func DefaultOptions() Options {
	return Options{Title: "Trading Briefing", MaxEquities: 5, MaxCrypto: 3}
}

type Renderer struct {
	opts Options
	tmpl *template.Template
}

var _ interfaces.Renderer = (*Renderer)(nil)

func New(opts Options) (*Renderer, error) {
	def := DefaultOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.MaxEquities <= 0 {
		opts.MaxEquities = def.MaxEquities
	}
	if opts.MaxCrypto <= 0 {
		opts.MaxCrypto = def.MaxCrypto
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"price":     formatPrice,
		"biasClass": func(b types.Bias) string { return strings.ToLower(string(b)) },
	}).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	return &Renderer{opts: opts, tmpl: tmpl}, nil
}

type page struct {
	Title     string
	Date      string
	Generated string
	Context   string
	Equities  []types.TradeSetup
	Crypto    []types.CryptoSetup
	Narrative string
}

// Render fills the dashboard template. The narrative is shown verbatim
// (escaped) in a collapsible block so nothing is lost when parsing misses.
func (r *Renderer) Render(data types.BriefingData, narrative string) ([]byte, error) {
	at := data.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.In(r.opts.Location)

	p := page{
		Title:     r.opts.Title,
		Date:      at.Format("Jan 2, 2006"),
		Generated: at.Format("Mon Jan 2, 2006 15:04 MST"),
		Context:   data.MarketContext,
		Equities:  capEquities(data.Equities, r.opts.MaxEquities),
		Crypto:    capCrypto(data.Crypto, r.opts.MaxCrypto),
		Narrative: narrative,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("failed to render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}

func capEquities(s []types.TradeSetup, n int) []types.TradeSetup {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func capCrypto(s []types.CryptoSetup, n int) []types.CryptoSetup {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// formatPrice renders 93000 as "$93,000" and 150.25 as "$150.25".
func formatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimSuffix(s, ".00")
	intPart, frac, _ := strings.Cut(s, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := "$" + b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
