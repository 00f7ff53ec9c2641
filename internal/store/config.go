package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trade-briefing/internal/types"
)

const (
	ModeDryRun = "DRY_RUN"
	ModeLive   = "LIVE"
)

// SourceConfig describes one video source the briefing is built from.
type SourceConfig struct {
	Name          string       `yaml:"name"`
	Intent        types.Intent `yaml:"intent"`
	VideoURLs     []string     `yaml:"video_urls"`
	ChannelID     string       `yaml:"channel_id"`
	TitlePatterns []string     `yaml:"title_patterns"`
	ScanLimit     int          `yaml:"scan_limit"`
	// ExpandShorthand rewrites "93k" style prices before extraction.
	ExpandShorthand bool `yaml:"expand_shorthand"`
}

type Config struct {
	Mode    string         `yaml:"mode"`
	Sources []SourceConfig `yaml:"sources"`
	LLM     struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		System      string  `yaml:"system"`
		// Token budgets per request kind.
		SegmentMaxTokens   int `yaml:"segment_max_tokens"`
		SynthesisMaxTokens int `yaml:"synthesis_max_tokens"`
		BriefingMaxTokens  int `yaml:"briefing_max_tokens"`
		TimeoutSeconds     int `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Segmenter struct {
		Budget        int `yaml:"budget"`
		LongThreshold int `yaml:"long_threshold"`
		MaxChunks     int `yaml:"max_chunks"`
	} `yaml:"segmenter"`
	Parser struct {
		ContextLength int      `yaml:"context_length"`
		CryptoSymbols []string `yaml:"crypto_symbols"`
	} `yaml:"parser"`
	Render struct {
		MaxEquities int    `yaml:"max_equities"`
		MaxCrypto   int    `yaml:"max_crypto"`
		Title       string `yaml:"title"`
	} `yaml:"render"`
	Fetch struct {
		YTDLPPath      string `yaml:"ytdlp_path"`
		SubLang        string `yaml:"sub_lang"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		FeedBaseURL    string `yaml:"feed_base_url"`
		// Discovery picks how channel_id sources find videos: FEED or YTDLP.
		Discovery string `yaml:"discovery"`
	} `yaml:"fetch"`
	Cache struct {
		Enabled    bool `yaml:"enabled"`
		TTLMinutes int  `yaml:"ttl_minutes"`
	} `yaml:"cache"`
	Publish struct {
		Enabled bool   `yaml:"enabled"`
		Owner   string `yaml:"owner"`
		Repo    string `yaml:"repo"`
		Branch  string `yaml:"branch"`
		APIBase string `yaml:"api_base"`
	} `yaml:"publish"`
	Telegram struct {
		Enabled   bool `yaml:"enabled"`
		TopSetups int  `yaml:"top_setups"`
	} `yaml:"telegram"`
	Archive struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"archive"`
	Preview struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"preview"`
}

// DryRun reports whether outward-facing delivery should be skipped.
func (c *Config) DryRun() bool {
	return c.Mode != ModeLive
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func (c *Config) Validate() error {
	if c.Mode != ModeDryRun && c.Mode != ModeLive {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Sources) == 0 {
		return errors.New("sources cannot be empty")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name '%s'", s.Name)
		}
		seen[s.Name] = true
		if !s.Intent.Valid() {
			return fmt.Errorf("source '%s': intent must be 'equity' or 'crypto', got '%s'", s.Name, s.Intent)
		}
		if len(s.VideoURLs) == 0 && s.ChannelID == "" {
			return fmt.Errorf("source '%s': needs video_urls or channel_id", s.Name)
		}
	}
	switch c.LLM.Provider {
	case "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("llm.provider must be 'OPENAI', 'CLAUDE', or 'NOOP', got '%s'", c.LLM.Provider)
	}
	if c.Fetch.Discovery != "FEED" && c.Fetch.Discovery != "YTDLP" {
		return fmt.Errorf("fetch.discovery must be 'FEED' or 'YTDLP', got '%s'", c.Fetch.Discovery)
	}
	if c.Segmenter.Budget <= 0 {
		return fmt.Errorf("segmenter.budget must be positive, got %d", c.Segmenter.Budget)
	}
	if c.Segmenter.LongThreshold < c.Segmenter.Budget {
		return fmt.Errorf("segmenter.long_threshold (%d) must be >= budget (%d)", c.Segmenter.LongThreshold, c.Segmenter.Budget)
	}
	if c.Segmenter.MaxChunks <= 0 {
		return fmt.Errorf("segmenter.max_chunks must be positive, got %d", c.Segmenter.MaxChunks)
	}
	if c.Publish.Enabled && (c.Publish.Owner == "" || c.Publish.Repo == "") {
		return errors.New("publish.owner and publish.repo are required when publishing is enabled")
	}
	return nil
}

// applyDefaults fills every zero value with the pipeline's standard setting.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDryRun
	}
	c.Mode = strings.ToUpper(c.Mode)
	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)
	if c.LLM.Provider == "" {
		c.LLM.Provider = "NOOP"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.SegmentMaxTokens == 0 {
		c.LLM.SegmentMaxTokens = 1200
	}
	if c.LLM.SynthesisMaxTokens == 0 {
		c.LLM.SynthesisMaxTokens = 1500
	}
	if c.LLM.BriefingMaxTokens == 0 {
		c.LLM.BriefingMaxTokens = 2500
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 120
	}
	if c.Segmenter.Budget == 0 {
		c.Segmenter.Budget = 8000
	}
	if c.Segmenter.LongThreshold == 0 {
		c.Segmenter.LongThreshold = 30000
	}
	if c.Segmenter.MaxChunks == 0 {
		c.Segmenter.MaxChunks = 4
	}
	if c.Parser.ContextLength == 0 {
		c.Parser.ContextLength = 500
	}
	if len(c.Parser.CryptoSymbols) == 0 {
		c.Parser.CryptoSymbols = []string{"BTC", "ETH"}
	}
	if c.Render.MaxEquities == 0 {
		c.Render.MaxEquities = 5
	}
	if c.Render.MaxCrypto == 0 {
		c.Render.MaxCrypto = 3
	}
	if c.Render.Title == "" {
		c.Render.Title = "Trading Briefing"
	}
	if c.Fetch.YTDLPPath == "" {
		c.Fetch.YTDLPPath = "yt-dlp"
	}
	if c.Fetch.SubLang == "" {
		c.Fetch.SubLang = "en"
	}
	c.Fetch.Discovery = strings.ToUpper(c.Fetch.Discovery)
	if c.Fetch.Discovery == "" {
		c.Fetch.Discovery = "FEED"
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 120
	}
	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = 360
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = "main"
	}
	if c.Publish.APIBase == "" {
		c.Publish.APIBase = "https://api.github.com"
	}
	if c.Telegram.TopSetups == 0 {
		c.Telegram.TopSetups = 3
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "briefings"
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = ":8080"
	}
	for i := range c.Sources {
		c.Sources[i].Intent = types.Intent(strings.ToLower(string(c.Sources[i].Intent)))
		if c.Sources[i].ScanLimit == 0 {
			c.Sources[i].ScanLimit = 10
		}
	}
}

// ParseConfig decodes YAML, applies defaults and validates the result.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}
