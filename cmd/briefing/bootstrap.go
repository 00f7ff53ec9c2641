package main

import (
	"context"
	"fmt"
	"os"
	"time"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"
	openaiopt "github.com/openai/openai-go/option"

	"trade-briefing/internal/archive"
	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/llm/claude"
	"trade-briefing/internal/llm/llmobs"
	"trade-briefing/internal/llm/noop"
	"trade-briefing/internal/llm/openai"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/notify"
	"trade-briefing/internal/pipeline"
	"trade-briefing/internal/publish"
	"trade-briefing/internal/render"
	"trade-briefing/internal/source"
	"trade-briefing/internal/store"
	"trade-briefing/internal/trace"
)

// initializeSystem loads .env and sets up logging and tracing
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush traces: %v\n", err)
	}
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeCompleter picks the model provider and wraps it with observability
func initializeCompleter(ctx context.Context, cfg *store.Config, secrets store.Secrets) (interfaces.Completer, error) {
	var completer interfaces.Completer

	switch cfg.LLM.Provider {
	case "OPENAI":
		key, err := secrets.OpenAIKey()
		if err != nil {
			return nil, err
		}
		completer = openai.NewOpenAICompleter(cfg, key, openaiopt.WithRequestTimeout(cfg.LLMTimeout()))
	case "CLAUDE":
		key, err := secrets.ClaudeKey()
		if err != nil {
			return nil, err
		}
		completer = claude.NewClaudeCompleter(cfg, key, os.Getenv("CLAUDE_ENDPOINT"), anthropicopt.WithRequestTimeout(cfg.LLMTimeout()))
	default:
		completer = noop.NewNoopCompleter()
		logger.Warn(ctx, "No LLM provider configured - using Noop completer (no setups)")
	}

	return llmobs.Wrap(completer, cfg.LLM.Provider), nil
}

// initializeSource builds the yt-dlp source, optionally behind the Redis cache,
// and the discoverer used for channel sources.
func initializeSource(ctx context.Context, cfg *store.Config, secrets store.Secrets) (interfaces.TranscriptSource, interfaces.VideoDiscoverer) {
	ytdlp := source.NewYTDLP(cfg.Fetch.YTDLPPath,
		source.WithSubLang(cfg.Fetch.SubLang),
		source.WithTimeout(cfg.FetchTimeout()),
	)

	var discoverer interfaces.VideoDiscoverer = source.NewFeedDiscoverer(cfg.Fetch.FeedBaseURL, cfg.FetchTimeout())
	if cfg.Fetch.Discovery == "YTDLP" {
		discoverer = ytdlp
	}

	if !cfg.Cache.Enabled {
		return ytdlp, discoverer
	}
	redisURL := secrets.RedisURL()
	if redisURL == "" {
		logger.Warn(ctx, "Caption cache enabled but REDIS_URL is not set - fetching directly")
		return ytdlp, discoverer
	}
	client, err := source.NewRedisClient(redisURL)
	if err != nil {
		logger.Warn(ctx, "Invalid REDIS_URL - fetching directly", "error", err)
		return ytdlp, discoverer
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn(ctx, "Redis unreachable - cache will fall through", "error", err)
	}
	logger.Info(ctx, "Caption cache enabled", "ttl", cfg.CacheTTL())
	return source.NewCachedSource(ytdlp, client, cfg.CacheTTL()), discoverer
}

// initializePublisher returns nil when publishing is off or no token is set
func initializePublisher(ctx context.Context, cfg *store.Config, secrets store.Secrets) interfaces.Publisher {
	if !cfg.Publish.Enabled {
		return nil
	}
	token, err := secrets.GitHubToken()
	if err != nil {
		logger.Warn(ctx, "Publishing enabled but no token - dashboard stays local", "error", err)
		return nil
	}
	return publish.NewGitHubPages(cfg.Publish.APIBase, cfg.Publish.Owner, cfg.Publish.Repo, cfg.Publish.Branch, token)
}

// initializeNotifier returns nil when chat delivery is off or misconfigured
func initializeNotifier(ctx context.Context, cfg *store.Config, secrets store.Secrets) interfaces.Notifier {
	if !cfg.Telegram.Enabled {
		return nil
	}
	token, err := secrets.TelegramToken()
	if err != nil {
		logger.Warn(ctx, "Telegram enabled but not configured", "error", err)
		return nil
	}
	chatID, err := secrets.TelegramChatID()
	if err != nil {
		logger.Warn(ctx, "Telegram enabled but not configured", "error", err)
		return nil
	}
	tg, err := notify.NewTelegram(token, chatID, cfg.Telegram.TopSetups)
	if err != nil {
		logger.Warn(ctx, "Failed to create Telegram client", "error", err)
		return nil
	}
	return tg
}

// initializePipeline wires every collaborator a run needs
func initializePipeline(ctx context.Context, cfg *store.Config, secrets store.Secrets) (*pipeline.Pipeline, error) {
	completer, err := initializeCompleter(ctx, cfg, secrets)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(render.Options{
		Title:       cfg.Render.Title,
		MaxEquities: cfg.Render.MaxEquities,
		MaxCrypto:   cfg.Render.MaxCrypto,
	})
	if err != nil {
		return nil, err
	}

	src, discoverer := initializeSource(ctx, cfg, secrets)

	if cfg.DryRun() {
		logger.Warn(ctx, "Running in DRY_RUN mode - nothing will be published or sent")
	}

	return pipeline.New(cfg, pipeline.Deps{
		Source:     src,
		Discoverer: discoverer,
		LLM:        completer,
		Renderer:   renderer,
		Publisher:  initializePublisher(ctx, cfg, secrets),
		Notifier:   initializeNotifier(ctx, cfg, secrets),
		Archive:    archive.New(cfg.Archive.Dir),
	})
}
