package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trade-briefing/internal/archive"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/parse"
	"trade-briefing/internal/preview"
	"trade-briefing/internal/store"
	"trade-briefing/internal/types"
)

const usage = `Usage: briefing <command> [flags]

Commands:
  run     build today's briefing from the configured sources
  serve   serve the latest archived briefing over HTTP
  parse   parse a briefing narrative and print the setups as JSON
  send    send the latest archived briefing to the Telegram chat

Run 'briefing <command> -h' for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "serve":
		err = serveCmd(ctx, os.Args[2:])
	case "parse":
		err = parseCmd(os.Args[2:])
	case "send":
		err = sendCmd(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Printf("Unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		var se *types.StageError
		if errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "❌ Briefing failed at %s: %v\n", se.Stage, err)
		} else {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	mode := fs.String("mode", "", "override mode: DRY_RUN or LIVE")
	_ = fs.Parse(args)

	if err := initializeSystem(); err != nil {
		return err
	}
	defer shutdownSystem(context.Background())

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Mode = strings.ToUpper(*mode)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	p, err := initializePipeline(ctx, cfg, store.EnvSecrets())
	if err != nil {
		return err
	}

	printBanner()
	out, err := p.Run(ctx)
	if out != nil {
		printOutcome(out)
	}
	return err
}

func serveCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	addr := fs.String("addr", "", "listen address (default from config)")
	_ = fs.Parse(args)

	if err := initializeSystem(); err != nil {
		return err
	}
	defer shutdownSystem(context.Background())

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}
	if *addr == "" {
		*addr = cfg.Preview.Addr
	}

	parser := parse.New(parse.Options{
		ContextLength: cfg.Parser.ContextLength,
		CryptoSymbols: cfg.Parser.CryptoSymbols,
	})
	router := preview.NewRouter(preview.NewHandler(archive.New(cfg.Archive.Dir), parser), cfg.Preview.AllowedOrigins)
	return preview.Serve(ctx, *addr, router)
}

// parseCmd needs no config: it reads a narrative from -file, stdin ("-") or
// the archive and prints the structured result.
func parseCmd(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	file := fs.String("file", "", "narrative file, or - for stdin (default: latest archived briefing)")
	dir := fs.String("archive", "briefings", "archive directory used when -file is empty")
	symbols := fs.String("crypto", "BTC,ETH", "comma-separated crypto symbols")
	_ = fs.Parse(args)

	var (
		narrative []byte
		err       error
	)
	switch *file {
	case "":
		var s string
		s, err = archive.New(*dir).LatestNarrative()
		narrative = []byte(s)
	case "-":
		narrative, err = readAll(os.Stdin)
	default:
		narrative, err = os.ReadFile(*file)
	}
	if err != nil {
		return err
	}

	opts := parse.DefaultOptions()
	opts.CryptoSymbols = strings.Split(*symbols, ",")
	data := parse.New(opts).Parse(string(narrative))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// sendCmd re-sends the latest archived narrative, for runs whose chat
// delivery failed.
func sendCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	_ = fs.Parse(args)

	if err := initializeSystem(); err != nil {
		return err
	}
	defer shutdownSystem(context.Background())

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}
	cfg.Telegram.Enabled = true
	notifier := initializeNotifier(ctx, cfg, store.EnvSecrets())
	if notifier == nil {
		return errors.New("telegram is not configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	narrative, err := archive.New(cfg.Archive.Dir).LatestNarrative()
	if err != nil {
		return err
	}
	if err := notifier.SendText(ctx, narrative); err != nil {
		return &types.StageError{Stage: types.StageDeliver, Err: err}
	}
	logger.Info(ctx, "Latest briefing sent")
	return nil
}
