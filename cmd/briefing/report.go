package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"trade-briefing/internal/types"
)

func printBanner() {
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  Daily Trading Briefing                      ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
}

func printOutcome(out *types.Outcome) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("Mode: %s   Started: %s\n", out.Mode, out.StartedAt.Format("2006-01-02 15:04 MST"))
	fmt.Println("───────────────────────────────────────────────────────────────")

	for _, s := range out.Sources {
		if s.OK() {
			title := s.Video.Title
			if title == "" {
				title = s.Video.URL
			}
			fmt.Printf("✅ %-20s %s (%d segments)\n", s.Name, title, s.Segments)
		} else {
			fmt.Printf("⚠️  %-20s %s\n", s.Name, s.Error)
		}
	}

	if out.Narrative == "" {
		fmt.Println("═══════════════════════════════════════════════════════════════")
		return
	}

	fmt.Println("───────────────────────────────────────────────────────────────")
	if out.Briefing.Empty() {
		fmt.Println("No setups found.")
	}
	for _, eq := range out.Briefing.Equities {
		fmt.Printf("📈 %-6s %-8s E:%-10g S:%-10g T:%g\n", eq.Ticker, eq.Bias, eq.Entry, eq.Stop, eq.Target)
	}
	for _, c := range out.Briefing.Crypto {
		fmt.Printf("🪙 %-6s %-8s S:%-10g R:%g\n", c.Name, c.Bias, c.Support, c.Resistance)
	}

	fmt.Println("───────────────────────────────────────────────────────────────")
	if out.LocalPath != "" {
		fmt.Println("📄 Dashboard saved:", out.LocalPath)
	}
	if out.DashboardURL != "" {
		fmt.Println("🔗 Dashboard published:", out.DashboardURL)
	}
	if out.Delivered {
		fmt.Println("📱 Sent to Telegram")
	}
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

func readAll(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		fmt.Fprintln(os.Stderr, "warning: empty input")
	}
	return b, nil
}
