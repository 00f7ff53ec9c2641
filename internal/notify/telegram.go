// Package notify delivers briefings to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/types"
)

// MaxMessageRunes stays under Telegram's 4096 character limit.
const MaxMessageRunes = 4000

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type Telegram struct {
	sender    messageSender
	chat      *tele.Chat
	topSetups int
	// limiter paces messages to one chat; Telegram throttles bursts.
	limiter *rate.Limiter
	now     func() time.Time
}

var _ interfaces.Notifier = (*Telegram)(nil)

// NewTelegram builds an offline bot: it only sends, it never polls for updates.
func NewTelegram(token string, chatID int64, topSetups int) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegram(b, chatID, topSetups), nil
}

func newTelegram(sender messageSender, chatID int64, topSetups int) *Telegram {
	if topSetups <= 0 {
		topSetups = 3
	}
	return &Telegram{
		sender:    sender,
		chat:      &tele.Chat{ID: chatID},
		topSetups: topSetups,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		now:       time.Now,
	}
}

// SendText sends text as Markdown, split into as many messages as needed.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	parts := SplitMessage(text, MaxMessageRunes)
	for i, part := range parts {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := t.sender.Send(t.chat, part, tele.ModeMarkdown, tele.NoPreview); err != nil {
			return fmt.Errorf("failed to send part %d of %d: %w", i+1, len(parts), err)
		}
	}
	logger.Info(ctx, "Briefing text sent", "parts", len(parts))
	return nil
}

// SendSummary sends the top equity setups with a button linking the dashboard.
func (t *Telegram) SendSummary(ctx context.Context, data types.BriefingData, dashboardURL string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	opts := []interface{}{tele.ModeHTML, tele.NoPreview}
	if dashboardURL != "" {
		opts = append(opts, &tele.ReplyMarkup{
			InlineKeyboard: [][]tele.InlineButton{{{Text: "📱 Open Dashboard", URL: dashboardURL}}},
		})
	}

	if _, err := t.sender.Send(t.chat, t.summary(data, dashboardURL), opts...); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}
	logger.Info(ctx, "Briefing summary sent", "equities", len(data.Equities), "crypto", len(data.Crypto))
	return nil
}

func (t *Telegram) summary(data types.BriefingData, dashboardURL string) string {
	at := data.GeneratedAt
	if at.IsZero() {
		at = t.now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Trading Briefing</b>\n<code>%s</code>\n\n", at.Format("2006-01-02 15:04 MST"))

	equities := data.Equities
	if len(equities) > t.topSetups {
		equities = equities[:t.topSetups]
	}
	for _, eq := range equities {
		fmt.Fprintf(&b, "%s <b>%s</b> | E:%s S:%s T:%s\n",
			biasEmoji(eq.Bias), html.EscapeString(eq.Ticker),
			num(eq.Entry), num(eq.Stop), num(eq.Target))
	}
	if len(equities) == 0 {
		b.WriteString("No equity setups found.\n")
	}
	for _, c := range data.Crypto {
		fmt.Fprintf(&b, "%s <b>%s</b> | S:%s R:%s\n",
			biasEmoji(c.Bias), html.EscapeString(c.Name), num(c.Support), num(c.Resistance))
	}

	if dashboardURL != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">View Dashboard</a>", html.EscapeString(dashboardURL))
	}
	return b.String()
}

func biasEmoji(b types.Bias) string {
	switch b {
	case types.BiasBullish:
		return "🟢"
	case types.BiasBearish:
		return "🔴"
	default:
		return "⚪"
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SplitMessage cuts text into chunks of at most limit runes, breaking after
// the last newline in a chunk when there is one.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageRunes
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
