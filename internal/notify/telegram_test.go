package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"trade-briefing/internal/types"
)

type sent struct {
	chat int64
	text string
	opts []interface{}
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	chat, ok := to.(*tele.Chat)
	if !ok {
		return nil, fmt.Errorf("unexpected recipient type %T", to)
	}
	f.sent = append(f.sent, sent{chat: chat.ID, text: fmt.Sprint(what), opts: opts})
	return &tele.Message{}, nil
}

func hasOpt(opts []interface{}, want interface{}) bool {
	for _, o := range opts {
		if o == want {
			return true
		}
	}
	return false
}

func TestSplitMessage(t *testing.T) {
	if got := SplitMessage("", 10); got != nil {
		t.Errorf("Expected no parts for empty text, got %q", got)
	}
	if got := SplitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("Expected single part, got %q", got)
	}

	got := SplitMessage("line one\nline two\nline three", 12)
	want := []string{"line one\n", "line two\n", "line three"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expected newline breaks %q, got %q", want, got)
	}

	got = SplitMessage(strings.Repeat("é", 25), 10)
	if len(got) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(got))
	}
	for _, p := range got {
		if !utf8.ValidString(p) || utf8.RuneCountInString(p) > 10 {
			t.Errorf("Invalid part %q", p)
		}
	}
}

func TestSendTextChunks(t *testing.T) {
	f := &fakeSender{}
	tg := newTelegram(f, 42, 3)
	tg.limiter = rate.NewLimiter(rate.Inf, 1)

	text := strings.Repeat("a", MaxMessageRunes) + strings.Repeat("b", 10)
	if err := tg.SendText(context.Background(), text); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(f.sent) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(f.sent))
	}
	if f.sent[0].chat != 42 || !hasOpt(f.sent[0].opts, tele.ModeMarkdown) || !hasOpt(f.sent[0].opts, tele.NoPreview) {
		t.Errorf("Unexpected first message %+v", f.sent[0].opts)
	}
	if f.sent[1].text != strings.Repeat("b", 10) {
		t.Errorf("Unexpected tail %q", f.sent[1].text)
	}
}

func TestSendTextError(t *testing.T) {
	boom := errors.New("boom")
	tg := newTelegram(&fakeSender{err: boom}, 1, 3)
	if err := tg.SendText(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped send error, got %v", err)
	}
}

func TestSendSummary(t *testing.T) {
	f := &fakeSender{}
	tg := newTelegram(f, 7, 2)

	data := types.BriefingData{
		Equities: []types.TradeSetup{
			{Ticker: "AAPL", Entry: 150, Stop: 145, Target: 160, Bias: types.BiasBullish},
			{Ticker: "TSLA", Entry: 250.5, Stop: 260, Target: 230, Bias: types.BiasBearish},
			{Ticker: "NVDA", Entry: 1, Stop: 1, Target: 2, Bias: types.BiasBullish},
		},
		Crypto:      []types.CryptoSetup{{Name: "BTC", Support: 93000, Resistance: 98000, Bias: types.BiasNeutral}},
		GeneratedAt: time.Date(2025, 1, 2, 6, 0, 0, 0, time.UTC),
	}
	if err := tg.SendSummary(context.Background(), data, "https://o.github.io/r/"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(f.sent) != 1 {
		t.Fatalf("Expected one message, got %d", len(f.sent))
	}
	msg := f.sent[0]

	for _, want := range []string{
		"<code>2025-01-02 06:00 UTC</code>",
		"🟢 <b>AAPL</b> | E:150 S:145 T:160",
		"🔴 <b>TSLA</b> | E:250.5 S:260 T:230",
		"⚪ <b>BTC</b> | S:93000 R:98000",
		`<a href="https://o.github.io/r/">View Dashboard</a>`,
	} {
		if !strings.Contains(msg.text, want) {
			t.Errorf("Expected %q in summary:\n%s", want, msg.text)
		}
	}
	if strings.Contains(msg.text, "NVDA") {
		t.Error("Expected only the top 2 equities")
	}
	if !hasOpt(msg.opts, tele.ModeHTML) {
		t.Error("Expected HTML parse mode")
	}

	var markup *tele.ReplyMarkup
	for _, o := range msg.opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			markup = m
		}
	}
	if markup == nil || markup.InlineKeyboard[0][0].URL != "https://o.github.io/r/" {
		t.Errorf("Expected dashboard button, got %+v", markup)
	}
}

func TestSendSummaryWithoutSetups(t *testing.T) {
	f := &fakeSender{}
	tg := newTelegram(f, 7, 3)
	if err := tg.SendSummary(context.Background(), types.BriefingData{}, ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.sent[0].text, "No equity setups found.") {
		t.Errorf("Unexpected summary %q", f.sent[0].text)
	}
	if len(f.sent[0].opts) != 2 {
		t.Errorf("Expected no button without a dashboard URL, got %d opts", len(f.sent[0].opts))
	}
}

func TestSendTextStopsOnCancel(t *testing.T) {
	f := &fakeSender{}
	tg := newTelegram(f, 1, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tg.SendText(ctx, "hi"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(f.sent) != 0 {
		t.Errorf("Expected nothing sent, got %d", len(f.sent))
	}
}
