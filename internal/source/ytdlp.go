// Package source fetches video metadata and caption tracks.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/types"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return out, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return out, nil
}

// YTDLP retrieves videos through the yt-dlp command line tool.
type YTDLP struct {
	bin     string
	subLang string
	timeout time.Duration
	runner  Runner
}

var (
	_ interfaces.TranscriptSource = (*YTDLP)(nil)
	_ interfaces.VideoDiscoverer  = (*YTDLP)(nil)
)

type YTDLPOption func(*YTDLP)

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(r Runner) YTDLPOption {
	return func(y *YTDLP) { y.runner = r }
}

func WithSubLang(lang string) YTDLPOption {
	return func(y *YTDLP) { y.subLang = lang }
}

func WithTimeout(d time.Duration) YTDLPOption {
	return func(y *YTDLP) { y.timeout = d }
}

func NewYTDLP(bin string, opts ...YTDLPOption) *YTDLP {
	if bin == "" {
		bin = "yt-dlp"
	}
	y := &YTDLP{bin: bin, subLang: "en", timeout: 120 * time.Second, runner: execRunner{}}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

type ytdlpInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	UploadDate string  `json:"upload_date"`
	Duration   float64 `json:"duration"`
	Uploader   string  `json:"uploader"`
	WebpageURL string  `json:"webpage_url"`
	URL        string  `json:"url"`
}

func (i ytdlpInfo) toVideo(fallbackURL string) types.VideoInfo {
	u := i.WebpageURL
	if u == "" {
		u = i.URL
	}
	if u == "" {
		u = fallbackURL
	}
	if u == "" && i.ID != "" {
		u = "https://www.youtube.com/watch?v=" + i.ID
	}
	return types.VideoInfo{
		URL:        u,
		ID:         i.ID,
		Title:      i.Title,
		UploadDate: i.UploadDate,
		Duration:   int(i.Duration),
		Uploader:   i.Uploader,
	}
}

// Info returns title, upload date, duration and uploader for a video.
func (y *YTDLP) Info(ctx context.Context, videoURL string) (types.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	out, err := y.runner.Run(ctx, y.bin, "--dump-json", "--skip-download", "--no-warnings", videoURL)
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return types.VideoInfo{}, fmt.Errorf("%w: decode video info: %w", types.ErrSourceUnavailable, err)
	}
	return info.toVideo(videoURL), nil
}

// Captions downloads the caption track (uploaded or automatic) and returns
// its raw contents.
func (y *YTDLP) Captions(ctx context.Context, videoURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "briefing-subs-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	_, err = y.runner.Run(ctx, y.bin,
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", y.subLang,
		"--sub-format", "vtt",
		"--no-warnings",
		"--output", filepath.Join(dir, "captions"),
		videoURL,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	path, ok := findCaptionFile(dir)
	if !ok {
		return "", fmt.Errorf("%w: no %s captions for %s", types.ErrSourceUnavailable, y.subLang, videoURL)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	logger.Debug(ctx, "Captions downloaded", "url", videoURL, "file", filepath.Base(path), "bytes", len(b))
	return string(b), nil
}

// findCaptionFile prefers .vtt tracks and falls back to plain text.
func findCaptionFile(dir string) (string, bool) {
	for _, ext := range []string{"*.vtt", "*.txt"} {
		matches, _ := filepath.Glob(filepath.Join(dir, ext))
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], true
		}
	}
	return "", false
}

// ChannelVideos lists the most recent uploads of a channel using a flat
// playlist dump, newest first.
func (y *YTDLP) ChannelVideos(ctx context.Context, channelURL string, limit int) ([]types.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	out, err := y.runner.Run(ctx, y.bin,
		"--flat-playlist",
		"--dump-json",
		"--playlist-end", fmt.Sprint(limit),
		"--no-warnings",
		channelURL,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	var videos []types.VideoInfo
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var info ytdlpInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			logger.Debug(ctx, "Skipping unreadable playlist entry", "error", err)
			continue
		}
		videos = append(videos, info.toVideo(""))
	}
	return videos, nil
}

// Latest lists a channel's uploads page, for channels whose Atom feed is
// unavailable.
func (y *YTDLP) Latest(ctx context.Context, channelID string, limit int) ([]types.VideoInfo, error) {
	return y.ChannelVideos(ctx, "https://www.youtube.com/channel/"+channelID+"/videos", limit)
}
