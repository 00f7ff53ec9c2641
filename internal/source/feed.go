package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/types"
)

const defaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// FeedDiscoverer finds a channel's recent uploads from its public Atom feed.
type FeedDiscoverer struct {
	baseURL string
	timeout time.Duration
}

var _ interfaces.VideoDiscoverer = (*FeedDiscoverer)(nil)

func NewFeedDiscoverer(baseURL string, timeout time.Duration) *FeedDiscoverer {
	if baseURL == "" {
		baseURL = defaultFeedBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedDiscoverer{baseURL: baseURL, timeout: timeout}
}

// Latest returns up to limit entries of the channel feed, newest first.
func (f *FeedDiscoverer) Latest(ctx context.Context, channelID string, limit int) ([]types.VideoInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	videos := []types.VideoInfo{}
	var scrapeErr error

	c := colly.NewCollector(colly.Async(false))
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) trade-briefing")
	})

	c.OnXML("//entry", func(e *colly.XMLElement) {
		if limit > 0 && len(videos) >= limit {
			return
		}
		link := e.ChildAttr("link", "href")
		title := strings.TrimSpace(e.ChildText("title"))
		if link == "" || title == "" {
			return
		}
		published := strings.TrimSpace(e.ChildText("published"))
		videos = append(videos, types.VideoInfo{
			URL:        link,
			ID:         videoID(link),
			Title:      title,
			UploadDate: uploadDate(published),
			Uploader:   strings.TrimSpace(e.ChildText("author/name")),
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = err
		logger.ErrorWithErr(ctx, "Feed request failed", err, "channel", channelID, "status", r.StatusCode)
	})

	feedURL := f.baseURL + "?channel_id=" + url.QueryEscape(channelID)
	if err := c.Visit(feedURL); err != nil {
		return nil, fmt.Errorf("%w: failed to visit %s: %w", types.ErrSourceUnavailable, feedURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, scrapeErr)
	}
	logger.Debug(ctx, "Channel feed read", "channel", channelID, "entries", len(videos))
	return videos, nil
}

// PickTarget returns the first video whose title contains one of patterns
// (case-insensitive), or the most recent video when none match.
func PickTarget(videos []types.VideoInfo, patterns []string) (types.VideoInfo, bool) {
	if len(videos) == 0 {
		return types.VideoInfo{}, false
	}
	for _, v := range videos {
		title := strings.ToLower(v.Title)
		for _, p := range patterns {
			if p != "" && strings.Contains(title, strings.ToLower(p)) {
				return v, true
			}
		}
	}
	return videos[0], true
}

func videoID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return strings.TrimPrefix(u.Path, "/")
}

// uploadDate converts an RFC 3339 timestamp to yt-dlp's YYYYMMDD form.
func uploadDate(published string) string {
	t, err := time.Parse(time.RFC3339, published)
	if err != nil {
		return ""
	}
	return t.UTC().Format("20060102")
}
