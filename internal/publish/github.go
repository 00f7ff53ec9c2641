// Package publish uploads rendered dashboards to a GitHub Pages repository.
package publish

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"trade-briefing/internal/api"
	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
)

// GitHubPages writes the dashboard twice: index.html is the canonical latest
// copy and archive/<date>/briefing_<timestamp>.html keeps history.
type GitHubPages struct {
	client *api.Client
	owner  string
	repo   string
	branch string
	retry  *api.RetryConfig
}

var _ interfaces.Publisher = (*GitHubPages)(nil)

type Option func(*GitHubPages)

// WithRetry overrides the retry policy used for uploads.
func WithRetry(cfg *api.RetryConfig) Option {
	return func(g *GitHubPages) { g.retry = cfg }
}

func NewGitHubPages(apiBase, owner, repo, branch, token string, opts ...Option) *GitHubPages {
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	if branch == "" {
		branch = "main"
	}
	client := api.NewClient(api.WithBaseURL(apiBase), api.WithTimeout(30*time.Second), api.WithLogging(true))
	for k, v := range api.GitHubHeaders(token) {
		api.WithHeader(k, v)(client)
	}
	retry := api.DefaultRetryConfig()
	retry.MaxWait = 4 * time.Second
	retry.RetryIf = retryable
	g := &GitHubPages{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: branch,
		retry:  retry,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// retryable covers network failures and transient server errors.
func retryable(err error) bool {
	var he *api.HTTPError
	if !errors.As(err, &he) {
		return true
	}
	return he.StatusCode >= 500
}

// SiteURL is where GitHub Pages serves the repository.
func (g *GitHubPages) SiteURL() string {
	return fmt.Sprintf("https://%s.github.io/%s/", g.owner, g.repo)
}

// ArchivePath is the dated history path for a dashboard generated at t.
func ArchivePath(t time.Time) string {
	return fmt.Sprintf("archive/%s/briefing_%s.html", t.Format("2006-01-02"), t.Format("2006-01-02_15-04"))
}

func (g *GitHubPages) Publish(ctx context.Context, html []byte, at time.Time) (string, error) {
	op := logger.StartOperation(ctx, "publish.github", "repo", g.owner+"/"+g.repo)
	ctx = op.GetContext()

	message := "Update " + at.Format("2006-01-02 15:04")
	for _, path := range []string{"index.html", ArchivePath(at)} {
		if err := g.putFile(ctx, path, html, message); err != nil {
			op.EndWithError(err, "path", path)
			return "", fmt.Errorf("failed to publish %s: %w", path, err)
		}
	}

	op.End()
	return g.SiteURL(), nil
}

type contentsResponse struct {
	SHA string `json:"sha"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

func (g *GitHubPages) contentsURL(path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(g.owner), url.PathEscape(g.repo), path)
}

// existingSHA returns the blob sha of path, or "" when the file does not exist yet.
func (g *GitHubPages) existingSHA(ctx context.Context, path string) (string, error) {
	resp, err := g.client.GET(ctx, g.contentsURL(path)+"?ref="+url.QueryEscape(g.branch))
	if api.IsStatus(err, http.StatusNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var c contentsResponse
	if err := resp.ParseJSON(&c); err != nil {
		return "", err
	}
	return c.SHA, nil
}

// putFile creates or updates path. A 409 means the sha went stale between
// lookup and upload; the lookup is repeated once.
func (g *GitHubPages) putFile(ctx context.Context, path string, body []byte, message string) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var sha string
		sha, err = g.existingSHA(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", path, err)
		}

		req := api.NewRequest(http.MethodPut, g.contentsURL(path)).
			WithContext(ctx).
			WithBody(putContentsRequest{
				Message: message,
				Content: base64.StdEncoding.EncodeToString(body),
				Branch:  g.branch,
				SHA:     sha,
			})
		_, err = g.client.DoWithRetry(req, g.retry)
		if !api.IsStatus(err, http.StatusConflict) {
			return err
		}
		logger.Warn(ctx, "Stale sha on upload, retrying", "path", path)
	}
	return err
}
