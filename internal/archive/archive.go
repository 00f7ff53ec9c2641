// Package archive keeps briefings on local disk: the latest narrative and
// dashboard, dated copies of both, and one JSON line per run.
package archive

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"trade-briefing/internal/types"
)

const (
	latestNarrative = "latest_briefing.txt"
	latestDashboard = "latest_dashboard.html"
)

// ErrNoBriefing is returned by the Latest readers before any run has been archived.
var ErrNoBriefing = errors.New("no briefing archived yet")

type Archive struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func New(dir string) *Archive {
	if dir == "" {
		dir = "briefings"
	}
	return &Archive{dir: dir, now: time.Now}
}

func (a *Archive) Dir() string { return a.dir }

func stamp(t time.Time) string { return t.Format("2006-01-02_15-04") }

// SaveNarrative writes the narrative as the latest copy and as a dated copy.
// It returns the dated path.
func (a *Archive) SaveNarrative(text string, at time.Time) (string, error) {
	dated := filepath.Join(a.dir, "narratives", at.Format("2006-01-02"), "briefing_"+stamp(at)+".txt")
	return dated, a.writeBoth(latestNarrative, dated, []byte(text), at)
}

// SaveDashboard writes the rendered page as the latest copy and as a dated copy.
// It returns the dated path.
func (a *Archive) SaveDashboard(html []byte, at time.Time) (string, error) {
	dated := filepath.Join(a.dir, "dashboards", at.Format("2006-01-02"), "briefing_"+stamp(at)+".html")
	return dated, a.writeBoth(latestDashboard, dated, html, at)
}

// writeBoth stamps the latest copy with the run time; CompressOlder never
// touches latest copies.
func (a *Archive) writeBoth(latest, dated string, body []byte, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range []string{filepath.Join(a.dir, latest), dated} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}
	if at.IsZero() {
		return nil
	}
	return os.Chtimes(filepath.Join(a.dir, latest), at, at)
}

// AppendRun adds one JSON line describing the run to runs/<date>.txt.
// Per-source narratives are left out; the dated narrative copy holds the text.
func (a *Archive) AppendRun(o types.Outcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	at := o.StartedAt
	if at.IsZero() {
		at = a.now()
	}
	sources := make([]types.SourceReport, len(o.Sources))
	for i, s := range o.Sources {
		s.Narrative = ""
		sources[i] = s
	}
	o.Sources = sources

	p := filepath.Join(a.dir, "runs", at.Format("2006-01-02")+".txt")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// LatestNarrative returns the most recently saved narrative.
func (a *Archive) LatestNarrative() (string, error) {
	b, err := a.readLatest(latestNarrative)
	return string(b), err
}

// LatestDashboard returns the most recently saved dashboard page.
func (a *Archive) LatestDashboard() ([]byte, error) {
	return a.readLatest(latestDashboard)
}

// LatestRunAt returns the run time of the most recently saved narrative.
func (a *Archive) LatestRunAt() (time.Time, error) {
	info, err := os.Stat(filepath.Join(a.dir, latestNarrative))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, ErrNoBriefing
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (a *Archive) readLatest(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(a.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoBriefing
	}
	return b, err
}

// CompressOlder gzips dated files last modified more than retentionDays ago.
// The latest copies are never touched.
func (a *Archive) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := a.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(a.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".gz") || filepath.Dir(p) == filepath.Clean(a.dir) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			return os.Remove(p)
		}
		return gzipFile(p, gz)
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
