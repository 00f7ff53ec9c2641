package archive

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trade-briefing/internal/types"
)

func TestSaveAndReadLatest(t *testing.T) {
	a := New(t.TempDir())

	if _, err := a.LatestNarrative(); !errors.Is(err, ErrNoBriefing) {
		t.Fatalf("Expected ErrNoBriefing on empty archive, got %v", err)
	}
	if _, err := a.LatestRunAt(); !errors.Is(err, ErrNoBriefing) {
		t.Fatalf("Expected ErrNoBriefing for run time on empty archive, got %v", err)
	}

	at := time.Date(2025, 1, 2, 7, 45, 0, 0, time.UTC)
	dated, err := a.SaveNarrative("first", at)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dated) != "briefing_2025-01-02_07-45.txt" {
		t.Errorf("Unexpected dated path %s", dated)
	}
	if _, err := a.SaveNarrative("second", at.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := a.LatestNarrative()
	if err != nil || got != "second" {
		t.Errorf("Expected latest narrative 'second', got %q (%v)", got, err)
	}
	runAt, err := a.LatestRunAt()
	if err != nil || !runAt.Equal(at.Add(time.Hour)) {
		t.Errorf("Expected latest run at %v, got %v (%v)", at.Add(time.Hour), runAt, err)
	}
	if b, _ := os.ReadFile(dated); string(b) != "first" {
		t.Errorf("Expected dated copy to keep 'first', got %q", b)
	}

	if _, err := a.SaveDashboard([]byte("<html></html>"), at); err != nil {
		t.Fatal(err)
	}
	html, err := a.LatestDashboard()
	if err != nil || string(html) != "<html></html>" {
		t.Errorf("Unexpected latest dashboard %q (%v)", html, err)
	}
}

func TestAppendRun(t *testing.T) {
	a := New(t.TempDir())
	at := time.Date(2025, 1, 2, 7, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		o := types.Outcome{
			Mode:      "dry_run",
			StartedAt: at,
			Sources:   []types.SourceReport{{Name: "equity", Narrative: "long text", Segments: 3}},
			Briefing:  types.BriefingData{Equities: []types.TradeSetup{{Ticker: "AAPL"}}},
		}
		if err := a.AppendRun(o); err != nil {
			t.Fatal(err)
		}
	}

	f, err := os.Open(filepath.Join(a.Dir(), "runs", "2025-01-02.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
		var got types.Outcome
		if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
			t.Fatalf("Expected JSON line, got %v", err)
		}
		if got.Sources[0].Narrative != "" || got.Sources[0].Segments != 3 {
			t.Errorf("Unexpected source record %+v", got.Sources[0])
		}
		if got.Briefing.Equities[0].Ticker != "AAPL" {
			t.Errorf("Expected briefing in run record, got %+v", got.Briefing)
		}
	}
	if lines != 2 {
		t.Errorf("Expected 2 run lines, got %d", lines)
	}
}

func TestCompressOlder(t *testing.T) {
	a := New(t.TempDir())
	old := time.Now().AddDate(0, 0, -10)

	dated, err := a.SaveNarrative("old briefing", old)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{dated, filepath.Join(a.Dir(), latestNarrative)} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}
	fresh, _ := a.SaveDashboard([]byte("new"), time.Now())

	if err := a.CompressOlder(7); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := os.Stat(dated); !os.IsNotExist(err) {
		t.Error("Expected old dated copy to be removed")
	}
	gz, err := os.Open(dated + ".gz")
	if err != nil {
		t.Fatalf("Expected gzip copy, got %v", err)
	}
	defer gz.Close()
	r, err := gzip.NewReader(gz)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(r)
	if string(body) != "old briefing" {
		t.Errorf("Unexpected compressed content %q", body)
	}

	if _, err := os.Stat(filepath.Join(a.Dir(), latestNarrative)); err != nil {
		t.Error("Expected latest copy to be left alone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("Expected fresh dashboard to be left alone")
	}
}
