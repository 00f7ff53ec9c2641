package source

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"trade-briefing/internal/types"
)

// fakeRunner records invocations and can drop a caption file where yt-dlp would.
type fakeRunner struct {
	stdout  []byte
	err     error
	subFile string
	subBody string
	args    [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.args = append(f.args, append([]string{name}, args...))
	if f.err != nil {
		return nil, f.err
	}
	if f.subFile != "" {
		for i, a := range args {
			if a == "--output" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1]+f.subFile, []byte(f.subBody), 0o644); err != nil {
					return nil, err
				}
			}
		}
	}
	return f.stdout, nil
}

func TestInfoParsesDumpJSON(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"id":"abc123","title":"Today's Best Trade Setups","upload_date":"20250102","duration":1834.5,"uploader":"Verified Investing","webpage_url":"https://www.youtube.com/watch?v=abc123"}`)}
	y := NewYTDLP("yt-dlp", WithRunner(r))

	info, err := y.Info(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := types.VideoInfo{
		URL:        "https://www.youtube.com/watch?v=abc123",
		ID:         "abc123",
		Title:      "Today's Best Trade Setups",
		UploadDate: "20250102",
		Duration:   1834,
		Uploader:   "Verified Investing",
	}
	if info != want {
		t.Errorf("Expected %+v, got %+v", want, info)
	}
	if got := strings.Join(r.args[0], " "); !strings.Contains(got, "--dump-json --skip-download") {
		t.Errorf("Unexpected command line %q", got)
	}
}

func TestCaptionsReadsVTTFile(t *testing.T) {
	r := &fakeRunner{subFile: ".en.vtt", subBody: "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello\n"}
	y := NewYTDLP("", WithRunner(r), WithSubLang("en"))

	raw, err := y.Captions(context.Background(), "https://youtu.be/x")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(raw, "hello") {
		t.Errorf("Expected caption body, got %q", raw)
	}
	cmd := strings.Join(r.args[0], " ")
	for _, flag := range []string{"yt-dlp ", "--write-auto-subs", "--sub-langs en", "--sub-format vtt", "--skip-download"} {
		if !strings.Contains(cmd, flag) {
			t.Errorf("Expected %q in command line %q", flag, cmd)
		}
	}
}

func TestCaptionsMissingTrack(t *testing.T) {
	y := NewYTDLP("yt-dlp", WithRunner(&fakeRunner{}))
	_, err := y.Captions(context.Background(), "https://youtu.be/x")
	if !errors.Is(err, types.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestCaptionsCommandFailure(t *testing.T) {
	y := NewYTDLP("yt-dlp", WithRunner(&fakeRunner{err: errors.New("exit status 1")}))
	_, err := y.Captions(context.Background(), "https://youtu.be/x")
	if !errors.Is(err, types.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestChannelVideosParsesFlatPlaylist(t *testing.T) {
	r := &fakeRunner{stdout: []byte(
		`{"id":"v1","title":"Market update","url":"https://www.youtube.com/watch?v=v1"}` + "\n" +
			"not json\n" +
			`{"id":"v2","title":"My Trading Game Plan"}` + "\n",
	)}
	y := NewYTDLP("yt-dlp", WithRunner(r))

	videos, err := y.ChannelVideos(context.Background(), "https://www.youtube.com/@channel/videos", 5)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("Expected 2 videos, got %d", len(videos))
	}
	if videos[1].URL != "https://www.youtube.com/watch?v=v2" {
		t.Errorf("Expected URL built from id, got %q", videos[1].URL)
	}
	if !strings.Contains(strings.Join(r.args[0], " "), "--playlist-end 5") {
		t.Errorf("Expected playlist limit in %v", r.args[0])
	}
}

func TestLatestUsesChannelUploads(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"id":"v1","title":"Morning prep"}`)}
	y := NewYTDLP("yt-dlp", WithRunner(r))

	videos, err := y.Latest(context.Background(), "UC123", 3)
	if err != nil || len(videos) != 1 {
		t.Fatalf("Expected one video, got %v (%v)", videos, err)
	}
	args := r.args[0]
	if args[len(args)-1] != "https://www.youtube.com/channel/UC123/videos" {
		t.Errorf("Unexpected channel URL in %v", args)
	}
}
