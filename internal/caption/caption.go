// Package caption turns raw timed-caption files into a plain transcript.
package caption

import (
	"bufio"
	"math"
	"regexp"
	"strconv"
	"strings"

	"trade-briefing/internal/types"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	shorthandPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)[kK]\b`)

	headerPrefixes = []string{"WEBVTT", "Kind:", "Language:", "NOTE", "STYLE"}
)

// Lines returns the deduplicated caption lines in first-occurrence order.
//
// Cue timing lines, file headers and blank lines are dropped and inline markup
// is stripped before comparison, so the same spoken line repeated across
// rolling cues collapses to one entry.
func Lines(raw string) []string {
	seen := make(map[string]struct{})
	var out []string

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || isCueOrHeader(line) {
			continue
		}
		line = strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func isCueOrHeader(line string) bool {
	if strings.Contains(line, "-->") {
		return true
	}
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Normalize cleans raw captions into a single space-joined transcript.
// It returns types.ErrEmptyTranscript when no caption text survives.
func Normalize(raw string) (string, error) {
	lines := Lines(raw)
	if len(lines) == 0 {
		return "", types.ErrEmptyTranscript
	}
	return strings.Join(lines, " "), nil
}

// ExpandShorthand rewrites thousand-suffixed numbers ("93k", "93.5K") as plain
// integers ("93000", "93500"). Fractional values are truncated after scaling.
// Values too large for an int64 once scaled are left as written.
func ExpandShorthand(text string) string {
	return shorthandPattern.ReplaceAllStringFunc(text, func(m string) string {
		num := m[:len(m)-1]
		if !strings.Contains(num, ".") {
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil || n > math.MaxInt64/1000 {
				return m
			}
			return strconv.FormatInt(n*1000, 10)
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil || f*1000 >= math.MaxInt64 {
			return m
		}
		return strconv.FormatInt(int64(f*1000), 10)
	})
}
