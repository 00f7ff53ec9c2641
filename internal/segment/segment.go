// Package segment slices a transcript into a bounded number of windows so a
// long video never produces more model requests than the budget allows.
package segment

import (
	"fmt"

	"trade-briefing/internal/types"
)

// Options controls how transcripts are sliced. Sizes are in runes.
type Options struct {
	Budget        int
	LongThreshold int
	MaxChunks     int
}

// DefaultOptions returns the standard 8000-rune budget with a 30000-rune
// long-transcript threshold and at most four chunks otherwise.
func DefaultOptions() Options {
	return Options{Budget: 8000, LongThreshold: 30000, MaxChunks: 4}
}

func (o Options) Validate() error {
	if o.Budget <= 0 {
		return fmt.Errorf("segment budget must be positive, got %d", o.Budget)
	}
	if o.LongThreshold < o.Budget {
		return fmt.Errorf("long threshold %d is below budget %d", o.LongThreshold, o.Budget)
	}
	if o.MaxChunks <= 0 {
		return fmt.Errorf("max chunks must be positive, got %d", o.MaxChunks)
	}
	return nil
}

// Split returns the ordered segments for text.
//
// Transcripts longer than LongThreshold are sampled as five windows: the head,
// windows starting at one, two and three fifths of the length, and the tail.
// Shorter transcripts are cut into consecutive Budget-sized chunks, keeping
// at most MaxChunks of them.
func Split(text string, opts Options) ([]types.Segment, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []types.Segment{}, nil
	}
	if n <= opts.Budget {
		return []types.Segment{{Index: 0, Offset: 0, Text: text}}, nil
	}

	var offsets []int
	if n > opts.LongThreshold {
		step := n / 5
		offsets = []int{0, step, 2 * step, 3 * step, n - opts.Budget}
	} else {
		for off := 0; off < n && len(offsets) < opts.MaxChunks; off += opts.Budget {
			offsets = append(offsets, off)
		}
	}

	segs := make([]types.Segment, 0, len(offsets))
	for i, off := range offsets {
		end := off + opts.Budget
		if end > n {
			end = n
		}
		segs = append(segs, types.Segment{Index: i, Offset: off, Text: string(runes[off:end])})
	}
	return segs, nil
}
