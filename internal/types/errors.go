package types

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the video or its caption track could not be retrieved.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEmptyTranscript means normalization left no lines.
	ErrEmptyTranscript = errors.New("empty transcript")
	// ErrInference means a model request failed.
	ErrInference = errors.New("inference failed")
	// ErrNothingToAnalyze is returned when extraction is asked to work on zero segments.
	ErrNothingToAnalyze = errors.New("nothing to analyze")
)

// Pipeline stages, used to name where a run failed.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageSegment   = "segment"
	StageExtract   = "extract"
	StageSynthesis = "synthesis"
	StageParse     = "parse"
	StageRender    = "render"
	StagePublish   = "publish"
	StageDeliver   = "deliver"
)

// StageError names the stage (and source, when there is one) that failed.
type StageError struct {
	Stage  string
	Source string
	Err    error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// InferenceError wraps a failed model request. Segment is -1 for synthesis requests.
type InferenceError struct {
	Stage   string
	Segment int
	Err     error
}

func (e *InferenceError) Error() string {
	if e.Segment >= 0 {
		return fmt.Sprintf("inference failed at %s (segment %d): %v", e.Stage, e.Segment, e.Err)
	}
	return fmt.Sprintf("inference failed at %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() []error { return []error{ErrInference, e.Err} }
