// Package extract drives the language model over transcript segments.
package extract

import (
	"context"
	"fmt"
	"strings"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/types"
)

// Budgets caps the reply length of each kind of request, in tokens.
type Budgets struct {
	Segment   int
	Synthesis int
	Briefing  int
}

func DefaultBudgets() Budgets {
	return Budgets{Segment: 1200, Synthesis: 1500, Briefing: 2500}
}

// Orchestrator issues one request per segment and a synthesis request that
// merges them. Requests are sequential; nothing is retried.
type Orchestrator struct {
	llm     interfaces.Completer
	budgets Budgets
}

func New(llm interfaces.Completer, budgets Budgets) *Orchestrator {
	def := DefaultBudgets()
	if budgets.Segment <= 0 {
		budgets.Segment = def.Segment
	}
	if budgets.Synthesis <= 0 {
		budgets.Synthesis = def.Synthesis
	}
	if budgets.Briefing <= 0 {
		budgets.Briefing = def.Briefing
	}
	return &Orchestrator{llm: llm, budgets: budgets}
}

// Extract analyzes each segment in order and returns the synthesized narrative.
// Any failed request aborts the whole extraction with an *types.InferenceError.
func (o *Orchestrator) Extract(ctx context.Context, segments []types.Segment, intent types.Intent) (string, error) {
	if len(segments) == 0 {
		return "", types.ErrNothingToAnalyze
	}
	if !intent.Valid() {
		return "", fmt.Errorf("unknown intent %q", intent)
	}

	partials := make([]string, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return "", &types.InferenceError{Stage: types.StageExtract, Segment: seg.Index, Err: err}
		}

		op := logger.StartOperation(ctx, "extract.segment",
			"intent", string(intent),
			"segment", seg.Index,
			"chars", len(seg.Text),
		)
		out, err := o.llm.Complete(op.GetContext(), segmentPrompt(intent, seg, len(segments)), o.budgets.Segment)
		if err != nil {
			op.EndWithError(err)
			return "", &types.InferenceError{Stage: types.StageExtract, Segment: seg.Index, Err: err}
		}
		op.End("reply_chars", len(out))
		partials = append(partials, out)
	}

	op := logger.StartOperation(ctx, "extract.synthesis", "intent", string(intent), "parts", len(partials))
	narrative, err := o.llm.Complete(op.GetContext(), mergePrompt(intent, partials), o.budgets.Synthesis)
	if err != nil {
		op.EndWithError(err)
		return "", &types.InferenceError{Stage: types.StageSynthesis, Segment: -1, Err: err}
	}
	op.End("reply_chars", len(narrative))

	return strings.TrimSpace(narrative), nil
}

// Synthesize merges per-source narratives into the final briefing. Sources
// that failed are named in the prompt so the briefing can flag the gap.
func (o *Orchestrator) Synthesize(ctx context.Context, reports []types.SourceReport) (string, error) {
	usable := 0
	for _, r := range reports {
		if r.OK() {
			usable++
		}
	}
	if usable == 0 {
		return "", types.ErrNothingToAnalyze
	}

	op := logger.StartOperation(ctx, "extract.briefing", "sources", len(reports), "usable", usable)
	text, err := o.llm.Complete(op.GetContext(), briefingPrompt(reports), o.budgets.Briefing)
	if err != nil {
		op.EndWithError(err)
		return "", &types.InferenceError{Stage: types.StageSynthesis, Segment: -1, Err: err}
	}
	op.End("reply_chars", len(text))

	return strings.TrimSpace(text), nil
}
