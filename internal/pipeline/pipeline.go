// Package pipeline runs one briefing end to end: fetch each source, extract
// a narrative per source, synthesize, parse, render, archive and deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"trade-briefing/internal/archive"
	"trade-briefing/internal/caption"
	"trade-briefing/internal/extract"
	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/parse"
	"trade-briefing/internal/segment"
	"trade-briefing/internal/source"
	"trade-briefing/internal/store"
	"trade-briefing/internal/types"
)

// Deps are the collaborators a run talks to. Discoverer, Publisher, Notifier
// and Archive are optional; a nil value skips that step.
type Deps struct {
	Source     interfaces.TranscriptSource
	Discoverer interfaces.VideoDiscoverer
	LLM        interfaces.Completer
	Renderer   interfaces.Renderer
	Publisher  interfaces.Publisher
	Notifier   interfaces.Notifier
	Archive    *archive.Archive
}

type Pipeline struct {
	cfg       *store.Config
	deps      Deps
	extractor *extract.Orchestrator
	parser    *parse.Parser
	segOpts   segment.Options
	now       func() time.Time
}

func New(cfg *store.Config, deps Deps) (*Pipeline, error) {
	if deps.Source == nil || deps.LLM == nil || deps.Renderer == nil {
		return nil, errors.New("pipeline needs a transcript source, a language model and a renderer")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	segOpts := segment.Options{
		Budget:        cfg.Segmenter.Budget,
		LongThreshold: cfg.Segmenter.LongThreshold,
		MaxChunks:     cfg.Segmenter.MaxChunks,
	}
	if err := segOpts.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:  cfg,
		deps: deps,
		extractor: extract.New(deps.LLM, extract.Budgets{
			Segment:   cfg.LLM.SegmentMaxTokens,
			Synthesis: cfg.LLM.SynthesisMaxTokens,
			Briefing:  cfg.LLM.BriefingMaxTokens,
		}),
		segOpts: segOpts,
		now:     time.Now,
	}
	p.parser = parse.New(parse.Options{
		ContextLength: cfg.Parser.ContextLength,
		CryptoSymbols: cfg.Parser.CryptoSymbols,
		Now:           func() time.Time { return p.now() },
	})
	return p, nil
}

// Run executes one briefing. A non-nil Outcome is returned whenever at least
// the source stage ran, even if a later fatal stage failed.
func (p *Pipeline) Run(ctx context.Context) (*types.Outcome, error) {
	out := &types.Outcome{Mode: p.cfg.Mode, StartedAt: p.now()}
	op := logger.StartOperation(ctx, "pipeline.run", "mode", p.cfg.Mode, "sources", len(p.cfg.Sources))
	ctx = op.GetContext()

	var failures []error
	for _, sc := range p.cfg.Sources {
		report := p.runSource(ctx, sc)
		if report.Err != nil {
			report.Error = report.Err.Error()
			failures = append(failures, report.Err)
			logger.Warn(ctx, "Source skipped", "source", sc.Name, "error", report.Err)
		}
		out.Sources = append(out.Sources, report)
	}
	if len(failures) == len(p.cfg.Sources) {
		err := fmt.Errorf("all %d sources failed: %w", len(failures), errors.Join(failures...))
		op.EndWithError(err)
		return out, err
	}

	narrative, err := p.extractor.Synthesize(ctx, out.Sources)
	if err != nil {
		err = &types.StageError{Stage: types.StageSynthesis, Err: err}
		op.EndWithError(err)
		return out, err
	}
	out.Narrative = narrative

	out.Briefing = p.parser.Parse(narrative)
	p.logSetups(ctx, out.Briefing)

	html, err := p.deps.Renderer.Render(out.Briefing, narrative)
	if err != nil {
		err = &types.StageError{Stage: types.StageRender, Err: err}
		op.EndWithError(err)
		return out, err
	}

	p.save(ctx, out, html)

	if p.cfg.DryRun() {
		logger.Info(ctx, "Dry run, skipping publish and chat delivery")
	} else {
		p.deliver(ctx, out, html)
	}

	if p.deps.Archive != nil {
		if err := p.deps.Archive.AppendRun(*out); err != nil {
			logger.ErrorWithErr(ctx, "Failed to record run", err)
		}
	}

	op.End("equities", len(out.Briefing.Equities), "crypto", len(out.Briefing.Crypto), "delivered", out.Delivered)
	return out, nil
}

// runSource turns one configured source into a per-source narrative. Every
// failure is returned inside the report as a *types.StageError.
func (p *Pipeline) runSource(ctx context.Context, sc store.SourceConfig) types.SourceReport {
	report := types.SourceReport{Name: sc.Name, Intent: sc.Intent}
	op := logger.StartOperation(ctx, "pipeline.source", "source", sc.Name, "intent", string(sc.Intent))
	ctx = op.GetContext()

	fail := func(stage string, err error) types.SourceReport {
		report.Err = &types.StageError{Stage: stage, Source: sc.Name, Err: err}
		op.EndWithError(report.Err)
		return report
	}

	video, raw, err := p.fetch(ctx, sc)
	report.Video = video
	if err != nil {
		return fail(types.StageFetch, err)
	}

	text, err := caption.Normalize(raw)
	if err != nil {
		return fail(types.StageNormalize, err)
	}
	if sc.ExpandShorthand {
		text = caption.ExpandShorthand(text)
	}

	segments, err := segment.Split(text, p.segOpts)
	if err != nil {
		return fail(types.StageSegment, err)
	}
	report.Segments = len(segments)
	if logger.IsDebugEnabled() {
		logger.Debug(ctx, "Transcript segmented", "source", sc.Name, "chars", utf8.RuneCountInString(text), "segments", len(segments))
	}

	narrative, err := p.extractor.Extract(ctx, segments, sc.Intent)
	if err != nil {
		return fail(types.StageExtract, err)
	}
	if narrative == "" {
		return fail(types.StageExtract, fmt.Errorf("%w: model returned an empty narrative", types.ErrNothingToAnalyze))
	}
	report.Narrative = narrative

	op.End("video", video.ID, "segments", len(segments))
	return report
}

// fetch tries each candidate video in order and returns the first one whose
// captions could be read.
func (p *Pipeline) fetch(ctx context.Context, sc store.SourceConfig) (types.VideoInfo, string, error) {
	videos, err := p.candidates(ctx, sc)
	if err != nil {
		return types.VideoInfo{}, "", err
	}

	var lastErr error
	for _, v := range videos {
		info, err := p.deps.Source.Info(ctx, v.URL)
		if err != nil {
			logger.Warn(ctx, "Video metadata unavailable", "source", sc.Name, "url", v.URL, "error", err)
			info = v
		}
		raw, err := p.deps.Source.Captions(ctx, v.URL)
		if err != nil {
			lastErr = err
			logger.Warn(ctx, "Captions unavailable", "source", sc.Name, "url", v.URL, "error", err)
			continue
		}
		logger.Info(ctx, "Captions fetched", "source", sc.Name, "title", info.Title, "upload_date", info.UploadDate)
		return info, raw, nil
	}
	return types.VideoInfo{}, "", lastErr
}

func (p *Pipeline) candidates(ctx context.Context, sc store.SourceConfig) ([]types.VideoInfo, error) {
	if len(sc.VideoURLs) > 0 {
		videos := make([]types.VideoInfo, len(sc.VideoURLs))
		for i, u := range sc.VideoURLs {
			videos[i] = types.VideoInfo{URL: u}
		}
		return videos, nil
	}
	if sc.ChannelID == "" || p.deps.Discoverer == nil {
		return nil, fmt.Errorf("%w: no video URLs or channel for %s", types.ErrSourceUnavailable, sc.Name)
	}

	recent, err := p.deps.Discoverer.Latest(ctx, sc.ChannelID, sc.ScanLimit)
	if err != nil {
		return nil, err
	}
	target, ok := source.PickTarget(recent, sc.TitlePatterns)
	if !ok {
		return nil, fmt.Errorf("%w: channel %s has no recent videos", types.ErrSourceUnavailable, sc.ChannelID)
	}
	logger.Info(ctx, "Video selected", "source", sc.Name, "title", target.Title, "url", target.URL)
	return []types.VideoInfo{target}, nil
}

func (p *Pipeline) logSetups(ctx context.Context, data types.BriefingData) {
	for _, eq := range data.Equities {
		logger.Setup(ctx, "equity", eq.Ticker, string(eq.Bias), "entry", eq.Entry, "stop", eq.Stop, "target", eq.Target)
	}
	for _, c := range data.Crypto {
		logger.Setup(ctx, "crypto", c.Name, string(c.Bias), "support", c.Support, "resistance", c.Resistance)
	}
	if data.Empty() {
		logger.Warn(ctx, "No setups found in briefing")
	}
}

// save writes local copies. Failures are logged; the run still succeeds.
func (p *Pipeline) save(ctx context.Context, out *types.Outcome, html []byte) {
	a := p.deps.Archive
	if a == nil {
		return
	}
	if _, err := a.SaveNarrative(out.Narrative, out.StartedAt); err != nil {
		logger.ErrorWithErr(ctx, "Failed to archive narrative", err)
	}
	path, err := a.SaveDashboard(html, out.StartedAt)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to archive dashboard", err)
	} else {
		out.LocalPath = path
	}
	if err := a.CompressOlder(p.cfg.Archive.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old briefings", "error", err)
	}
}

// deliver publishes the dashboard and sends the chat messages. Neither step
// can fail the run.
func (p *Pipeline) deliver(ctx context.Context, out *types.Outcome, html []byte) {
	if p.deps.Publisher != nil {
		url, err := p.deps.Publisher.Publish(ctx, html, out.StartedAt)
		if err != nil {
			logger.ErrorWithErr(ctx, "Dashboard publish failed", &types.StageError{Stage: types.StagePublish, Err: err})
		} else {
			out.DashboardURL = url
			logger.Info(ctx, "Dashboard published", "url", url)
		}
	}

	if p.deps.Notifier == nil {
		return
	}
	if err := p.deps.Notifier.SendSummary(ctx, out.Briefing, out.DashboardURL); err != nil {
		logger.ErrorWithErr(ctx, "Chat summary failed", &types.StageError{Stage: types.StageDeliver, Err: err})
		return
	}
	if err := p.deps.Notifier.SendText(ctx, out.Narrative); err != nil {
		logger.ErrorWithErr(ctx, "Chat briefing failed", &types.StageError{Stage: types.StageDeliver, Err: err})
		return
	}
	out.Delivered = true
}
