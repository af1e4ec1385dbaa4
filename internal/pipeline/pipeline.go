// Package pipeline runs the generate action: resolve the spec file for a
// source selection, scaffold it, and synthesize a describe block for every
// selected method that the spec does not already cover.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/identity"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/insert"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/synth"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/syntax"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

// Span is a [Start, End) byte range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Selection is the explicit input of a run.
type Selection struct {
	// Path of the source file.
	Path string

	// Text is the full file text. Empty means read Path.
	Text string

	// Span selects Text[Start:End]. A zero span selects nothing.
	Span Span

	// Selected overrides Span with literal text, for callers that only
	// know a method or class name.
	Selected string
}

// Outcome is what happened to one method.
type Outcome string

const (
	OutcomeSkipped     Outcome = telemetry.OutcomeSkipped
	OutcomeInserted    Outcome = telemetry.OutcomeInserted
	OutcomeNoSynthesis Outcome = telemetry.OutcomeNoSynthesis
	OutcomeFailed      Outcome = telemetry.OutcomeFailed
)

// MethodResult reports a single method.
type MethodResult struct {
	Method   string        `json:"method"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
	Duration time.Duration `json:"-"`
	Err      error         `json:"-"`
}

// Report summarizes a run.
type Report struct {
	RunID      string         `json:"run_id"`
	SourcePath string         `json:"source_path"`
	TestPath   string         `json:"test_path"`
	Title      string         `json:"title"`
	Scaffolded bool           `json:"scaffolded"`
	Methods    []MethodResult `json:"methods"`
	Warnings   []string       `json:"warnings,omitempty"`
	Duration   time.Duration  `json:"-"`
}

// Count returns the number of methods with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, m := range r.Methods {
		if m.Outcome == o {
			n++
		}
	}
	return n
}

// Stats converts the report for a renderer.
func (r *Report) Stats() ui.CompletionStats {
	return ui.CompletionStats{
		Title:    "Specs generated",
		Files:    1,
		Inserted: r.Count(OutcomeInserted),
		Skipped:  r.Count(OutcomeSkipped),
		Failed:   r.Count(OutcomeFailed),
		Duration: r.Duration,
		Errors:   r.Count(OutcomeFailed),
		Warnings: len(r.Warnings) + r.Count(OutcomeNoSynthesis),
		Output:   r.TestPath,
	}
}

// Recorder stores outcomes. *telemetry.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, runs ...telemetry.Run) error
}

// Options wires a Pipeline.
type Options struct {
	Resolver    *identity.Resolver
	Matcher     *coverage.Matcher
	Synthesizer synth.Synthesizer
	Engine      *insert.Engine

	// Checker validates the spec after inserts. Nil skips the check.
	Checker *syntax.Checker

	// History records outcomes. Nil disables recording.
	History Recorder

	Renderer ui.Renderer
}

// Pipeline runs generate requests. Methods of one run are processed
// sequentially in declaration order.
type Pipeline struct {
	opts Options
}

// New creates a pipeline. Synthesizer is required.
func New(opts Options) *Pipeline {
	if opts.Resolver == nil {
		opts.Resolver = identity.Default
	}
	if opts.Matcher == nil {
		opts.Matcher = coverage.NewMatcher(extract.LastWins)
	}
	if opts.Engine == nil {
		opts.Engine = insert.NewEngine(insert.Options{})
	}
	if opts.Renderer == nil {
		opts.Renderer = ui.Discard
	}
	return &Pipeline{opts: opts}
}

// target is a method queued for synthesis.
type target struct {
	name string
	body string
	err  error
}

// Run generates specs for sel. Validation and resolution failures return an
// error before anything is written. Per-method failures are reported in the
// returned Report and never abort the run.
func (p *Pipeline) Run(ctx context.Context, sel Selection) (*Report, error) {
	start := time.Now()

	selected, text, err := p.validate(sel)
	if err != nil {
		return nil, err
	}

	testPath, err := p.opts.Resolver.ResolveTestPath(sel.Path)
	if err != nil {
		return nil, err
	}
	title, err := p.opts.Resolver.DeriveTitle(sel.Path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      telemetry.NewRunID(),
		SourcePath: sel.Path,
		TestPath:   testPath,
		Title:      title,
	}

	slog.Info("generate_started",
		slog.String("run_id", report.RunID),
		slog.String("source", sel.Path),
		slog.String("spec", testPath))

	created, err := p.opts.Engine.Scaffold(ctx, testPath, title)
	if err != nil {
		return report, err
	}
	report.Scaffolded = created

	targets := p.targets(selected, text)

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return p.finish(ctx, report, start), err
		}

		p.opts.Renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageSynthesizing,
			Current:     i,
			Total:       len(targets),
			CurrentFile: testPath,
			Message:     t.name,
		})

		res := p.process(ctx, testPath, t)
		report.Methods = append(report.Methods, res)

		if res.Err != nil {
			p.opts.Renderer.AddError(ui.ErrorEvent{
				File:   testPath,
				Err:    fmt.Errorf("%s: %w", t.name, res.Err),
				IsWarn: res.Outcome != OutcomeFailed,
			})
		}
	}

	p.opts.Renderer.UpdateProgress(ui.ProgressEvent{
		Stage:       ui.StageInserting,
		Current:     len(targets),
		Total:       len(targets),
		CurrentFile: testPath,
	})

	if report.Count(OutcomeInserted) > 0 {
		p.verify(ctx, report)
	}

	return p.finish(ctx, report, start), nil
}

// validate checks the selection without touching the file system beyond
// reading the source. It returns the trimmed selection and the file text.
func (p *Pipeline) validate(sel Selection) (string, string, error) {
	if strings.TrimSpace(sel.Path) == "" {
		return "", "", errors.ValidationError(errors.ErrCodeInvalidInput, "source path is required")
	}
	if strings.TrimSpace(sel.Selected) == "" && sel.Span.Start == sel.Span.End {
		return "", "", emptySelection()
	}

	text := sel.Text
	if text == "" {
		unit, err := identity.ReadSource(sel.Path)
		if err != nil {
			return "", "", err
		}
		text = unit.Text
	}

	selected := sel.Selected
	if selected == "" {
		if sel.Span.Start < 0 || sel.Span.End > len(text) || sel.Span.Start > sel.Span.End {
			return "", "", errors.ValidationError(errors.ErrCodeInvalidInput,
				fmt.Sprintf("span [%d, %d) is outside the file (%d bytes)", sel.Span.Start, sel.Span.End, len(text))).
				WithDetail("path", sel.Path)
		}
		selected = text[sel.Span.Start:sel.Span.End]
	}

	selected = strings.TrimSpace(selected)
	if selected == "" {
		return "", "", emptySelection()
	}

	if !extract.IsClassSelection(selected) {
		if _, ok := extract.MethodName(selected); !ok {
			return "", "", errors.ValidationError(errors.ErrCodeInvalidInput,
				fmt.Sprintf("selection %q is not a method or class", firstLine(selected))).
				WithSuggestion("Select a method name, a def line, or a class name")
		}
	}

	return selected, text, nil
}

// targets decides the methods of a run. A class selection covers every
// method in the selected text, or in the whole file when only the class
// name was selected.
func (p *Pipeline) targets(selected, text string) []target {
	if extract.IsClassSelection(selected) {
		records := extract.ExtractAll(selected)
		if len(records) == 0 {
			records = extract.ExtractAll(text)
		}
		targets := make([]target, 0, len(records))
		for _, r := range records {
			targets = append(targets, target{name: r.Name, body: r.Body})
		}
		return targets
	}

	name, _ := extract.MethodName(selected)
	body, err := extract.Extract(name, text)
	return []target{{name: name, body: body, err: err}}
}

// process runs one method through coverage, synthesis, and insertion.
func (p *Pipeline) process(ctx context.Context, testPath string, t target) MethodResult {
	start := time.Now()
	res := MethodResult{Method: t.name}
	done := func(outcome Outcome, err error) MethodResult {
		res.Outcome = outcome
		res.Err = err
		if err != nil {
			res.Error = err.Error()
			res.Code = errors.GetCode(err)
		}
		res.Duration = time.Since(start)
		return res
	}

	if t.err != nil {
		return done(OutcomeFailed, t.err)
	}

	// Re-read so blocks inserted earlier in this run count as coverage.
	artifact, err := insert.Load(testPath, p.opts.Matcher.Policy)
	if err != nil {
		return done(OutcomeFailed, err)
	}
	if p.opts.Matcher.IsCovered(artifact.Blocks, t.name) {
		slog.Info("spec_exists", slog.String("method", t.name), slog.String("spec", testPath))
		return done(OutcomeSkipped, nil)
	}

	block, ok, err := p.opts.Synthesizer.Synthesize(ctx, t.body)
	if err != nil {
		return done(OutcomeFailed, err)
	}
	if !ok {
		slog.Warn("no_synthesis", slog.String("method", t.name))
		return done(OutcomeNoSynthesis, nil)
	}

	p.opts.Renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageInserting, CurrentFile: testPath, Message: t.name})
	if err := p.opts.Engine.Insert(ctx, testPath, block); err != nil {
		return done(OutcomeFailed, err)
	}
	return done(OutcomeInserted, nil)
}

// verify parses the spec after inserts. Parse errors become warnings.
func (p *Pipeline) verify(ctx context.Context, report *Report) {
	if p.opts.Checker == nil {
		return
	}

	res, err := p.opts.Checker.CheckFile(ctx, report.TestPath)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("syntax check skipped: %v", err))
		return
	}
	for _, d := range res.Diagnostics {
		w := fmt.Sprintf("%s: %s", filepath.Base(report.TestPath), d)
		report.Warnings = append(report.Warnings, w)
		p.opts.Renderer.AddError(ui.ErrorEvent{File: report.TestPath, Err: fmt.Errorf("%s", d), IsWarn: true})
	}
	if !res.Valid {
		slog.Warn("spec_parse_errors",
			slog.String("spec", report.TestPath),
			slog.Int("diagnostics", len(res.Diagnostics)))
	}
}

// finish records history and stamps the duration.
func (p *Pipeline) finish(ctx context.Context, report *Report, start time.Time) *Report {
	report.Duration = time.Since(start)

	if p.opts.History != nil && len(report.Methods) > 0 {
		runs := make([]telemetry.Run, 0, len(report.Methods))
		for _, m := range report.Methods {
			runs = append(runs, telemetry.Run{
				RunID:      report.RunID,
				SourcePath: report.SourcePath,
				TestPath:   report.TestPath,
				Method:     m.Method,
				Outcome:    string(m.Outcome),
				DurationMS: m.Duration.Milliseconds(),
			})
		}
		// History must not fail a run that already wrote files.
		if err := p.opts.History.Record(context.WithoutCancel(ctx), runs...); err != nil {
			slog.Warn("history_record_failed", slog.String("error", err.Error()))
			report.Warnings = append(report.Warnings, fmt.Sprintf("history not recorded: %v", err))
		}
	}

	slog.Info("generate_completed",
		slog.String("run_id", report.RunID),
		slog.Int("inserted", report.Count(OutcomeInserted)),
		slog.Int("skipped", report.Count(OutcomeSkipped)),
		slog.Int("failed", report.Count(OutcomeFailed)),
		slog.Duration("elapsed", report.Duration))
	return report
}

func emptySelection() error {
	return errors.ValidationError(errors.ErrCodeEmptySelection, "no method or class selected").
		WithSuggestion("Select a method name, a def line, or a class name")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
