// Package ui provides terminal progress and status display for rspecgen.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is one step of a generate or dataset run.
type Stage int

const (
	// StageScanning walks the source tree.
	StageScanning Stage = iota
	// StageExtracting pulls method bodies and describe blocks.
	StageExtracting
	// StageSynthesizing waits on the inference endpoint.
	StageSynthesizing
	// StageInserting splices blocks into spec files.
	StageInserting
	// StageWriting persists the dataset or artifact.
	StageWriting
	// StageComplete indicates the run has finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageExtracting:
		return "Extracting"
	case StageSynthesizing:
		return "Synthesizing"
	case StageInserting:
		return "Inserting"
	case StageWriting:
		return "Writing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageExtracting:
		return "EXTRACT"
	case StageSynthesizing:
		return "SYNTH"
	case StageInserting:
		return "INSERT"
	case StageWriting:
		return "WRITE"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished run. Dataset runs fill Entries,
// generate runs fill the per-outcome counters.
type CompletionStats struct {
	Title    string
	Files    int
	Entries  int
	Inserted int
	Skipped  int
	Failed   int
	Duration time.Duration
	Errors   int
	Warnings int
	Output   string // file written, if any
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	ProjectDir string // shown in the TUI header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithProjectDir sets the project directory path to display in header.
func WithProjectDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ProjectDir = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes, or --no-tui.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Discard is a Renderer that drops everything.
var Discard Renderer = discard{}

type discard struct{}

func (discard) Start(context.Context) error  { return nil }
func (discard) UpdateProgress(ProgressEvent) {}
func (discard) AddError(ErrorEvent)          {}
func (discard) Complete(CompletionStats)     {}
func (discard) Stop() error                  { return nil }

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
