package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/config"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/dataset"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/identity"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/insert"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/pipeline"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/synth"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/syntax"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

// app holds the components every command builds from one config.
type app struct {
	root     string
	cfg      *config.Config
	resolver *identity.Resolver
	matcher  *coverage.Matcher
	client   *synth.Client
	synth    synth.Synthesizer
	engine   *insert.Engine
	checker  *syntax.Checker
	history  *telemetry.Store
}

// projectRoot picks the project directory: --config wins, then the nearest
// ancestor of start holding a project marker, then start itself.
func projectRoot(start string) (string, error) {
	if configDir != "" {
		return filepath.Abs(configDir)
	}
	if start == "" {
		start = "."
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return config.FindProjectRoot(abs)
}

// loadApp loads configuration for the project containing start and wires
// the shared components. withHistory opens the telemetry store when the
// config enables it.
func loadApp(start string, withHistory bool) (*app, error) {
	root, err := projectRoot(start)
	if err != nil {
		return nil, err
	}
	return newApp(root, withHistory)
}

// newApp wires the components for the project rooted at root.
func newApp(root string, withHistory bool) (*app, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	client := synth.NewClient(synth.ConfigFrom(cfg))
	var s synth.Synthesizer = client
	if cfg.Synth.CacheSize > 0 {
		s = synth.NewCachedSynthesizer(client, cfg.Synth.CacheSize)
	}

	stateDir := cfg.StateDir(root)
	a := &app{
		root:     root,
		cfg:      cfg,
		resolver: identity.New(cfg.Paths.SourceDir, cfg.Paths.SpecDir),
		matcher:  coverage.NewMatcher(extract.Policy(cfg.Extract.DuplicatePolicy)),
		client:   client,
		synth:    s,
		engine: insert.NewEngine(insert.Options{
			LockDir:        filepath.Join(stateDir, "locks"),
			LockTimeout:    cfg.LockTimeout(),
			ScaffoldPolicy: insert.ScaffoldPolicy(cfg.Insert.ScaffoldPolicy),
		}),
		checker: syntax.NewChecker(),
	}

	if withHistory && cfg.Telemetry.Enabled {
		store, err := telemetry.Open(filepath.Join(stateDir, telemetry.FileName))
		if err != nil {
			// runs continue without history
			slog.Warn("history_unavailable", slog.String("error", err.Error()))
		} else {
			a.history = store
		}
	}

	slog.Debug("app_loaded",
		slog.String("root", root),
		slog.String("endpoint", cfg.Synth.Endpoint),
		slog.Bool("history", a.history != nil))
	return a, nil
}

// renderer returns the progress display for out.
func (a *app) renderer(out io.Writer) ui.Renderer {
	return ui.NewRenderer(ui.NewConfig(out,
		ui.WithForcePlain(noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithProjectDir(a.root),
	))
}

// pipeline wires the generate pipeline.
func (a *app) pipeline(r ui.Renderer) *pipeline.Pipeline {
	opts := pipeline.Options{
		Resolver:    a.resolver,
		Matcher:     a.matcher,
		Synthesizer: a.synth,
		Engine:      a.engine,
		Checker:     a.checker,
		Renderer:    r,
	}
	if a.history != nil {
		opts.History = a.history
	}
	return pipeline.New(opts)
}

// builder wires the dataset builder.
func (a *app) builder(r ui.Renderer) *dataset.Builder {
	return dataset.NewBuilder(dataset.Options{
		Resolver:    a.resolver,
		Matcher:     a.matcher,
		Boundary:    extract.Boundary(a.cfg.Dataset.MethodBoundary),
		Instruction: a.cfg.Dataset.Instruction,
		Renderer:    r,
	})
}

// datasetPath resolves the dataset file, honoring an --out override.
func (a *app) datasetPath(outDir string) string {
	rel := a.cfg.DatasetPath()
	if outDir != "" {
		rel = filepath.Join(outDir, "datasets", "dataset.json")
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(a.root, rel)
}

// Close releases the history store and the HTTP client.
func (a *app) Close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
}
