package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/identity"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/pipeline"
)

// Generator runs the generate pipeline for one selection.
type Generator interface {
	Run(ctx context.Context, sel pipeline.Selection) (*pipeline.Report, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Root is the project directory to watch.
	Root string

	Resolver *identity.Resolver
	Matcher  *coverage.Matcher

	// Generator is called for each uncovered method when Generate is set.
	Generator Generator
	Generate  bool

	// Watcher overrides the fsnotify watcher.
	Watcher Watcher
	Options Options

	OnReport       func(*coverage.Report)
	OnGenerate     func(*pipeline.Report)
	OnConfigChange func(path string)
}

// Service turns file events into coverage reports.
type Service struct {
	opts ServiceOptions
}

// NewService creates a service. Nil resolver and matcher use the Rails
// defaults.
func NewService(opts ServiceOptions) *Service {
	if opts.Resolver == nil {
		opts.Resolver = identity.Default
	}
	if opts.Matcher == nil {
		opts.Matcher = coverage.NewMatcher(extract.LastWins)
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Service{opts: opts}
}

// Run watches until ctx is cancelled. Cancellation is not an error.
func (s *Service) Run(ctx context.Context) error {
	w := s.opts.Watcher
	if w == nil {
		fsw, err := NewFSWatcher(s.opts.Options)
		if err != nil {
			return err
		}
		w = fsw
	}
	defer func() { _ = w.Stop() }()

	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Start(gctx, root)
	})

	g.Go(func() error {
		events, errs := w.Events(), w.Errors()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case batch, ok := <-events:
				if !ok {
					return nil
				}
				s.HandleBatch(gctx, root, batch)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				slog.Warn("watch_error", slog.String("error", err.Error()))
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// HandleBatch inspects every source file touched by batch once. Spec file
// changes re-inspect the source they mirror.
func (s *Service) HandleBatch(ctx context.Context, root string, batch []FileEvent) {
	seen := make(map[string]bool)

	for _, ev := range batch {
		if ctx.Err() != nil {
			return
		}

		abs := filepath.Join(root, filepath.FromSlash(ev.Path))

		if ev.Operation == OpConfigChange {
			slog.Info("config_changed", slog.String("path", abs))
			if s.opts.OnConfigChange != nil {
				s.opts.OnConfigChange(abs)
			}
			continue
		}
		if ev.Operation == OpDelete || ev.Operation == OpRename {
			continue
		}

		source, ok := s.sourceFor(abs)
		if !ok || seen[source] {
			continue
		}
		seen[source] = true

		s.inspect(ctx, source)
	}
}

func (s *Service) sourceFor(path string) (string, bool) {
	if strings.HasSuffix(path, "_spec.rb") {
		src, err := s.opts.Resolver.ResolveSourcePath(path)
		if err != nil {
			return "", false
		}
		if _, err := os.Stat(src); err != nil {
			return "", false
		}
		path = src
	}
	if identity.Classify(path) == identity.KindNone {
		return "", false
	}
	if _, ok := s.opts.Resolver.Relative(path); !ok {
		return "", false
	}
	return path, true
}

func (s *Service) inspect(ctx context.Context, source string) {
	report, err := s.opts.Matcher.Inspect(s.opts.Resolver, source)
	if err != nil {
		slog.Warn("watch_inspect_failed",
			slog.String("path", source),
			slog.String("error", err.Error()))
		return
	}

	slog.Debug("watch_coverage",
		slog.String("path", source),
		slog.Int("covered", len(report.Covered)),
		slog.Int("uncovered", len(report.Uncovered)))

	if s.opts.OnReport != nil {
		s.opts.OnReport(report)
	}

	if !s.opts.Generate || s.opts.Generator == nil {
		return
	}
	for _, name := range report.Uncovered {
		if ctx.Err() != nil {
			return
		}
		result, err := s.opts.Generator.Run(ctx, pipeline.Selection{Path: source, Selected: name})
		if err != nil {
			slog.Warn("watch_generate_failed",
				slog.String("path", source),
				slog.String("method", name),
				slog.String("error", err.Error()))
			continue
		}
		if s.opts.OnGenerate != nil {
			s.opts.OnGenerate(result)
		}
	}
}
