// Package dataset harvests (method, spec block) pairs from a Rails project
// into an instruction-tuning dataset.
//
// For every app/**/*.rb file that has a mirrored spec, each method whose name
// is covered by a describe block becomes one Entry. The walk is sequential and
// stops as soon as the entry limit is reached.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/identity"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/insert"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/scanner"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

// DefaultInstruction is the task description attached to every entry.
const DefaultInstruction = "Write an RSpec test for the following Rails method, using described_class as the main test subject."

const textTemplate = "Below is an instruction that describes a task, paired with an input that provides further context. Write a response that appropriately completes the request.\n\n" +
	"### Instruction:\n%s\n\n" +
	"### Input:\n%s\n\n" +
	"### Response:\n%s\n"

// Entry is one training example.
type Entry struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Text        string `json:"text"`
}

// FileError records a file that could not be processed.
type FileError struct {
	Path string
	Err  error
}

// Result summarizes a build.
type Result struct {
	Entries       []Entry
	FilesScanned  int
	FilesWithSpec int
	Errors        []FileError
	LimitReached  bool
	Duration      time.Duration
}

// Options configures a Builder.
type Options struct {
	Resolver    *identity.Resolver
	Matcher     *coverage.Matcher
	Boundary    extract.Boundary
	Instruction string

	// Renderer receives progress events. Nil disables progress.
	Renderer ui.Renderer
}

// Builder walks a project and collects entries.
type Builder struct {
	opts    Options
	scanner *scanner.Scanner
}

// errLimit stops the walk once enough entries exist.
var errLimit = stderrors.New("dataset limit reached")

// NewBuilder creates a builder. Unset options use the Rails defaults.
func NewBuilder(opts Options) *Builder {
	if opts.Resolver == nil {
		opts.Resolver = identity.Default
	}
	if opts.Matcher == nil {
		opts.Matcher = coverage.NewMatcher(extract.LastWins)
	}
	if opts.Boundary == "" {
		opts.Boundary = extract.BoundaryNextDef
	}
	if opts.Instruction == "" {
		opts.Instruction = DefaultInstruction
	}
	return &Builder{opts: opts, scanner: scanner.New()}
}

// Build walks <root>/app. A limit <= 0 means no limit. Per-file failures are
// recorded in Result.Errors and the walk continues.
func (b *Builder) Build(ctx context.Context, root string, limit int) (*Result, error) {
	start := time.Now()
	res := &Result{Entries: []Entry{}}

	reached := func() bool { return limit > 0 && len(res.Entries) >= limit }

	err := b.scanner.Walk(ctx, &scanner.ScanOptions{
		RootDir:   root,
		SourceDir: b.opts.Resolver.SourceDir,
	}, func(f *scanner.FileInfo) error {
		res.FilesScanned++
		b.progress(ui.ProgressEvent{
			Stage:       ui.StageScanning,
			Current:     res.FilesScanned,
			CurrentFile: f.Path,
		})

		if err := b.harvest(root, f, res, reached); err != nil {
			if err == errLimit {
				return err
			}
			res.Errors = append(res.Errors, FileError{Path: f.Path, Err: err})
			b.warn(f.Path, err)
		}
		if reached() {
			return errLimit
		}
		return nil
	})

	res.Duration = time.Since(start)
	if err == errLimit {
		res.LimitReached = true
		err = nil
	}
	if err != nil {
		return res, errors.IOError(errors.ErrCodeReadFailed,
			fmt.Sprintf("failed to walk %s", root), err).WithDetail("root", root)
	}

	slog.Info("dataset_built",
		slog.Int("entries", len(res.Entries)),
		slog.Int("files_scanned", res.FilesScanned),
		slog.Int("files_with_spec", res.FilesWithSpec),
		slog.Int("errors", len(res.Errors)),
		slog.Bool("limit_reached", res.LimitReached))
	return res, nil
}

// harvest adds the entries of one source file. It returns errLimit when the
// limit is reached mid-file.
func (b *Builder) harvest(root string, f *scanner.FileInfo, res *Result, reached func() bool) error {
	rel, err := b.opts.Resolver.ResolveTestPath(f.Path)
	if err != nil {
		return err
	}
	specPath := filepath.Join(root, rel)

	specData, err := os.ReadFile(specPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.IOError(errors.ErrCodeReadFailed, fmt.Sprintf("failed to read %s", specPath), err)
	}
	res.FilesWithSpec++

	src, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return errors.IOError(errors.ErrCodeReadFailed, fmt.Sprintf("failed to read %s", f.AbsPath), err)
	}

	b.progress(ui.ProgressEvent{Stage: ui.StageExtracting, Current: res.FilesScanned, CurrentFile: f.Path})

	idx := b.opts.Matcher.Index(string(specData))
	for _, m := range extract.ExtractWith(b.opts.Boundary, string(src)) {
		block, ok := b.opts.Matcher.Lookup(idx, m.Name)
		if !ok {
			continue
		}
		res.Entries = append(res.Entries, NewEntry(b.opts.Instruction, m.Body, block.Text))
		slog.Debug("dataset_entry",
			slog.String("file", f.Path),
			slog.String("method", m.Name),
			slog.Int("count", len(res.Entries)))
		if reached() {
			return errLimit
		}
	}
	return nil
}

func (b *Builder) progress(ev ui.ProgressEvent) {
	if b.opts.Renderer != nil {
		b.opts.Renderer.UpdateProgress(ev)
	}
}

func (b *Builder) warn(path string, err error) {
	slog.Warn("dataset_file_skipped", slog.String("file", path), slog.String("error", err.Error()))
	if b.opts.Renderer != nil {
		b.opts.Renderer.AddError(ui.ErrorEvent{File: path, Err: err, IsWarn: true})
	}
}

// NewEntry composes an entry and its prompt text.
func NewEntry(instruction, input, output string) Entry {
	return Entry{
		Instruction: instruction,
		Input:       input,
		Output:      output,
		Text:        ComposeText(instruction, input, output),
	}
}

// ComposeText renders the four-section training prompt.
func ComposeText(instruction, input, output string) string {
	return fmt.Sprintf(textTemplate, instruction, input, output)
}

// Write stores entries as a pretty-printed JSON array at path, creating the
// directory when needed.
func Write(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.IOError(errors.ErrCodeWriteFailed, "failed to create dataset directory", err).
			WithDetail("path", path)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return errors.InternalError("failed to encode dataset", err)
	}
	return insert.WriteAtomic(path, buf.Bytes(), 0644)
}

// Read loads a dataset written by Write.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeReadFailed, fmt.Sprintf("failed to read %s", path), err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.IOError(errors.ErrCodeReadFailed, fmt.Sprintf("failed to decode %s", path), err)
	}
	return entries, nil
}

// ParseLimit parses a user-supplied limit. Non-numeric input is rejected;
// zero and negative values mean no limit.
func ParseLimit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.ValidationError(errors.ErrCodeInvalidLimit,
			fmt.Sprintf("limit must be a number, got %q", s)).
			WithSuggestion("Pass a whole number such as --limit 100")
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
