// Package insert scaffolds spec files and splices new describe blocks into
// them without disturbing existing content.
package insert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/extract"
)

// Preamble is the first line of every scaffolded spec.
const Preamble = "require 'rails_helper'"

// ScaffoldPolicy decides what Scaffold does with an existing spec file.
type ScaffoldPolicy string

const (
	// ScaffoldKeep leaves an existing spec untouched.
	ScaffoldKeep ScaffoldPolicy = "keep"
	// ScaffoldOverwrite rewrites an existing spec with a fresh scaffold.
	ScaffoldOverwrite ScaffoldPolicy = "overwrite"
)

// DefaultLockTimeout bounds how long a writer waits for another writer.
const DefaultLockTimeout = 10 * time.Second

// Options configures an Engine.
type Options struct {
	// LockDir holds per-artifact lock files. Empty disables locking.
	LockDir string

	// LockTimeout bounds the wait for a lock.
	LockTimeout time.Duration

	// ScaffoldPolicy defaults to ScaffoldKeep.
	ScaffoldPolicy ScaffoldPolicy
}

// Engine writes spec files.
type Engine struct {
	opts Options
}

// Artifact is a spec file loaded for inspection.
type Artifact struct {
	Path   string
	Text   string
	Blocks *extract.BlockIndex
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.ScaffoldPolicy == "" {
		opts.ScaffoldPolicy = ScaffoldKeep
	}
	return &Engine{opts: opts}
}

// ScaffoldContent returns the minimal spec for header.
func ScaffoldContent(header string) string {
	return Preamble + "\n\n" + strings.TrimRight(header, "\n") + "\nend\n"
}

// Scaffold creates testPath with a minimal spec when it does not exist.
// created is false when an existing file was kept.
func (e *Engine) Scaffold(ctx context.Context, testPath, header string) (created bool, err error) {
	if keep, err := e.keepExisting(testPath); keep || err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(testPath), 0755); err != nil {
		return false, ioError(errors.ErrCodeWriteFailed, "failed to create spec directory", testPath, err)
	}

	unlock, err := e.lock(ctx, testPath)
	if err != nil {
		return false, err
	}
	defer unlock()

	// Another writer may have created the file while we waited.
	if keep, err := e.keepExisting(testPath); keep || err != nil {
		return false, err
	}

	if err := WriteAtomic(testPath, []byte(ScaffoldContent(header)), 0644); err != nil {
		return false, err
	}
	slog.Info("spec_scaffolded", slog.String("path", testPath))
	return true, nil
}

// keepExisting reports whether testPath exists and the scaffold policy
// keeps existing files.
func (e *Engine) keepExisting(testPath string) (bool, error) {
	_, err := os.Stat(testPath)
	switch {
	case err == nil:
		return e.opts.ScaffoldPolicy != ScaffoldOverwrite, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, ioError(errors.ErrCodeReadFailed, "failed to stat spec file", testPath, err)
	}
}

// Insert splices block immediately before the final end of testPath. The
// file must already exist.
func (e *Engine) Insert(ctx context.Context, testPath, block string) error {
	unlock, err := e.lock(ctx, testPath)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := os.ReadFile(testPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ioError(errors.ErrCodeFileNotFound, "spec file not found", testPath, err).
				WithSuggestion("Scaffold the spec file before inserting blocks")
		}
		return ioError(errors.ErrCodeReadFailed, "failed to read spec file", testPath, err)
	}

	updated, err := Splice(string(data), block)
	if err != nil {
		if xe, ok := errors.As(err); ok {
			xe.WithDetail("path", testPath)
		}
		return err
	}

	info, statErr := os.Stat(testPath)
	perm := os.FileMode(0644)
	if statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := WriteAtomic(testPath, []byte(updated), perm); err != nil {
		return err
	}

	slog.Info("spec_inserted",
		slog.String("path", testPath),
		slog.Int("block_bytes", len(block)))
	return nil
}

// Splice inserts block before the final end token of text and re-appends
// the end. Everything before that token is kept byte for byte.
func Splice(text, block string) (string, error) {
	trimmed := strings.TrimRight(text, " \t\r\n")
	if !strings.HasSuffix(trimmed, "end") {
		return "", errors.ValidationError(errors.ErrCodeNoClosingEnd,
			"spec file does not end with a closing end").
			WithSuggestion("Restore the outer RSpec.describe ... end block")
	}
	cut := len(trimmed) - len("end")
	if cut > 0 && isWordByte(trimmed[cut-1]) {
		return "", errors.ValidationError(errors.ErrCodeNoClosingEnd,
			"spec file does not end with a closing end")
	}
	return text[:cut] + block + "\nend\n", nil
}

// Load reads testPath and indexes its describe blocks.
func Load(testPath string, policy extract.Policy) (*Artifact, error) {
	data, err := os.ReadFile(testPath)
	if err != nil {
		code := errors.ErrCodeReadFailed
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		} else if os.IsPermission(err) {
			code = errors.ErrCodeFilePermission
		}
		return nil, ioError(code, "failed to read spec file", testPath, err)
	}
	text := string(data)
	return &Artifact{Path: testPath, Text: text, Blocks: extract.Index(text, policy)}, nil
}

// WriteAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a partial file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		_ = os.Remove(tmpPath)
		return ioError(writeCode(err), "failed to write file", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return ioError(writeCode(err), "failed to replace file", path, err)
	}
	return nil
}

func (e *Engine) lock(ctx context.Context, testPath string) (func(), error) {
	if e.opts.LockDir == "" {
		return func() {}, nil
	}
	l := NewArtifactLock(e.opts.LockDir, testPath)
	if err := l.Lock(ctx, e.opts.LockTimeout); err != nil {
		return nil, err
	}
	return func() {
		if err := l.Unlock(); err != nil {
			slog.Warn("lock_release_failed", slog.String("lock", l.Path()), slog.String("error", err.Error()))
		}
	}, nil
}

func ioError(code, msg, path string, cause error) *errors.Error {
	return errors.IOError(code, fmt.Sprintf("%s: %s", msg, path), cause).WithDetail("path", path)
}

func writeCode(err error) string {
	if os.IsPermission(err) {
		return errors.ErrCodeFilePermission
	}
	return errors.ErrCodeWriteFailed
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
