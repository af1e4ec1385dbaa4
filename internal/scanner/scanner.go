package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Scanner walks a source tree. The zero value is ready to use.
type Scanner struct{}

// New creates a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Walk visits matching files in lexical order and stops at the first error
// returned by fn. Unreadable entries are skipped. The walk itself is
// sequential so callers can stop early on a count limit.
func (s *Scanner) Walk(ctx context.Context, opts *ScanOptions, fn func(*FileInfo) error) error {
	absRoot, absSource, err := resolveRoots(opts)
	if err != nil {
		return err
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".rb"}
	}

	found := 0
	return filepath.WalkDir(absSource, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			slog.Debug("scan_entry_skipped", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path != absSource && s.shouldExcludeDir(d.Name(), relPath, opts) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !hasExtension(path, exts) || matchesAnyPattern(d.Name(), relPath, opts.ExcludePatterns) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}

		found++
		if opts.ProgressFunc != nil {
			opts.ProgressFunc(found, relPath)
		}
		return fn(&FileInfo{
			Path:    relPath,
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	})
}

// Scan streams matching files in lexical order. The channel is closed when
// the walk completes; a walk error is sent as the last result.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if _, _, err := resolveRoots(opts); err != nil {
		return nil, err
	}

	results := make(chan ScanResult, 16)
	go func() {
		defer close(results)
		err := s.Walk(ctx, opts, func(f *FileInfo) error {
			select {
			case results <- ScanResult{File: f}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && err != context.Canceled {
			select {
			case results <- ScanResult{Error: err}:
			case <-ctx.Done():
			}
		}
	}()
	return results, nil
}

// Collect returns every matching file.
func (s *Scanner) Collect(ctx context.Context, opts *ScanOptions) ([]*FileInfo, error) {
	var files []*FileInfo
	err := s.Walk(ctx, opts, func(f *FileInfo) error {
		files = append(files, f)
		return nil
	})
	return files, err
}

func (s *Scanner) shouldExcludeDir(name, relPath string, opts *ScanOptions) bool {
	if defaultExcludeDirs[name] || strings.HasPrefix(name, ".") {
		return true
	}
	return matchesAnyPattern(name, relPath, opts.ExcludePatterns)
}

// resolveRoots validates opts and returns absolute root and source paths.
func resolveRoots(opts *ScanOptions) (string, string, error) {
	if opts == nil {
		return "", "", fmt.Errorf("scan options are required")
	}
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	sourceDir := opts.SourceDir
	if sourceDir == "" {
		sourceDir = "app"
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return "", "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	absSource := filepath.Join(absRoot, sourceDir)

	info, err := os.Stat(absSource)
	if err != nil {
		return "", "", fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("source path is not a directory: %s", absSource)
	}
	return absRoot, absSource, nil
}

func hasExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func matchesAnyPattern(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
		if ok, _ := filepath.Match(p, relPath); ok {
			return true
		}
	}
	return false
}
