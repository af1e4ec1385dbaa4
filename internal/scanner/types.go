// Package scanner discovers Ruby source files under a Rails project's app/
// directory in a stable lexical order.
package scanner

import (
	"time"
)

// FileInfo describes a discovered source file.
type FileInfo struct {
	Path    string    // relative to the project root, slash-separated
	AbsPath string    // absolute path
	Size    int64     // bytes
	ModTime time.Time // last modification
}

// ScanOptions configures a walk.
type ScanOptions struct {
	// RootDir is the project root. Empty means ".".
	RootDir string

	// SourceDir is the tree below RootDir to walk. Empty means "app".
	SourceDir string

	// Extensions selects files by suffix. Empty means .rb only.
	Extensions []string

	// ExcludePatterns are filepath.Match patterns checked against both the
	// base name and the root-relative path.
	ExcludePatterns []string

	// MaxFileSize skips larger files. Zero uses DefaultMaxFileSize.
	MaxFileSize int64

	// ProgressFunc is called after each discovered file.
	ProgressFunc func(found int, path string)
}

// ScanResult is sent on the Scan channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (2MB).
const DefaultMaxFileSize = 2 * 1024 * 1024

// defaultExcludeDirs are never descended into.
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"tmp":          true,
	"vendor":       true,
}
