package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps file extensions found in a Rails project to MIME types.
var mimeTypes = map[string]string{
	".rb":   "text/x-ruby",
	".rake": "text/x-ruby",
	".ru":   "text/x-ruby",
	".erb":  "text/x-erb",

	".json":  "application/json",
	".jsonl": "application/jsonl",
	".yaml":  "text/x-yaml",
	".yml":   "text/x-yaml",

	".md":  "text/markdown",
	".txt": "text/plain",
}

// specialFilenames maps specific filenames to MIME types.
var specialFilenames = map[string]string{
	"Gemfile":      "text/x-ruby",
	"Gemfile.lock": "text/plain",
	"Rakefile":     "text/x-ruby",
	"Guardfile":    "text/x-ruby",
	".rspec":       "text/plain",
}

// MimeTypeForPath returns the MIME type for a file path.
// It checks special filenames first, then the extension.
// Returns "text/plain" for unknown types.
func MimeTypeForPath(path string) string {
	base := filepath.Base(path)
	if mime, ok := specialFilenames[base]; ok {
		return mime
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "text/plain"
}
