package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/scanner"
)

// MaxResourceSize is the maximum file size for resources (1MB).
const MaxResourceSize = 1024 * 1024

// HistoryURI is the URI of the generation history resource.
const HistoryURI = "rspecgen://history"

// historyLimit bounds the runs returned by the history resource.
const historyLimit = 50

// RegisterResources registers every spec file under the spec tree as an MCP
// resource. A project without a spec tree registers nothing.
func (s *Server) RegisterResources(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	specDir := filepath.Join(s.rootPath, s.resolver.SpecDir)
	if _, err := os.Stat(specDir); os.IsNotExist(err) {
		return 0, nil
	}

	files, err := scanner.New().Collect(ctx, &scanner.ScanOptions{
		RootDir:     s.rootPath,
		SourceDir:   s.resolver.SpecDir,
		Extensions:  []string{"_spec.rb"},
		MaxFileSize: MaxResourceSize,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list spec files: %w", err)
	}

	for _, f := range files {
		s.registerFileResource(f)
	}

	s.logger.Info("mcp_resources_registered", "count", len(files))
	return len(files), nil
}

// registerFileResource registers a single file as an MCP resource.
func (s *Server) registerFileResource(f *scanner.FileInfo) {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        filepath.Base(f.Path),
			URI:         "file://" + f.Path,
			Description: fmt.Sprintf("%s (%s)", f.Path, humanSize(f.Size)),
			MIMEType:    MimeTypeForPath(f.Path),
		},
		s.makeFileHandler(f.Path),
	)
}

// makeFileHandler creates a read handler for a specific file path.
func (s *Server) makeFileHandler(path string) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.handleReadResource(ctx, path)
	}
}

// handleReadResource reads a root-relative file with path validation.
func (s *Server) handleReadResource(_ context.Context, relativePath string) (*mcp.ReadResourceResult, error) {
	if !s.isValidPath(relativePath) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid path: %s", relativePath))
	}

	fullPath := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MCPError{
				Code:    ErrCodeFileNotFound,
				Message: fmt.Sprintf("file not found: %s", relativePath),
			}
		}
		return nil, MapError(err)
	}

	if info.Size() > MaxResourceSize {
		return nil, &MCPError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), MaxResourceSize),
		}
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      "file://" + relativePath,
				MIMEType: MimeTypeForPath(relativePath),
				Text:     string(content),
			},
		},
	}, nil
}

// isValidPath validates that a path is safe to access.
// Returns false for path traversal attempts or absolute paths.
func (s *Server) isValidPath(path string) bool {
	if path == "" {
		return false
	}

	if filepath.IsAbs(path) {
		return false
	}

	// Windows drive letters
	if len(path) >= 2 && path[1] == ':' {
		return false
	}

	cleaned := filepath.ToSlash(filepath.Clean(path))
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// registerHistoryResource registers the generation history resource.
func (s *Server) registerHistoryResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "history",
			URI:         HistoryURI,
			Description: "Recent generate outcomes, newest first",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.readHistory(ctx)
		},
	)
}

func (s *Server) readHistory(ctx context.Context) (*mcp.ReadResourceResult, error) {
	if s.history == nil {
		return nil, NewResourceNotFoundError(HistoryURI)
	}

	runs, err := s.history.Recent(ctx, historyLimit)
	if err != nil {
		return nil, MapError(err)
	}

	content, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      HistoryURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
