package mcp

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	applicationModule = regexp.MustCompile(`^module\s+([A-Z]\w*)`)
	lockedRails       = regexp.MustCompile(`^\s{4}rails \(([^)]+)\)`)
)

// ProjectDetector detects project metadata from common Ruby files.
type ProjectDetector struct {
	rootPath string
	logger   *slog.Logger
}

// NewProjectDetector creates a new project detector.
func NewProjectDetector(rootPath string, logger *slog.Logger) *ProjectDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectDetector{
		rootPath: rootPath,
		logger:   logger,
	}
}

// Detect returns project information detected from the project directory.
// Detection order: config/application.rb -> Gemfile -> directory name.
func (d *ProjectDetector) Detect() *ProjectInfo {
	info := &ProjectInfo{
		RootPath: d.rootPath,
		Name:     filepath.Base(d.rootPath),
		Type:     "unknown",
	}

	if name := d.detectApplication(); name != "" {
		info.Name = name
		info.Type = "rails"
		info.RailsVersion = d.detectRailsVersion()
		return info
	}

	if _, err := os.Stat(filepath.Join(d.rootPath, "Gemfile")); err == nil {
		info.Type = "ruby"
		info.RailsVersion = d.detectRailsVersion()
		if info.RailsVersion != "" {
			info.Type = "rails"
		}
	}

	return info
}

// detectApplication returns the application module declared in
// config/application.rb.
func (d *ProjectDetector) detectApplication() string {
	return d.firstMatch(filepath.Join(d.rootPath, "config", "application.rb"), applicationModule)
}

// detectRailsVersion reads the locked rails gem version from Gemfile.lock.
func (d *ProjectDetector) detectRailsVersion() string {
	return d.firstMatch(filepath.Join(d.rootPath, "Gemfile.lock"), lockedRails)
}

func (d *ProjectDetector) firstMatch(path string, re *regexp.Regexp) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := re.FindStringSubmatch(line); len(m) > 1 {
			return m[1]
		}
	}
	if err := scanner.Err(); err != nil {
		d.logger.Debug("project_detect_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
	return ""
}
