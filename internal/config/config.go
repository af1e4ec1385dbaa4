// Package config loads rspecgen configuration.
//
// Precedence, lowest to highest:
//  1. Hardcoded defaults
//  2. User config ($XDG_CONFIG_HOME/rspecgen/config.yaml)
//  3. Project config (.rspecgen.yaml in the project root)
//  4. Environment variables (RSPECGEN_*)
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duplicate-block policies for the spec block index.
const (
	DuplicateLastWins  = "last_wins"
	DuplicateFirstWins = "first_wins"
)

// Scaffold policies for an existing spec file.
const (
	ScaffoldKeep      = "keep"
	ScaffoldOverwrite = "overwrite"
)

// Method boundary rules for the dataset builder.
const (
	BoundaryNextDef    = "next_def"
	BoundaryTerminator = "terminator"
)

// DefaultInstruction is the instruction field of every dataset entry.
const DefaultInstruction = "Write an RSpec test for the following Rails method, using described_class as the main test subject."

// Config is the complete rspecgen configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
	Synth     SynthConfig     `yaml:"synth" json:"synth"`
	Extract   ExtractConfig   `yaml:"extract" json:"extract"`
	Insert    InsertConfig    `yaml:"insert" json:"insert"`
	Dataset   DatasetConfig   `yaml:"dataset" json:"dataset"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// PathsConfig names the mirrored trees and the state directory.
type PathsConfig struct {
	// SourceDir is the source tree root segment.
	SourceDir string `yaml:"source_dir" json:"source_dir"`
	// SpecDir is the test tree root segment.
	SpecDir string `yaml:"spec_dir" json:"spec_dir"`
	// StateDir holds locks and history, relative to the project root.
	StateDir string `yaml:"state_dir" json:"state_dir"`
}

// SynthConfig configures the inference endpoint client.
type SynthConfig struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	HealthPath      string `yaml:"health_path" json:"health_path"`
	Timeout         string `yaml:"timeout" json:"timeout"`
	MaxRetries      int    `yaml:"max_retries" json:"max_retries"`
	BreakerFailures int    `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    string `yaml:"breaker_reset" json:"breaker_reset"`
	// CacheSize bounds the reply cache used by serve and watch.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// ExtractConfig configures the spec block index.
type ExtractConfig struct {
	DuplicatePolicy string `yaml:"duplicate_policy" json:"duplicate_policy"`
}

// InsertConfig configures spec file mutation.
type InsertConfig struct {
	ScaffoldPolicy string `yaml:"scaffold_policy" json:"scaffold_policy"`
	LockTimeout    string `yaml:"lock_timeout" json:"lock_timeout"`
}

// DatasetConfig configures training data export.
type DatasetConfig struct {
	// OutputDir receives datasets/dataset.json.
	OutputDir      string `yaml:"output_dir" json:"output_dir"`
	Instruction    string `yaml:"instruction" json:"instruction"`
	MethodBoundary string `yaml:"method_boundary" json:"method_boundary"`
}

// TelemetryConfig toggles the synthesis history database.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			SourceDir: "app",
			SpecDir:   "spec",
			StateDir:  ".rspecgen",
		},
		Synth: SynthConfig{
			Endpoint:        "http://127.0.0.1:5000/generate",
			HealthPath:      "/health",
			Timeout:         "120s", // local 7B models take a while per method
			MaxRetries:      0,
			BreakerFailures: 5,
			BreakerReset:    "30s",
			CacheSize:       256,
		},
		Extract: ExtractConfig{
			DuplicatePolicy: DuplicateLastWins,
		},
		Insert: InsertConfig{
			ScaffoldPolicy: ScaffoldKeep,
			LockTimeout:    "10s",
		},
		Dataset: DatasetConfig{
			OutputDir:      ".",
			Instruction:    DefaultInstruction,
			MethodBoundary: BoundaryNextDef,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetUserConfigPath returns the user config file path.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rspecgen", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "rspecgen", "config.yaml")
	}
	return filepath.Join(home, ".config", "rspecgen", "config.yaml")
}

// Load loads configuration for the project rooted at dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := ProjectConfigPath(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "".
// .rspecgen.yaml takes precedence over .rspecgen.yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".rspecgen.yaml", ".rspecgen.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// loadYAML decodes path over the current values; absent keys keep their value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies RSPECGEN_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RSPECGEN_ENDPOINT"); v != "" {
		c.Synth.Endpoint = v
	}
	if v := os.Getenv("RSPECGEN_TIMEOUT"); v != "" {
		c.Synth.Timeout = v
	}
	if v := os.Getenv("RSPECGEN_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Synth.MaxRetries = n
		}
	}
	if v := os.Getenv("RSPECGEN_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RSPECGEN_DATASET_DIR"); v != "" {
		c.Dataset.OutputDir = v
	}
	if v := os.Getenv("RSPECGEN_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Synth.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("synth.endpoint must be an http(s) URL, got %q", c.Synth.Endpoint)
	}
	if c.Synth.MaxRetries < 0 {
		return fmt.Errorf("synth.max_retries must be non-negative, got %d", c.Synth.MaxRetries)
	}
	if c.Synth.CacheSize < 0 {
		return fmt.Errorf("synth.cache_size must be non-negative, got %d", c.Synth.CacheSize)
	}

	for name, value := range map[string]string{
		"synth.timeout":       c.Synth.Timeout,
		"synth.breaker_reset": c.Synth.BreakerReset,
		"insert.lock_timeout": c.Insert.LockTimeout,
		"watch.debounce":      c.Watch.Debounce,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a duration like 30s, got %q", name, value)
		}
	}

	switch c.Extract.DuplicatePolicy {
	case DuplicateLastWins, DuplicateFirstWins:
	default:
		return fmt.Errorf("extract.duplicate_policy must be %q or %q, got %q",
			DuplicateLastWins, DuplicateFirstWins, c.Extract.DuplicatePolicy)
	}

	switch c.Insert.ScaffoldPolicy {
	case ScaffoldKeep, ScaffoldOverwrite:
	default:
		return fmt.Errorf("insert.scaffold_policy must be %q or %q, got %q",
			ScaffoldKeep, ScaffoldOverwrite, c.Insert.ScaffoldPolicy)
	}

	switch c.Dataset.MethodBoundary {
	case BoundaryNextDef, BoundaryTerminator:
	default:
		return fmt.Errorf("dataset.method_boundary must be %q or %q, got %q",
			BoundaryNextDef, BoundaryTerminator, c.Dataset.MethodBoundary)
	}

	if strings.TrimSpace(c.Paths.SourceDir) == "" || strings.TrimSpace(c.Paths.SpecDir) == "" {
		return fmt.Errorf("paths.source_dir and paths.spec_dir must be set")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}

	return nil
}

// SynthTimeout returns the per-request timeout.
func (c *Config) SynthTimeout() time.Duration {
	return mustDuration(c.Synth.Timeout)
}

// BreakerReset returns the circuit breaker reset timeout.
func (c *Config) BreakerReset() time.Duration {
	return mustDuration(c.Synth.BreakerReset)
}

// LockTimeout returns how long to wait for a spec file lock.
func (c *Config) LockTimeout() time.Duration {
	return mustDuration(c.Insert.LockTimeout)
}

// WatchDebounce returns the watch debounce window.
func (c *Config) WatchDebounce() time.Duration {
	return mustDuration(c.Watch.Debounce)
}

// StateDir resolves the state directory against root.
func (c *Config) StateDir(root string) string {
	if filepath.IsAbs(c.Paths.StateDir) {
		return c.Paths.StateDir
	}
	return filepath.Join(root, c.Paths.StateDir)
}

// DatasetPath returns the dataset output file.
func (c *Config) DatasetPath() string {
	return filepath.Join(c.Dataset.OutputDir, "datasets", "dataset.json")
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for .rspecgen.yaml, a
// Gemfile, or .git. It returns the absolute startDir if none is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	dir := absDir
	for {
		if ProjectConfigPath(dir) != "" ||
			fileExists(filepath.Join(dir, "Gemfile")) ||
			dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

// mustDuration parses a validated duration; invalid input yields zero.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
