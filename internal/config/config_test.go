package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-iswarya/RspecGeneratorPublic/configs"
)

// isolate points the user config at an empty temp dir and clears env overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"RSPECGEN_ENDPOINT", "RSPECGEN_TIMEOUT", "RSPECGEN_MAX_RETRIES",
		"RSPECGEN_LOG_LEVEL", "RSPECGEN_DATASET_DIR", "RSPECGEN_TELEMETRY",
	} {
		t.Setenv(k, "")
	}
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "app", cfg.Paths.SourceDir)
	assert.Equal(t, "spec", cfg.Paths.SpecDir)
	assert.Equal(t, ".rspecgen", cfg.Paths.StateDir)
	assert.Equal(t, "http://127.0.0.1:5000/generate", cfg.Synth.Endpoint)
	assert.Equal(t, 0, cfg.Synth.MaxRetries)
	assert.Equal(t, DuplicateLastWins, cfg.Extract.DuplicatePolicy)
	assert.Equal(t, ScaffoldKeep, cfg.Insert.ScaffoldPolicy)
	assert.Equal(t, BoundaryNextDef, cfg.Dataset.MethodBoundary)
	assert.Equal(t, DefaultInstruction, cfg.Dataset.Instruction)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFiles_UsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	// Given: a project config that sets a few keys
	isolate(t)
	dir := t.TempDir()
	yaml := `
synth:
  endpoint: http://gpu-box:8000/generate
  max_retries: 2
extract:
  duplicate_policy: first_wins
telemetry:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yaml"), []byte(yaml), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: set keys change and untouched keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:8000/generate", cfg.Synth.Endpoint)
	assert.Equal(t, 2, cfg.Synth.MaxRetries)
	assert.Equal(t, DuplicateFirstWins, cfg.Extract.DuplicatePolicy)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "120s", cfg.Synth.Timeout)
	assert.Equal(t, ScaffoldKeep, cfg.Insert.ScaffoldPolicy)
}

func TestLoad_YAMLTakesPrecedenceOverYML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yml"), []byte("log:\n  level: error\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yaml"), []byte("log:\n  level: warn\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_UserConfigThenProject(t *testing.T) {
	isolate(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "rspecgen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "rspecgen", "config.yaml"),
		[]byte("synth:\n  timeout: 5s\n  max_retries: 1\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yaml"),
		[]byte("synth:\n  max_retries: 3\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.SynthTimeout())
	assert.Equal(t, 3, cfg.Synth.MaxRetries)
}

func TestLoad_EnvOverridesEverything(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yaml"),
		[]byte("synth:\n  endpoint: http://file:1/generate\n"), 0o644))

	t.Setenv("RSPECGEN_ENDPOINT", "http://env:2/generate")
	t.Setenv("RSPECGEN_MAX_RETRIES", "4")
	t.Setenv("RSPECGEN_TELEMETRY", "0")
	t.Setenv("RSPECGEN_DATASET_DIR", "/tmp/out")
	t.Setenv("RSPECGEN_LOG_LEVEL", "debug")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "http://env:2/generate", cfg.Synth.Endpoint)
	assert.Equal(t, 4, cfg.Synth.MaxRetries)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, filepath.Join("/tmp/out", "datasets", "dataset.json"), cfg.DatasetPath())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yaml"), []byte("synth: [unclosed"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad endpoint", func(c *Config) { c.Synth.Endpoint = "localhost:5000" }, "synth.endpoint"},
		{"negative retries", func(c *Config) { c.Synth.MaxRetries = -1 }, "max_retries"},
		{"bad timeout", func(c *Config) { c.Synth.Timeout = "soon" }, "synth.timeout"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "x" }, "watch.debounce"},
		{"bad duplicate policy", func(c *Config) { c.Extract.DuplicatePolicy = "merge" }, "duplicate_policy"},
		{"bad scaffold policy", func(c *Config) { c.Insert.ScaffoldPolicy = "append" }, "scaffold_policy"},
		{"bad boundary", func(c *Config) { c.Dataset.MethodBoundary = "ast" }, "method_boundary"},
		{"empty spec dir", func(c *Config) { c.Paths.SpecDir = "" }, "spec_dir"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStateDir(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, filepath.Join("/proj", ".rspecgen"), cfg.StateDir("/proj"))

	cfg.Paths.StateDir = "/var/lib/rspecgen"
	assert.Equal(t, "/var/lib/rspecgen", cfg.StateDir("/proj"))
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Synth.MaxRetries = 7

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".rspecgen.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Synth.MaxRetries)
}

func TestTemplate_MatchesDefaults(t *testing.T) {
	// Given: the template written by config init
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rspecgen.yaml"), []byte(configs.Template), 0o644))

	// When: it is loaded
	loaded, err := Load(dir)

	// Then: nothing differs from the defaults
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), loaded)
}

func TestFindProjectRoot(t *testing.T) {
	// Given: a Rails-like tree with a Gemfile at the top
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Gemfile"), []byte("source 'https://rubygems.org'\n"), 0o644))
	nested := filepath.Join(root, "app", "services")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	// When: searching from a nested directory
	found, err := FindProjectRoot(nested)

	// Then: the Gemfile directory is the root
	require.NoError(t, err)
	assert.Equal(t, root, found)
}
