package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/config"
)

func TestConfigInit_WritesProjectDefaults(t *testing.T) {
	// Given: a project without a config file
	isolate(t, "")
	root := writeProject(t, nil)

	// When: config init runs
	out, err := run(t, "--config", root, "config", "init")
	require.NoError(t, err)

	// Then: .rspecgen.yaml holds the defaults
	assert.Contains(t, out, "Created configuration")
	data, err := os.ReadFile(filepath.Join(root, ".rspecgen.yaml"))
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, config.NewConfig().Synth.Endpoint, cfg.Synth.Endpoint)
	assert.Equal(t, "app", cfg.Paths.SourceDir)
}

func TestConfigInit_KeepsExistingWithoutForce(t *testing.T) {
	// Given: an existing project config
	isolate(t, "")
	root := writeProject(t, map[string]string{".rspecgen.yaml": "synth:\n  endpoint: http://gpu:9000/generate\n"})

	// When: init runs without and then with --force
	out, err := run(t, "--config", root, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	data, _ := os.ReadFile(filepath.Join(root, ".rspecgen.yaml"))
	assert.Contains(t, string(data), "gpu:9000")

	_, err = run(t, "--config", root, "config", "init", "--force")
	require.NoError(t, err)

	// Then: only --force replaced it
	data, _ = os.ReadFile(filepath.Join(root, ".rspecgen.yaml"))
	assert.NotContains(t, string(data), "gpu:9000")
}

func TestConfigInit_User(t *testing.T) {
	isolate(t, "")

	_, err := run(t, "config", "init", "--user")
	require.NoError(t, err)

	assert.FileExists(t, config.GetUserConfigPath())
}

func TestConfigShow_MergedAndEnv(t *testing.T) {
	// Given: a project config and an env override
	isolate(t, "http://env:7000/generate")
	root := writeProject(t, map[string]string{".rspecgen.yaml": "watch:\n  debounce: 1s\n"})

	// When: show --json runs
	out, err := run(t, "--config", root, "config", "show", "--json")
	require.NoError(t, err)

	// Then: both sources are merged
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "1s", cfg.Watch.Debounce)
	assert.Equal(t, "http://env:7000/generate", cfg.Synth.Endpoint)
}

func TestConfigShow_DefaultsYAML(t *testing.T) {
	isolate(t, "")

	out, err := run(t, "config", "show", "--source", "defaults")
	require.NoError(t, err)

	assert.Contains(t, out, "endpoint: http://127.0.0.1:5000/generate")
}

func TestConfigShow_UnknownSource(t *testing.T) {
	isolate(t, "")
	_, err := run(t, "config", "show", "--source", "user")
	assert.Error(t, err)
}

func TestConfigShow_InvalidProjectConfig(t *testing.T) {
	isolate(t, "")
	root := writeProject(t, map[string]string{".rspecgen.yaml": "synth:\n  timeout: soon\n"})

	_, err := run(t, "--config", root, "config", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "synth.timeout")
}
