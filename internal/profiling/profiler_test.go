package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSession_WritesAllProfiles(t *testing.T) {
	// Given: all three outputs requested
	dir := t.TempDir()
	opts := Options{
		CPUPath:   filepath.Join(dir, "cpu.prof"),
		HeapPath:  filepath.Join(dir, "heap.prof"),
		TracePath: filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	// When: a session runs some work and stops
	s, err := Start(opts)
	require.NoError(t, err)
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum
	require.NoError(t, s.Stop())

	// Then: every file has content
	nonEmpty(t, opts.CPUPath)
	nonEmpty(t, opts.HeapPath)
	nonEmpty(t, opts.TracePath)
}

func TestSession_StopTwice(t *testing.T) {
	// Given: a heap-only session
	path := filepath.Join(t.TempDir(), "heap.prof")
	s, err := Start(Options{HeapPath: path})
	require.NoError(t, err)

	// When/Then: stopping twice is harmless
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	nonEmpty(t, path)
}

func TestSession_NilStop(t *testing.T) {
	var s *Session
	assert.NoError(t, s.Stop())
}

func TestStart_BadPath(t *testing.T) {
	// Given: a CPU path in a missing directory
	path := filepath.Join(t.TempDir(), "missing", "cpu.prof")

	// When: starting
	_, err := Start(Options{CPUPath: path})

	// Then: it fails without leaving profiling on
	require.Error(t, err)
	s, err := Start(Options{CPUPath: filepath.Join(t.TempDir(), "cpu.prof")})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{HeapPath: "h"}.Enabled())
}
