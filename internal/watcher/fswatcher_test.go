package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *FSWatcher {
	t.Helper()
	w, err := NewFSWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx, root) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	// let the initial directory walk finish
	time.Sleep(100 * time.Millisecond)
	return w
}

func nextBatch(t *testing.T, w *FSWatcher) []FileEvent {
	t.Helper()
	select {
	case batch := <-w.Events():
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for events")
		return nil
	}
}

func TestFSWatcher_ReportsRubyFiles(t *testing.T) {
	// Given: a watched project with an app/models directory
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "models"), 0o755))
	w := startWatcher(t, root)

	// When: a Ruby file and a non-Ruby file are written
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "models", "account.rb"), []byte("class Account\nend\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "models", "notes.txt"), []byte("x"), 0o644))

	// Then: only the Ruby file is reported, with a slash relative path
	batch := nextBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, "app/models/account.rb", batch[0].Path)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestFSWatcher_ConfigChange(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".rspecgen.yaml"), []byte("synth: {}\n"), 0o644))

	batch := nextBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, OpConfigChange, batch[0].Operation)
}

func TestFSWatcher_SkipsIgnoredDirectories(t *testing.T) {
	// Given: vendor and hidden directories in the project
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "gems"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	w := startWatcher(t, root)

	// When: files change in the ignored directories and then in app/
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "gems", "x.rb"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "hook.rb"), []byte("x"), 0o644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "real.rb"), []byte("x"), 0o644))

	// Then: only the app/ file shows up
	batch := nextBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, "app/real.rb", batch[0].Path)
}

func TestFSWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	dir := filepath.Join(root, "app", "services")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.rb"), []byte("class Billing\nend\n"), 0o644))

	var seen []string
	deadline := time.After(3 * time.Second)
	for len(seen) == 0 {
		select {
		case batch := <-w.Events():
			for _, ev := range batch {
				seen = append(seen, ev.Path)
			}
		case <-deadline:
			t.Fatal("new directory was not watched")
		}
	}
	assert.Contains(t, seen, "app/services/billing.rb")
}

func TestFSWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewFSWatcher(Options{})
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestFSWatcher_Ignored(t *testing.T) {
	w := &FSWatcher{}
	assert.True(t, w.ignored("", false))
	assert.True(t, w.ignored("node_modules/x.rb", false))
	assert.True(t, w.ignored(".bundle/config.rb", false))
	assert.True(t, w.ignored("tmp", true))
	assert.False(t, w.ignored("app/models/a.rb", false))
	assert.False(t, w.ignored(".rspecgen.yaml", false))
}
