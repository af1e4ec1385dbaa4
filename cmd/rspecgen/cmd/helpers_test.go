package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const walletSource = "class Wallet\n  def add(n)\n    n\n  end\n\n  def remove(n)\n    n\n  end\nend\n"

var defName = regexp.MustCompile(`def\s+(?:self\.)?(\w+[?!]?)`)

// fakeEndpoint answers like the inference server: a templated reply with a
// fenced describe block for the method it was sent.
type fakeEndpoint struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeEndpoint(t *testing.T) *fakeEndpoint {
	t.Helper()
	f := &fakeEndpoint{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := "unknown"
		if m := defName.FindStringSubmatch(req.Input); m != nil {
			name = m[1]
		}
		reply := "### Instruction:\nWrite a test\n\n### Response:\n```ruby\ndescribe '#" + name +
			"' do\n  it { expect(described_class).to respond_to(:" + name + ") }\nend\n```"
		_ = json.NewEncoder(w).Encode(map[string]string{"result": reply})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// isolate points config, logs, and the endpoint away from the real home dir.
func isolate(t *testing.T, endpoint string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("RSPECGEN_LOG_DIR", filepath.Join(home, "logs"))
	t.Setenv("NO_COLOR", "1")
	if endpoint != "" {
		t.Setenv("RSPECGEN_ENDPOINT", endpoint)
	}
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Gemfile"), []byte("source 'https://rubygems.org'\n"), 0o644))
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--no-tui"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}
