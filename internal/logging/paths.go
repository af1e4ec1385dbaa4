package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the log directory.
// RSPECGEN_LOG_DIR overrides ~/.rspecgen/logs.
func DefaultLogDir() string {
	if dir := os.Getenv("RSPECGEN_LOG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".rspecgen", "logs")
	}
	return filepath.Join(home, ".rspecgen", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "rspecgen.log")
}
