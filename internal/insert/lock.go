package insert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
)

// lockRetryDelay is how often a waiting writer polls the lock.
const lockRetryDelay = 50 * time.Millisecond

// FileLock serializes writers of one spec file across processes, so that
// watch, serve, and a CLI run never splice the same artifact at once.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewArtifactLock returns the lock for artifactPath. Lock files live in
// lockDir and are named after a hash of the artifact's absolute path.
func NewArtifactLock(lockDir, artifactPath string) *FileLock {
	abs, err := filepath.Abs(artifactPath)
	if err != nil {
		abs = artifactPath
	}
	sum := sha256.Sum256([]byte(abs))
	lockPath := filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock waits up to timeout for an exclusive lock.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.IOError(errors.ErrCodeLockFailed, "failed to create lock directory", err).
			WithDetail("path", l.path)
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acquired, err := l.flock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !acquired {
		return errors.IOError(errors.ErrCodeLockFailed,
			fmt.Sprintf("spec file is locked by another writer (waited %s)", timeout), err).
			WithDetail("lock", l.path).
			WithSuggestion("Another rspecgen process is writing this spec; retry when it finishes")
	}

	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. It is safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether this handle holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}
