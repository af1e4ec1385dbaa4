package watcher

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
	// OpConfigChange indicates the project .rspecgen.yaml was modified.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is relative to the watched root, slash separated.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// IsDir indicates if the event is for a directory.
	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher produces debounced batches of file events.
type Watcher interface {
	// Start watches path recursively until Stop is called or ctx is done.
	Start(ctx context.Context, path string) error

	// Stop releases resources. Safe to call multiple times.
	Stop() error

	// Events returns debounced batches. Closed when the watcher stops.
	Events() <-chan []FileEvent

	// Errors returns non-fatal errors. Closed when the watcher stops.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced events.
	// Default: 300ms
	DebounceWindow time.Duration

	// EventBufferSize is the size of the batch channel buffer.
	// Default: 64
	EventBufferSize int

	// Extensions limits file events to these suffixes. Default: .rb
	Extensions []string

	// ConfigNames are file names reported as OpConfigChange.
	ConfigNames []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  300 * time.Millisecond,
		EventBufferSize: 64,
		Extensions:      []string{".rb"},
		ConfigNames:     []string{".rspecgen.yaml", ".rspecgen.yml"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	if o.ConfigNames == nil {
		o.ConfigNames = defaults.ConfigNames
	}
	return o
}
