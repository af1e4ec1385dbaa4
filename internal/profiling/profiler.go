// Package profiling writes pprof and trace files for a single CLI invocation.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output files. Empty paths are skipped.
type Options struct {
	CPUPath   string
	HeapPath  string
	TracePath string
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPUPath != "" || o.HeapPath != "" || o.TracePath != ""
}

// Session is an active profiling run. The heap profile is written on Stop.
type Session struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins CPU profiling and tracing as requested. On error nothing is
// left running.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}

	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, fmt.Errorf("create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("start CPU profile: %w", err)
		}
		s.cpuFile = f
	}

	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.stopCPU()
			return nil, fmt.Errorf("create trace: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, fmt.Errorf("start trace: %w", err)
		}
		s.traceFile = f
	}

	return s, nil
}

// Stop flushes the CPU profile and trace, then writes the heap profile.
// Calling Stop twice is a no-op for the already stopped parts.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	s.stopCPU()
	if s.traceFile != nil {
		trace.Stop()
		_ = s.traceFile.Close()
		s.traceFile = nil
	}
	if s.opts.HeapPath != "" {
		path := s.opts.HeapPath
		s.opts.HeapPath = ""
		return WriteHeap(path)
	}
	return nil
}

func (s *Session) stopCPU() {
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = s.cpuFile.Close()
		s.cpuFile = nil
	}
}

// WriteHeap writes a heap snapshot after forcing a GC.
func WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create heap profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write heap profile: %w", err)
	}
	return nil
}
