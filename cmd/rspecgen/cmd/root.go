// Package cmd provides the CLI commands for rspecgen.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/logging"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/profiling"
	"github.com/A-iswarya/RspecGeneratorPublic/pkg/version"
)

// Global flags
var (
	debugMode bool
	noTUI     bool
	configDir string
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     *profiling.Session
)

var (
	loggingCleanup func()
	prevLogger     *slog.Logger
)

// NewRootCmd creates the root command for the rspecgen CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rspecgen",
		Short: "Generate RSpec blocks for Rails methods with a local model",
		Long: `rspecgen writes RSpec describe blocks for Rails source methods.

It maps app/<role>/<path>.rb to spec/<role>/<path>_spec.rb, skips methods
the spec already covers, asks a local inference endpoint for the rest, and
splices the replies into the spec file. It can also harvest existing
(method, spec) pairs from a project into a fine-tuning dataset.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("rspecgen version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.rspecgen/logs/")
	cmd.PersistentFlags().BoolVar(&noTUI, "no-tui", false, "Plain text progress instead of the interactive display")
	cmd.PersistentFlags().StringVar(&configDir, "config", "", "Project directory to load .rspecgen.yaml from")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newDatasetCmd())
	cmd.AddCommand(newCoverageCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts profiling and debug logging if flags are set.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		prevLogger = slog.Default()
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("command", cmd.Name()),
			slog.String("version", version.Version))
	}

	opts := profiling.Options{CPUPath: profileCPU, HeapPath: profileMem, TracePath: profileTrace}
	if opts.Enabled() {
		s, err := profiling.Start(opts)
		if err != nil {
			return err
		}
		profiler = s
	}
	return nil
}

// stopProfilingAndLogging flushes profiles and closes the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profiler != nil {
		err = profiler.Stop()
		profiler = nil
	}

	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
		slog.SetDefault(prevLogger)
	}
	return err
}

// Execute runs the root command and prints failures to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	// cobra skips PersistentPostRunE when RunE fails
	_ = stopProfilingAndLogging(nil, nil)
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
	}
	return err
}
