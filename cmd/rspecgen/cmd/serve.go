package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/logging"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Start a Model Context Protocol server so an editor or assistant can call
generate_spec, build_dataset, check_coverage, and status.

stdout carries JSON-RPC only. Logs go to ~/.rspecgen/logs/rspecgen.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, ".", transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport (stdio)")

	return cmd
}

// runServe never writes to stdout itself.
func runServe(ctx context.Context, start, transport string) error {
	a, err := loadApp(start, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !debugMode {
		prev := slog.Default()
		defer slog.SetDefault(prev)
		cleanup, err := logging.SetupDefault(logging.ServeConfig(a.cfg.Log.Level))
		if err != nil {
			return err
		}
		defer cleanup()
	}

	opts := mcp.Options{
		Generator:   a.pipeline(nil),
		Builder:     a.builder(nil),
		Resolver:    a.resolver,
		Matcher:     a.matcher,
		Synthesizer: a.synth,
		Config:      a.cfg,
		RootPath:    a.root,
	}
	if a.history != nil {
		opts.History = a.history
	}

	srv, err := mcp.NewServer(opts)
	if err != nil {
		return err
	}

	n, err := srv.RegisterResources(ctx)
	if err != nil {
		slog.Warn("resource_registration_failed", slog.String("error", err.Error()))
	}
	slog.Info("serve_ready",
		slog.String("root", a.root),
		slog.Int("resources", n))

	return srv.Serve(ctx, transport)
}
