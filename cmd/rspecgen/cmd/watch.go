package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/output"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/pipeline"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Report coverage as source and spec files change",
		Long: `Watch app/ and spec/ and print coverage for every source file that changes.
A change to a spec file re-checks its source file.

With --generate, specs are generated for uncovered methods as they appear.
Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runWatch(cmd, root, generate)
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "Generate specs for uncovered methods")

	return cmd
}

func runWatch(cmd *cobra.Command, root string, generate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(root, generate)
	if err != nil {
		return err
	}
	defer a.Close()

	out := output.New(cmd.OutOrStdout())
	opts := watcher.DefaultOptions()
	opts.DebounceWindow = a.cfg.WatchDebounce()

	svc := watcher.NewService(watcher.ServiceOptions{
		Root:     a.root,
		Resolver: a.resolver,
		Matcher:  a.matcher,
		// outcomes print through OnGenerate
		Generator: a.pipeline(nil),
		Generate:  generate,
		Options:   opts,
		OnReport: func(r *coverage.Report) {
			out.Coverage(r)
		},
		OnGenerate: func(r *pipeline.Report) {
			out.Outcomes(r)
		},
		OnConfigChange: func(path string) {
			out.Warningf("%s changed; restart watch to apply it", path)
		},
	})

	out.Statusf("", "Watching %s", a.root)
	return svc.Run(ctx)
}
