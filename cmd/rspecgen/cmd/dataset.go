package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/dataset"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/output"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

func newDatasetCmd() *cobra.Command {
	var (
		limit  string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "dataset [root]",
		Short: "Build a fine-tuning dataset from existing specs",
		Long: `Walk app/ under the project root and pair every method with the describe
block that covers it in the mirrored spec file.

Entries are written as a JSON array to <out>/datasets/dataset.json. The walk
stops once --limit entries exist. Files that cannot be read are reported and
skipped.`,
		Example: `  # First 500 pairs of the current project
  rspecgen dataset --limit 500

  # Another project, written elsewhere
  rspecgen dataset ../shop --limit 1000 --out /tmp/shop`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runDataset(cmd, root, limit, outDir)
		},
	}

	cmd.Flags().StringVarP(&limit, "limit", "n", "", "Maximum number of entries (empty or 0 means no limit)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: dataset.output_dir)")

	return cmd
}

func runDataset(cmd *cobra.Command, root, limitArg, outDir string) error {
	// validated before anything touches the disk
	limit, err := dataset.ParseLimit(limitArg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return errors.IOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("project root %s is not a directory", absRoot), err)
	}
	if outDir != "" {
		if outDir, err = filepath.Abs(outDir); err != nil {
			return fmt.Errorf("resolve %s: %w", outDir, err)
		}
	}

	appRoot := absRoot
	if configDir != "" {
		if appRoot, err = filepath.Abs(configDir); err != nil {
			return err
		}
	}
	a, err := newApp(appRoot, false)
	if err != nil {
		return err
	}
	defer a.Close()

	renderer := a.renderer(cmd.OutOrStdout())
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	res, buildErr := a.builder(renderer).Build(ctx, absRoot, limit)
	path := a.datasetPath(outDir)
	if buildErr == nil {
		buildErr = dataset.Write(path, res.Entries)
	}
	if res != nil {
		renderer.Complete(datasetStats(res, path, buildErr == nil))
	}
	_ = renderer.Stop()
	if buildErr != nil {
		return buildErr
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Wrote %d entries to %s", len(res.Entries), path)
	out.Statusf("", "%d files scanned, %d with a spec", res.FilesScanned, res.FilesWithSpec)
	if res.LimitReached {
		out.Statusf("", "Stopped at limit %d", limit)
	}
	for _, fe := range res.Errors {
		out.Warningf("%s: %s", fe.Path, errors.Notification(fe.Err))
	}
	return nil
}

func datasetStats(res *dataset.Result, path string, written bool) ui.CompletionStats {
	stats := ui.CompletionStats{
		Title:    "Dataset built",
		Files:    res.FilesScanned,
		Entries:  len(res.Entries),
		Duration: res.Duration,
		Warnings: len(res.Errors),
	}
	if written {
		stats.Output = path
	}
	return stats
}
