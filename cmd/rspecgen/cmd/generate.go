package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/output"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/pipeline"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

type generateOptions struct {
	method     string
	selection  string
	span       string
	jsonOutput bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate specs for selected methods of a source file",
		Long: `Generate RSpec describe blocks for the selected methods of a Rails source file.

The spec file is resolved from the source path and created with a scaffold if
it does not exist. Methods that already have a describe block are skipped.
Selecting the class name, or a class/module definition line, selects every
method in the file.`,
		Example: `  # One method by name
  rspecgen generate app/models/user.rb --method full_name

  # Whatever text an editor selected
  rspecgen generate app/models/user.rb --selection "def full_name"

  # A byte range of the file
  rspecgen generate app/models/user.rb --span 120:480

  # Every method
  rspecgen generate app/models/user.rb --method User`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.method, "method", "m", "", "Method or class name to generate for")
	cmd.Flags().StringVar(&opts.selection, "selection", "", "Selected text, as an editor would pass it")
	cmd.Flags().StringVar(&opts.span, "span", "", "Byte range START:END of the file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")
	cmd.MarkFlagsMutuallyExclusive("method", "selection", "span")

	return cmd
}

func runGenerate(cmd *cobra.Command, path string, opts generateOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	sel, err := buildSelection(abs, opts)
	if err != nil {
		return err
	}

	a, err := loadApp(abs, true)
	if err != nil {
		return err
	}
	defer a.Close()

	renderer := ui.Discard
	if !opts.jsonOutput {
		renderer = a.renderer(cmd.OutOrStdout())
	}
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	report, runErr := a.pipeline(renderer).Run(ctx, sel)
	if report != nil {
		renderer.Complete(report.Stats())
	}
	_ = renderer.Stop()

	if runErr != nil {
		return runErr
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	output.New(cmd.OutOrStdout()).Outcomes(report)
	return nil
}

// buildSelection turns the flags into a pipeline selection. No flag yields
// an empty selection, which the pipeline rejects before writing anything.
func buildSelection(path string, opts generateOptions) (pipeline.Selection, error) {
	sel := pipeline.Selection{Path: path}
	switch {
	case opts.method != "":
		sel.Selected = opts.method
	case opts.selection != "":
		sel.Selected = opts.selection
	case opts.span != "":
		span, err := parseSpan(opts.span)
		if err != nil {
			return sel, err
		}
		sel.Span = span
	}
	return sel, nil
}

// parseSpan parses "START:END" byte offsets.
func parseSpan(s string) (pipeline.Span, error) {
	invalid := func() error {
		return errors.ValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("span must be START:END byte offsets, got %q", s)).
			WithSuggestion("Pass two non-negative integers such as --span 120:480")
	}

	startStr, endStr, ok := strings.Cut(s, ":")
	if !ok {
		return pipeline.Span{}, invalid()
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return pipeline.Span{}, invalid()
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil || start < 0 || end < start {
		return pipeline.Span{}, invalid()
	}
	return pipeline.Span{Start: start, End: end}, nil
}
