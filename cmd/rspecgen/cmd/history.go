package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/output"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
)

// historyOutput is the --json shape.
type historyOutput struct {
	Summary  telemetry.Summary `json:"summary"`
	Outcomes map[string]int64  `json:"outcomes"`
	Runs     []telemetry.Run   `json:"runs"`
}

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generate outcomes",
		Long: `Show the outcomes recorded by generate, newest first.

The history lives in <state_dir>/history.db and never leaves the machine.
Set telemetry.enabled: false to stop recording.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of outcomes to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int, jsonOutput bool) error {
	ctx := cmd.Context()

	a, err := loadApp(".", false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := output.New(cmd.OutOrStdout())
	if !a.cfg.Telemetry.Enabled {
		out.Warning("History is disabled (telemetry.enabled: false)")
		return nil
	}

	store, err := telemetry.Open(filepath.Join(a.cfg.StateDir(a.root), telemetry.FileName))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	counts, err := store.OutcomeCounts(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if runs == nil {
			runs = []telemetry.Run{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(historyOutput{Summary: summary, Outcomes: counts, Runs: runs})
	}

	if len(runs) == 0 {
		out.Status("", "No history yet. Run rspecgen generate first.")
		return nil
	}

	out.Statusf("", "%d runs, %d methods", summary.Runs, summary.Methods)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Statusf("", "  %-13s %d", name, counts[name])
	}
	out.Newline()

	for _, r := range runs {
		out.Status(outcomeMarker(r.Outcome), fmt.Sprintf("%s  %-24s %-13s %s",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Method, r.Outcome, r.TestPath))
	}
	return nil
}

func outcomeMarker(outcome string) string {
	switch outcome {
	case telemetry.OutcomeInserted:
		return "✓"
	case telemetry.OutcomeFailed:
		return "✗"
	case telemetry.OutcomeNoSynthesis:
		return "!"
	default:
		return "-"
	}
}
