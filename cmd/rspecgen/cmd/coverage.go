package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/output"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/syntax"
)

// coverageOutput is the --json shape.
type coverageOutput struct {
	*coverage.Report
	Verify *verifyResult `json:"verify,omitempty"`
}

// verifyResult cross-checks the textual scan against the Ruby parser.
type verifyResult struct {
	// ParserOnly lists methods the parser found that the scan missed.
	ParserOnly []string `json:"parser_only,omitempty"`
	// ScanOnly lists methods the scan found that the parser did not.
	ScanOnly []string `json:"scan_only,omitempty"`
	// SpecDiagnostics are parse problems in the spec file.
	SpecDiagnostics []syntax.Diagnostic `json:"spec_diagnostics,omitempty"`
}

func newCoverageCmd() *cobra.Command {
	var (
		jsonOutput bool
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "coverage <file>",
		Short: "List covered and uncovered methods of a source file",
		Long: `List which methods of a Rails source file already have a describe block in
the mirrored spec file.

With --verify the Ruby parser re-reads both files: method names it disagrees
on with the textual scan are listed, and parse errors in the spec are shown.`,
		Example: `  rspecgen coverage app/models/user.rb
  rspecgen coverage app/models/user.rb --json --verify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoverage(cmd, args[0], jsonOutput, verify)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&verify, "verify", false, "Cross-check with the Ruby parser")

	return cmd
}

func runCoverage(cmd *cobra.Command, path string, jsonOutput, verify bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	a, err := loadApp(abs, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.matcher.Inspect(a.resolver, abs)
	if err != nil {
		return err
	}

	result := coverageOutput{Report: report}
	if verify {
		v, err := verifyCoverage(cmd.Context(), a.checker, report)
		if err != nil {
			return err
		}
		result.Verify = v
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out := output.New(cmd.OutOrStdout())
	out.Coverage(report)
	if v := result.Verify; v != nil {
		for _, name := range v.ParserOnly {
			out.Warningf("%s: found by the parser only", name)
		}
		for _, name := range v.ScanOnly {
			out.Warningf("%s: found by the scan only", name)
		}
		for _, d := range v.SpecDiagnostics {
			out.Warningf("%s:%s", report.TestPath, d)
		}
		if len(v.ParserOnly)+len(v.ScanOnly)+len(v.SpecDiagnostics) == 0 {
			out.Success("Parser agrees with the scan")
		}
	}
	return nil
}

func verifyCoverage(ctx context.Context, checker *syntax.Checker, report *coverage.Report) (*verifyResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	src, err := os.ReadFile(report.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", report.SourcePath, err)
	}
	parsed, err := checker.Methods(ctx, src)
	if err != nil {
		return nil, err
	}

	scanned := make(map[string]bool)
	for _, name := range report.Covered {
		scanned[name] = true
	}
	for _, name := range report.Uncovered {
		scanned[name] = true
	}

	v := &verifyResult{}
	seen := make(map[string]bool)
	for _, name := range parsed {
		seen[name] = true
		if !scanned[name] {
			v.ParserOnly = append(v.ParserOnly, name)
		}
	}
	for _, name := range append(append([]string{}, report.Covered...), report.Uncovered...) {
		if !seen[name] {
			v.ScanOnly = append(v.ScanOnly, name)
		}
	}

	if report.SpecExists {
		res, err := checker.CheckFile(ctx, report.TestPath)
		if err != nil {
			return nil, err
		}
		v.SpecDiagnostics = res.Diagnostics
	}
	return v, nil
}
