package mcp

import (
	"fmt"
	"strings"
)

// FormatGenerateReport formats a generate run as markdown.
func FormatGenerateReport(out *GenerateSpecOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Spec for `%s`\n\n", out.SourcePath))
	sb.WriteString(fmt.Sprintf("**File:** `%s`", out.TestPath))
	if out.Scaffolded {
		sb.WriteString(" (created)")
	}
	sb.WriteString("\n\n")

	if len(out.Methods) == 0 {
		sb.WriteString("No methods selected.\n")
	}
	for _, m := range out.Methods {
		sb.WriteString(fmt.Sprintf("- `%s`: %s", m.Method, m.Outcome))
		if m.Error != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", m.Error))
		}
		sb.WriteString("\n")
	}

	if len(out.Warnings) > 0 {
		sb.WriteString("\n### Warnings\n\n")
		for _, w := range out.Warnings {
			sb.WriteString("- " + w + "\n")
		}
	}
	return sb.String()
}

// FormatCoverage formats a coverage report as markdown.
func FormatCoverage(out *CheckCoverageOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Coverage for `%s`\n\n", out.SourcePath))
	if !out.SpecExists {
		sb.WriteString(fmt.Sprintf("No spec file at `%s`.\n\n", out.TestPath))
	} else {
		sb.WriteString(fmt.Sprintf("**Spec:** `%s`\n\n", out.TestPath))
	}

	total := len(out.Covered) + len(out.Uncovered)
	sb.WriteString(fmt.Sprintf("%d of %d method%s covered\n", len(out.Covered), total, plural(total)))

	writeList(&sb, "Covered", out.Covered)
	writeList(&sb, "Uncovered", out.Uncovered)
	return sb.String()
}

// FormatDatasetResult formats a dataset build as markdown.
func FormatDatasetResult(out *BuildDatasetOutput) string {
	var sb strings.Builder
	sb.WriteString("## Dataset\n\n")
	sb.WriteString(fmt.Sprintf("Wrote %d entr%s to `%s`\n\n", out.Entries, pluralY(out.Entries), out.Path))
	sb.WriteString(fmt.Sprintf("- Files scanned: %d\n", out.FilesScanned))
	sb.WriteString(fmt.Sprintf("- Files with a spec: %d\n", out.FilesWithSpec))
	if out.LimitReached {
		sb.WriteString("- Stopped at the entry limit\n")
	}

	if len(out.Skipped) > 0 {
		sb.WriteString("\n### Skipped\n\n")
		for _, f := range out.Skipped {
			sb.WriteString(fmt.Sprintf("- `%s`: %s\n", f.Path, f.Error))
		}
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, names []string) {
	if len(names) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n### %s\n\n", title))
	for _, n := range names {
		sb.WriteString(fmt.Sprintf("- `%s`\n", n))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
