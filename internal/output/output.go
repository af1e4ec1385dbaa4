// Package output prints the line-oriented results of rspecgen commands.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/coverage"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/pipeline"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer that colors output only on a terminal without
// NO_COLOR set.
func New(out io.Writer) *Writer {
	return NewWithColor(out, ui.IsTTY(out) && !ui.DetectNoColor())
}

// NewWithColor creates a Writer with color forced on or off.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	return &Writer{out: out, styles: ui.GetStyles(!useColor)}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Coverage prints one line per method of a coverage report.
func (w *Writer) Coverage(r *coverage.Report) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(r.SourcePath))
	if !r.SpecExists {
		w.Status("", w.styles.Dim.Render("no spec at "+r.TestPath))
	} else {
		w.Status("", w.styles.Dim.Render("spec "+r.TestPath))
	}
	for _, name := range r.Covered {
		w.Status(w.styles.Covered.Render("  ✓"), name)
	}
	for _, name := range r.Uncovered {
		w.Status(w.styles.Missing.Render("  ✗"), name)
	}
	total := len(r.Covered) + len(r.Uncovered)
	w.Status("", fmt.Sprintf("%d/%d covered", len(r.Covered), total))
}

// Outcomes prints one line per method of a generate report.
func (w *Writer) Outcomes(r *pipeline.Report) {
	if r.Scaffolded {
		w.Successf("Created %s", r.TestPath)
	}
	for _, m := range r.Methods {
		switch m.Outcome {
		case pipeline.OutcomeInserted:
			w.Successf("%s: inserted", m.Method)
		case pipeline.OutcomeSkipped:
			w.Status(w.styles.Dim.Render("-"), m.Method+": spec exists")
		case pipeline.OutcomeNoSynthesis:
			w.Warningf("%s: no spec produced", m.Method)
		default:
			w.Errorf("%s: %s", m.Method, m.Error)
		}
	}
	for _, warn := range r.Warnings {
		w.Warning(warn)
	}
}
