package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Check is one line of `rspecgen doctor` output.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

// StatusInfo is the environment health report shown by `rspecgen doctor`.
type StatusInfo struct {
	ProjectRoot string    `json:"project_root"`
	ConfigPath  string    `json:"config_path,omitempty"`
	Endpoint    string    `json:"endpoint"`
	StateDir    string    `json:"state_dir"`
	HistorySize int64     `json:"history_size"`
	HistoryRuns int       `json:"history_runs"`
	LastRun     time.Time `json:"last_run"`
	Checks      []Check   `json:"checks"`
}

// Healthy reports whether no check failed.
func (s StatusInfo) Healthy() bool {
	for _, c := range s.Checks {
		if c.Status == "fail" {
			return false
		}
	}
	return true
}

// StatusRenderer displays a StatusInfo.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("rspecgen doctor: "+info.ProjectRoot))

	if info.ConfigPath != "" {
		_, _ = fmt.Fprintf(r.out, "  Config:    %s\n", info.ConfigPath)
	} else {
		_, _ = fmt.Fprintln(r.out, "  Config:    defaults")
	}
	_, _ = fmt.Fprintf(r.out, "  Endpoint:  %s\n", info.Endpoint)
	_, _ = fmt.Fprintf(r.out, "  State dir: %s\n", info.StateDir)
	if info.HistoryRuns > 0 {
		_, _ = fmt.Fprintf(r.out, "  History:   %d runs, %s", info.HistoryRuns, FormatBytes(info.HistorySize))
		if !info.LastRun.IsZero() {
			_, _ = fmt.Fprintf(r.out, ", last %s", formatTime(info.LastRun))
		}
		_, _ = fmt.Fprintln(r.out)
	}
	_, _ = fmt.Fprintln(r.out)

	for _, c := range info.Checks {
		line := fmt.Sprintf("  %-4s %s", r.renderStatus(c.Status), c.Name)
		if c.Detail != "" {
			line += r.styles.Dim.Render(" (" + c.Detail + ")")
		}
		_, _ = fmt.Fprintln(r.out, line)
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ok":
		return r.styles.Success.Render(status)
	case "warn":
		return r.styles.Warning.Render(status)
	case "fail":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
