package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/config"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/ui"
)

// endpointProbeTimeout bounds the health check.
const endpointProbeTimeout = 5 * time.Second

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the inference endpoint, config, and state dir",
		Long: `Run diagnostics for the current project.

Checks:
  - Configuration loads and validates
  - The inference endpoint answers its health check
  - The state directory is writable
  - The history database opens

An unreachable endpoint is a warning: coverage and dataset still work.`,
		Example: `  rspecgen doctor
  rspecgen doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorError is returned when a check fails.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}

func runDoctor(cmd *cobra.Command, jsonOutput bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	root, err := projectRoot(".")
	if err != nil {
		return err
	}

	info := ui.StatusInfo{ProjectRoot: root, ConfigPath: config.ProjectConfigPath(root)}
	info.Checks = append(info.Checks, ui.Check{Name: "user config", Status: "ok", Detail: userConfigDetail()})

	a, err := newApp(root, false)
	if err != nil {
		info.Endpoint = "unknown"
		info.Checks = append(info.Checks, ui.Check{Name: "configuration", Status: "fail", Detail: err.Error()})
		return renderDoctor(cmd, info, jsonOutput)
	}
	defer a.Close()

	info.Endpoint = a.synth.Endpoint()
	info.StateDir = a.cfg.StateDir(root)
	info.Checks = append(info.Checks, ui.Check{Name: "configuration", Status: "ok"})

	probeCtx, cancel := context.WithTimeout(ctx, endpointProbeTimeout)
	defer cancel()
	if a.synth.Available(probeCtx) {
		info.Checks = append(info.Checks, ui.Check{Name: "inference endpoint", Status: "ok"})
	} else {
		info.Checks = append(info.Checks, ui.Check{
			Name:   "inference endpoint",
			Status: "warn",
			Detail: "not reachable; generate will report failures",
		})
	}

	info.Checks = append(info.Checks, checkStateDir(info.StateDir))

	if a.cfg.Telemetry.Enabled {
		info.Checks = append(info.Checks, checkHistory(ctx, &info))
	} else {
		info.Checks = append(info.Checks, ui.Check{Name: "history", Status: "ok", Detail: "disabled"})
	}

	return renderDoctor(cmd, info, jsonOutput)
}

func renderDoctor(cmd *cobra.Command, info ui.StatusInfo, jsonOutput bool) error {
	r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	var err error
	if jsonOutput {
		err = r.RenderJSON(info)
	} else {
		err = r.Render(info)
	}
	if err != nil {
		return err
	}
	if !info.Healthy() {
		return &doctorError{message: "system check failed"}
	}
	return nil
}

func userConfigDetail() string {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err != nil {
		return "none"
	}
	return path
}

func checkStateDir(dir string) ui.Check {
	check := ui.Check{Name: "state dir", Status: "ok", Detail: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		check.Status = "fail"
		check.Detail = err.Error()
		return check
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		check.Status = "fail"
		check.Detail = fmt.Sprintf("not writable: %v", err)
		return check
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return check
}

func checkHistory(ctx context.Context, info *ui.StatusInfo) ui.Check {
	path := filepath.Join(info.StateDir, telemetry.FileName)
	store, err := telemetry.Open(path)
	if err != nil {
		return ui.Check{Name: "history", Status: "warn", Detail: err.Error()}
	}
	defer func() { _ = store.Close() }()

	sum, err := store.Summary(ctx)
	if err != nil {
		return ui.Check{Name: "history", Status: "warn", Detail: err.Error()}
	}
	info.HistoryRuns = sum.Runs
	info.LastRun = sum.LastRun
	if st, err := os.Stat(path); err == nil {
		info.HistorySize = st.Size()
	}
	return ui.Check{Name: "history", Status: "ok"}
}
