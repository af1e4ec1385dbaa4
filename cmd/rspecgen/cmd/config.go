package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/A-iswarya/RspecGeneratorPublic/configs"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/config"
	"github.com/A-iswarya/RspecGeneratorPublic/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage rspecgen configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/rspecgen/config.yaml)
  3. Project config (.rspecgen.yaml)
  4. Environment variables (RSPECGEN_*)`,
		Example: `  # Write .rspecgen.yaml with the defaults
  rspecgen config init

  # Show effective configuration
  rspecgen config show

  # Print the user config path
  rspecgen config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file",
		Long: `Write a commented configuration file holding every default to .rspecgen.yaml
in the project root, or to the user config file with --user.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, user)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user and project config file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			root, err := projectRoot(".")
			if err != nil {
				return err
			}
			if p := config.ProjectConfigPath(root); p != "" {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force, user bool) error {
	out := output.New(cmd.OutOrStdout())

	var path string
	if user {
		path = config.GetUserConfigPath()
	} else {
		root, err := projectRoot(".")
		if err != nil {
			return err
		}
		path = config.ProjectConfigPath(root)
		if path == "" {
			path = filepath.Join(root, ".rspecgen.yaml")
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.Statusf("", "Location: %s", path)
		out.Status("", "Use --force to overwrite it with the defaults")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.Template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	out.Status("", "Run 'rspecgen config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var cfg *config.Config

	switch source {
	case "merged":
		root, err := projectRoot(".")
		if err != nil {
			return err
		}
		if cfg, err = config.Load(root); err != nil {
			return err
		}
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("unknown source %q (use merged or defaults)", source)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
