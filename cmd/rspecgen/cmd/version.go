package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/A-iswarya/RspecGeneratorPublic/pkg/version"
)

// versionJSON adds the user agent sent to the inference endpoint.
type versionJSON struct {
	version.BuildInfo
	UserAgent string `json:"user_agent"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, git commit, build date, and Go version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			switch {
			case shortOutput:
				_, err := fmt.Fprintln(w, version.Short())
				return err
			case jsonOutput:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(versionJSON{BuildInfo: version.GetInfo(), UserAgent: version.UserAgent()})
			default:
				_, err := fmt.Fprintln(w, version.String())
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}
