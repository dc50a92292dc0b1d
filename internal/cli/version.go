package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/vietddude/ddq/internal/cli.version=...".
var (
	version = "dev"
	commit  = "none"
)

type versionInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ddq version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeResult(versionInfo{
				Name:      "ddq",
				Version:   version,
				Commit:    commit,
				GoVersion: runtime.Version(),
			})
		},
	}
}
