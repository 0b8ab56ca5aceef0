package commands

import (
	"github.com/spf13/cobra"

	"github.com/stumpfworks/asterisk-ami/pkg/cli"
)

// VersionCmd prints a static version banner.
func VersionCmd(version, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cli.PrintHeader("amictl")
			cli.KeyValueTable(map[string]string{
				"Version":    version,
				"Build Time": buildTime,
			})
		},
	}
}
