package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stumpfworks/asterisk-ami/cmd/amictl/commands"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "amictl",
		Short:   "Asterisk Manager Interface client",
		Long:    "amictl connects to an Asterisk Manager Interface, submits actions, and streams events.",
		Version: fmt.Sprintf("%s (built %s)", version, buildTime),
	}

	rootCmd.AddCommand(commands.ConnectCmd())
	rootCmd.AddCommand(commands.ActionCmd())
	rootCmd.AddCommand(commands.VersionCmd(version, buildTime))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
