// Pitbossctl is a command-line client for Pit Boss pellet grills.
//
// It talks to a grill either through the vendor's WebSocket relay or
// directly over Bluetooth LE, decodes the controller's status pushes, and
// sends control commands. A live dashboard is available via 'pitbossctl
// monitor'.
//
// Usage:
//
//	pitbossctl [command] [flags]
//
// See 'pitbossctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opengrill/pitboss/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pitbossctl",
	Short: "Pit Boss Grill Control Utility",
	Long: `A command-line client for Pit Boss pellet grills.

Connects over the vendor WebSocket relay or directly over Bluetooth LE,
decodes controller status pushes, and sends control commands. Connection
settings come from flags or from a config file (see --config).`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pitbossctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
