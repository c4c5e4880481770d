// Command portcullis runs the door-access backend: the HTTP device and admin
// API, the MQTT bridge, and database maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "portcullis",
		Short:         "Door access control backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PORTCULLIS_CONFIG"),
		"path to a YAML config file (environment variables override it)")

	root.AddCommand(
		newServeCmd(&configPath),
		newBridgeCmd(&configPath),
		newMigrateCmd(&configPath),
		newSeedCmd(&configPath),
	)
	return root
}
