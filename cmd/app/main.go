package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "tasksync",
		Short:   "Authenticated task API with real-time sync over WebSocket",
		Version: Version,
		// no subcommand means serve
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
