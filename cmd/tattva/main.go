// Package main provides the tattva command: an HTTP service and CLI that
// surface the strongest species to environment correlation in a sightings
// database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tattva",
		Short: "tattva - correlation discovery over species sightings",
		Long: `tattva finds the species whose presence is most strongly associated with
an environmental covariate, caches the result, and assembles regional
context snapshots for downstream consumers.

Run 'tattva serve' to start the HTTP server.
Run 'tattva --help' for available commands.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file path")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	root.PersistentFlags().String("format", "", "log format (text, json); overrides config")

	root.AddCommand(
		serveCmd(),
		findCmd(),
		contextCmd(),
		migrateCmd(),
		seedCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tattva %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
