// Command uptimers probes a fixed list of sites every minute, records the
// outcomes and serves a status page.
//
// Usage:
//
//	uptimers serve -c config.yaml    # run the monitor and the status page
//	uptimers validate -c config.yaml # check config and environment, then exit
//	uptimers version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "uptimers",
	Short: "Minimal uptime monitor with a public status page",
	Long: `uptimers checks every configured site once per interval, stores one
fact per site per minute, sends a notification when a site goes up or down,
and serves a pre-rendered status page with 24h availability.

Example config:
  sites:
    - site: https://example.com
      name: Example`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "uptimers %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the site list (overrides CONFIG_PATH)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment, if it exists")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
