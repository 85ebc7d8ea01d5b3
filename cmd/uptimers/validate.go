package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimers/internal/config"
	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/notify"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the site list and environment",
	Long: `Parse the site list and the environment without connecting to storage
or starting the server. Useful as a CI or pre-deploy check.

Exit codes:
  0 - configuration is valid
  1 - configuration is invalid (details on stderr)`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, sites, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := notify.New(cfg.NotifyURL, cfg.SlackWebhook); err != nil {
		return fmt.Errorf("invalid notifier: %w", err)
	}
	report(cmd.OutOrStdout(), cfg, sites)
	return nil
}

func report(w io.Writer, cfg config.Config, sites []domain.Site) {
	ok := func(format string, a ...any) { fmt.Fprintf(w, "✔ "+format+"\n", a...) }
	warn := func(format string, a ...any) { fmt.Fprintf(w, "⚠ "+format+"\n", a...) }

	ok("%d sites in %s", len(sites), cfg.ConfigPath)
	for _, s := range sites {
		fmt.Fprintf(w, "    %-24s %s\n", s.Name, s.Site)
	}
	ok("ADDR=%s", cfg.Addr)

	switch cfg.Store {
	case config.StorePostgres:
		ok("STORE=postgres %s", cfg.RedactedDSN())
	case config.StoreSQLite:
		ok("STORE=sqlite %s", cfg.SQLitePath)
	case config.StoreMemory:
		warn("STORE=memory; facts are lost on restart")
	}

	if cfg.NotifyURL == "" && cfg.SlackWebhook == "" {
		warn("no NOTIFY_URL or SLACK_WEBHOOK; transitions are only logged")
	} else {
		ok("notifications enabled")
	}
	if cfg.PublicRPM <= 0 {
		warn("PUBLIC_RPM=0; status page is not rate limited")
	}
	ok("check every %s, %d attempts, timeout %s", cfg.CheckInterval, cfg.RetryAttempts, cfg.ProbeTimeout)
	ok("preflight passed")
}
