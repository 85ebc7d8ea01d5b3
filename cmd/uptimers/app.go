package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/config"
	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/repo"
	"github.com/hamed0406/uptimers/internal/repo/memory"
	"github.com/hamed0406/uptimers/internal/repo/postgres"
	"github.com/hamed0406/uptimers/internal/repo/sqlite"
)

// loadConfig reads the environment and the site list, honouring --config
// and --env-file.
func loadConfig(cmd *cobra.Command) (config.Config, []domain.Site, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg.ConfigPath = path
	}
	sites, err := config.LoadSites(cfg.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, sites, nil
}

// openStore connects the configured backend and applies its schema. The
// returned func releases the connection.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.FactStore, func(), error) {
	var (
		store   repo.FactStore
		closeFn = func() {}
	)
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.New()
	case config.StoreSQLite:
		s, err := sqlite.New(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		store, closeFn = s, func() { _ = s.Close() }
	case config.StorePostgres:
		s, err := postgres.New(ctx, cfg.PostgresDSN(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres %s: %w", cfg.RedactedDSN(), err)
		}
		store, closeFn = s, s.Close
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if m, ok := store.(repo.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, closeFn, nil
}
