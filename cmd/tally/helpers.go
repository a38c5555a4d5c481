package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath(viper.GetViper()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// newEngine builds an engine over store using the configured classification settings.
func newEngine(store *storage.SQLiteStorage, progress engine.ProgressReporter, metrics engine.MetricsRecorder) (*engine.Engine, error) {
	cfg, err := config.EngineConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	cfg.Progress = progress
	cfg.Metrics = metrics

	return engine.NewWithConfig(store, store, cfg), nil
}

// newRuleManager returns a rule manager sharing the cache of an engine over store.
func newRuleManager(store *storage.SQLiteStorage) (*engine.RuleManager, error) {
	eng, err := newEngine(store, nil, nil)
	if err != nil {
		return nil, err
	}
	return engine.NewRuleManager(store, eng.Cache()), nil
}

// tenantFlag reads the --tenant flag, which every tenant-scoped command requires.
func tenantFlag(cmd *cobra.Command) (string, error) {
	tenantID, _ := cmd.Flags().GetString("tenant")
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", common.NewUserError("a tenant is required, pass --tenant", common.ErrMissingConfig)
	}
	return tenantID, nil
}

func addTenantFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("tenant", "t", "", "tenant to act for")
}
