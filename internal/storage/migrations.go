package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Rule store",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL,
					name TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (tenant_id, name)
				)`,
				`CREATE TABLE IF NOT EXISTS rules (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL,
					category_id TEXT NOT NULL REFERENCES categories(id),
					position INTEGER NOT NULL,
					min_amount TEXT,
					max_amount TEXT,
					transaction_type TEXT NOT NULL DEFAULT 'ALL'
						CHECK (transaction_type IN ('DEPOSIT', 'WITHDRAWAL', 'ALL')),
					priority INTEGER NOT NULL DEFAULT 1 CHECK (priority >= 1),
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_tenant ON rules(tenant_id, is_active)`,
				`CREATE TABLE IF NOT EXISTS rule_keywords (
					rule_id TEXT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					keyword TEXT NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('INCLUDE', 'EXCLUDE')),
					PRIMARY KEY (rule_id, position)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Classified transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					requested_tenant_id TEXT NOT NULL,
					tenant_id TEXT,
					category_id TEXT,
					rule_id TEXT,
					status TEXT NOT NULL CHECK (status IN ('CLASSIFIED', 'UNCLASSIFIED')),
					matched_keywords TEXT,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					deposit_amount TEXT NOT NULL,
					withdrawal_amount TEXT NOT NULL,
					balance TEXT NOT NULL,
					branch TEXT,
					classified_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_tenant ON transactions(tenant_id)`,
				`CREATE INDEX idx_transactions_requested_tenant ON transactions(requested_tenant_id)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Index unassigned transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
