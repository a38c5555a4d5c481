// Package testutil provides shared fixtures for tests that need a real store.
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/tally/internal/ruleset"
	"github.com/Veraticus/tally/internal/storage"
)

// TestDB is a migrated in-memory database closed when the test ends.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedRules(testutil.SampleRules)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedRules stores every tenant of a YAML rule document directly,
// bypassing any cache.
func (db *TestDB) SeedRules(document string) *ruleset.Document {
	db.t.Helper()

	doc, err := ruleset.Parse(strings.NewReader(document))
	if err != nil {
		db.t.Fatalf("failed to parse rule document: %v", err)
	}

	ctx := context.Background()
	for _, tenant := range doc.Tenants {
		if err := db.Storage.ReplaceTenantRules(ctx, tenant.TenantID, tenant.Rules()); err != nil {
			db.t.Fatalf("failed to seed rules for %q: %v", tenant.TenantID, err)
		}
	}
	return doc
}
