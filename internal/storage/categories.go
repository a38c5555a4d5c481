package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CategoryCount is the number of transactions assigned to one category.
type CategoryCount struct {
	CategoryID string
	Name       string
	Count      int
}

// categoryIDTx returns the id of the tenant's category, creating it if needed.
// Ids stay stable across rule imports so stored transactions keep resolving.
func categoryIDTx(ctx context.Context, tx *sql.Tx, tenantID, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM categories WHERE tenant_id = ? AND name = ?",
		tenantID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO categories (id, tenant_id, name) VALUES (?, ?, ?)",
		id, tenantID, name); err != nil {
		return "", fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return id, nil
}

// GetCategoryCounts returns how many transactions each category of a tenant holds,
// largest first.
func (s *SQLiteStorage) GetCategoryCounts(ctx context.Context, tenantID string) ([]CategoryCount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(t.id)
		FROM categories c
		LEFT JOIN transactions t ON t.category_id = c.id AND t.status = 'CLASSIFIED'
		WHERE c.tenant_id = ?
		GROUP BY c.id, c.name
		ORDER BY COUNT(t.id) DESC, c.name ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return counts, nil
}
