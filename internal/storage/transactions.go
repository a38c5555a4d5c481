package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

// SaveTransactions stores a group of classified or unclassified records in
// one database transaction: either the whole group is saved or none of it.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (
				id, requested_tenant_id, tenant_id, category_id, rule_id, status,
				matched_keywords, date, description, deposit_amount, withdrawal_amount,
				balance, branch, classified_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, record := range records {
			keywords, err := encodeKeywords(record.MatchedKeywords)
			if err != nil {
				return err
			}

			txn := record.Transaction
			_, err = stmt.ExecContext(ctx,
				record.ID, record.RequestedTenantID, record.TenantID, record.CategoryID,
				record.RuleID, string(record.Status), keywords, txn.Date, txn.Description,
				txn.DepositAmount, txn.WithdrawalAmount, txn.Balance, txn.Branch,
				record.ClassifiedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", record.ID, err)
			}
		}
		return nil
	})
}

// GetUnassignedTransactions returns up to limit unclassified records, oldest first.
func (s *SQLiteStorage) GetUnassignedTransactions(ctx context.Context, limit int) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	return s.queryRecords(ctx, `
		SELECT id, requested_tenant_id, tenant_id, category_id, rule_id, status,
			matched_keywords, date, description, deposit_amount, withdrawal_amount,
			balance, branch, classified_at
		FROM transactions
		WHERE status = 'UNCLASSIFIED'
		ORDER BY rowid
		LIMIT ?
	`, limit)
}

// GetTransactions returns the records requested by or assigned to a tenant.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, tenantID string, limit int) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	return s.queryRecords(ctx, `
		SELECT id, requested_tenant_id, tenant_id, category_id, rule_id, status,
			matched_keywords, date, description, deposit_amount, withdrawal_amount,
			balance, branch, classified_at
		FROM transactions
		WHERE tenant_id = ? OR requested_tenant_id = ?
		ORDER BY date, rowid
		LIMIT ?
	`, tenantID, tenantID, limit)
}

// AssignTransactions records successful reclassifications. Records that were
// assigned in the meantime are left untouched.
func (s *SQLiteStorage) AssignTransactions(ctx context.Context, assignments []model.Assignment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return fmt.Errorf("%w: assignments", ErrEmptySlice)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE transactions
			SET tenant_id = ?, category_id = ?, rule_id = ?, matched_keywords = ?,
				status = 'CLASSIFIED', classified_at = ?
			WHERE id = ? AND status = 'UNCLASSIFIED'
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, a := range assignments {
			if err := validateString(a.TransactionID, "transactionID"); err != nil {
				return err
			}
			if err := validateString(a.TenantID, "tenantID"); err != nil {
				return err
			}
			if err := validateString(a.CategoryID, "categoryID"); err != nil {
				return err
			}

			keywords, err := encodeKeywords(a.MatchedKeywords)
			if err != nil {
				return err
			}

			if _, err := stmt.ExecContext(ctx,
				a.TenantID, a.CategoryID, a.RuleID, keywords, a.ClassifiedAt, a.TransactionID,
			); err != nil {
				return fmt.Errorf("failed to assign transaction %s: %w", a.TransactionID, err)
			}
		}
		return nil
	})
}

// GetClassificationStats counts the transactions assigned to a tenant and the
// unassigned ones it requested.
func (s *SQLiteStorage) GetClassificationStats(ctx context.Context, tenantID string) (*model.ClassificationStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	stats := &model.ClassificationStats{TenantID: tenantID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'CLASSIFIED' AND tenant_id = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'UNCLASSIFIED' AND requested_tenant_id = ? THEN 1 ELSE 0 END), 0)
		FROM transactions
	`, tenantID, tenantID).Scan(&stats.ClassifiedCount, &stats.UnclassifiedCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get classification stats: %w", err)
	}

	stats.TotalTransactions = stats.ClassifiedCount + stats.UnclassifiedCount
	if stats.TotalTransactions > 0 {
		rate := float64(stats.ClassifiedCount) / float64(stats.TotalTransactions) * 100
		stats.ClassificationRate = math.Round(rate*100) / 100
	}
	return stats, nil
}

func (s *SQLiteStorage) queryRecords(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (model.Record, error) {
	var (
		record       model.Record
		tenantID     sql.NullString
		categoryID   sql.NullString
		ruleID       sql.NullString
		status       string
		keywords     sql.NullString
		branch       sql.NullString
		classifiedAt sql.NullTime
		deposit      decimal.Decimal
		withdrawal   decimal.Decimal
		balance      decimal.Decimal
	)
	err := rows.Scan(
		&record.ID, &record.RequestedTenantID, &tenantID, &categoryID, &ruleID, &status,
		&keywords, &record.Transaction.Date, &record.Transaction.Description,
		&deposit, &withdrawal, &balance, &branch, &classifiedAt,
	)
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	record.Status = model.ClassificationStatus(status)
	record.TenantID = stringPtr(tenantID)
	record.CategoryID = stringPtr(categoryID)
	record.RuleID = stringPtr(ruleID)
	record.Transaction.DepositAmount = deposit
	record.Transaction.WithdrawalAmount = withdrawal
	record.Transaction.Balance = balance
	record.Transaction.Branch = branch.String
	if classifiedAt.Valid {
		t := classifiedAt.Time
		record.ClassifiedAt = &t
	}

	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &record.MatchedKeywords); err != nil {
			return model.Record{}, fmt.Errorf("failed to decode matched keywords of %s: %w", record.ID, err)
		}
	}
	return record, nil
}

func encodeKeywords(keywords []string) (sql.NullString, error) {
	if len(keywords) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode matched keywords: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
