package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// SaveExpenses inserts a batch of expenses in one transaction.
func (s *SQLiteStorage) SaveExpenses(ctx context.Context, expenses []model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(expenses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expenses (owner_id, date, concept, category, amount)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, expense := range expenses {
		if !expense.Category.Valid() {
			return fmt.Errorf("expense %q has unknown category %q", expense.Concept, expense.Category)
		}
		if _, err := stmt.ExecContext(ctx,
			expense.OwnerID, expense.Date, expense.Concept,
			expense.Category.Storage(), expense.Amount); err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
	}

	return tx.Commit()
}

// GetExpenses returns a user's expenses in a date range, newest first.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, ownerID string, from, to time.Time) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %v is after %v", ErrInvalidDateRange, from, to)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, date, concept, category, amount
		FROM expenses
		WHERE owner_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC
	`, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// SearchExpenses returns the user's expenses whose concept contains the query
// text, newest first.
func (s *SQLiteStorage) SearchExpenses(ctx context.Context, ownerID, query string, limit int) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, date, concept, category, amount
		FROM expenses
		WHERE owner_id = ? AND concept LIKE '%' || ? || '%'
		ORDER BY date DESC
		LIMIT ?
	`, ownerID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// GetCategorySummary returns total spending per category in a date range.
func (s *SQLiteStorage) GetCategorySummary(ctx context.Context, ownerID string, from, to time.Time) (map[model.Category]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, SUM(amount)
		FROM expenses
		WHERE owner_id = ? AND date >= ? AND date <= ?
		GROUP BY category
	`, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query category summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := make(map[model.Category]float64)
	for rows.Next() {
		var token string
		var total float64
		if err := rows.Scan(&token, &total); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		category, err := model.CategoryFromStorage(token)
		if err != nil {
			return nil, err
		}
		summary[category] = total
	}
	return summary, rows.Err()
}

// GetTopExpenses returns the n largest expenses in a date range.
func (s *SQLiteStorage) GetTopExpenses(ctx context.Context, ownerID string, from, to time.Time, n int) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, date, concept, category, amount
		FROM expenses
		WHERE owner_id = ? AND date >= ? AND date <= ?
		ORDER BY amount DESC
		LIMIT ?
	`, ownerID, from, to, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// GetMonthlyTotals returns per-month, per-category totals for the most recent
// months, oldest month first.
func (s *SQLiteStorage) GetMonthlyTotals(ctx context.Context, ownerID string, months int) ([]model.MonthTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if months <= 0 {
		months = 6
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', date) AS month, category, SUM(amount)
		FROM expenses
		WHERE owner_id = ?
		GROUP BY month, category
		ORDER BY month ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byMonth := make(map[string]map[model.Category]float64)
	var order []string
	for rows.Next() {
		var month, token string
		var total float64
		if err := rows.Scan(&month, &token, &total); err != nil {
			return nil, fmt.Errorf("failed to scan monthly total: %w", err)
		}
		category, err := model.CategoryFromStorage(token)
		if err != nil {
			return nil, err
		}
		if _, ok := byMonth[month]; !ok {
			byMonth[month] = make(map[model.Category]float64)
			order = append(order, month)
		}
		byMonth[month][category] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(order) > months {
		order = order[len(order)-months:]
	}

	totals := make([]model.MonthTotal, 0, len(order))
	for _, month := range order {
		totals = append(totals, model.MonthTotal{Month: month, Totals: byMonth[month]})
	}
	return totals, nil
}

// SetBudget upserts one category's monthly budget limit.
func (s *SQLiteStorage) SetBudget(ctx context.Context, ownerID string, category model.Category, limit float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return err
	}
	if !category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (owner_id, category, monthly_limit, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id, category) DO UPDATE SET
			monthly_limit = excluded.monthly_limit,
			updated_at = CURRENT_TIMESTAMP
	`, ownerID, category.Storage(), limit)
	if err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

// GetBudgets returns the user's monthly budget limit per category.
func (s *SQLiteStorage) GetBudgets(ctx context.Context, ownerID string) (map[model.Category]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, monthly_limit FROM budgets WHERE owner_id = ?
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	budgets := make(map[model.Category]float64)
	for rows.Next() {
		var token string
		var limit float64
		if err := rows.Scan(&token, &limit); err != nil {
			return nil, fmt.Errorf("failed to scan budget row: %w", err)
		}
		category, err := model.CategoryFromStorage(token)
		if err != nil {
			return nil, err
		}
		budgets[category] = limit
	}
	return budgets, rows.Err()
}

func scanExpenses(rows *sql.Rows) ([]model.Expense, error) {
	var expenses []model.Expense
	for rows.Next() {
		var expense model.Expense
		var token string
		if err := rows.Scan(&expense.ID, &expense.OwnerID, &expense.Date,
			&expense.Concept, &token, &expense.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		category, err := model.CategoryFromStorage(token)
		if err != nil {
			return nil, err
		}
		expense.Category = category
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}
