package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const expenseColumns = `id, user_id, bank_account_id, value, description, category, source,
		date, is_fixed, recurring_id, installments_id, installment_number, installments_qty`

// expenseRepository implements domain.ExpenseRepository over the unit of
// work's transaction. Get and Add record the aggregate in the seen set so its
// events can be harvested.
type expenseRepository struct {
	uow *unitOfWork
}

func scanExpense(row interface{ Scan(...interface{}) error }) (*domain.Expense, error) {
	var expense domain.Expense
	var accountID, recurringID, installmentsID sql.NullString
	var valueStr string
	var number, qty sql.NullInt64

	err := row.Scan(
		&expense.ID,
		&expense.UserID,
		&accountID,
		&valueStr,
		&expense.Description,
		&expense.Category,
		&expense.Source,
		&expense.Date,
		&expense.IsFixed,
		&recurringID,
		&installmentsID,
		&number,
		&qty,
	)
	if err != nil {
		return nil, err
	}

	if expense.Value, err = parseDecimal(valueStr, "value"); err != nil {
		return nil, err
	}
	if expense.BankAccountID, err = parseNullUUID(accountID, "bank_account_id"); err != nil {
		return nil, err
	}
	if expense.RecurringID, err = parseNullUUID(recurringID, "recurring_id"); err != nil {
		return nil, err
	}
	if expense.InstallmentsID, err = parseNullUUID(installmentsID, "installments_id"); err != nil {
		return nil, err
	}
	if number.Valid {
		n := int(number.Int64)
		expense.InstallmentNumber = &n
	}
	if qty.Valid {
		n := int(qty.Int64)
		expense.InstallmentsQty = &n
	}
	return &expense, nil
}

// Get retrieves an expense by its ID
func (r *expenseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`

	expense, err := scanExpense(r.uow.tx.QueryRowContext(ctx, query, id, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	r.uow.markSeen(expense)
	return expense, nil
}

func (r *expenseRepository) insert(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		expense.ID,
		expense.UserID,
		nullable(expense.BankAccountID),
		expense.Value.String(),
		expense.Description,
		expense.Category,
		string(expense.Source),
		expense.Date,
		expense.IsFixed,
		nullable(expense.RecurringID),
		nullable(expense.InstallmentsID),
		nullableInt(expense.InstallmentNumber),
		nullableInt(expense.InstallmentsQty),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// Add creates a new expense
func (r *expenseRepository) Add(ctx context.Context, expense *domain.Expense) error {
	if err := r.insert(ctx, expense); err != nil {
		return err
	}
	r.uow.markSeen(expense)
	return nil
}

// Update persists an expense's mutable fields
func (r *expenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET bank_account_id = $1, value = $2, description = $3, category = $4,
			source = $5, date = $6, is_fixed = $7, recurring_id = $8
		WHERE id = $9 AND user_id = $10
	`
	result, err := r.uow.tx.ExecContext(ctx, query,
		nullable(expense.BankAccountID),
		expense.Value.String(),
		expense.Description,
		expense.Category,
		string(expense.Source),
		expense.Date,
		expense.IsFixed,
		nullable(expense.RecurringID),
		expense.ID,
		r.uow.userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	r.uow.markSeen(expense)
	return nil
}

// Delete removes an expense
func (r *expenseRepository) Delete(ctx context.Context, expense *domain.Expense) error {
	result, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`, expense.ID, r.uow.userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	r.uow.markSeen(expense)
	return nil
}

// AddInstallments bulk-inserts an installment group. The first installment is
// the aggregate carrying the group's events.
func (r *expenseRepository) AddInstallments(ctx context.Context, installments []*domain.Expense) error {
	for i, installment := range installments {
		if err := r.insert(ctx, installment); err != nil {
			return err
		}
		if i == 0 {
			r.uow.markSeen(installment)
		}
	}
	return nil
}

// GetInstallments retrieves all siblings sharing an installments ID
func (r *expenseRepository) GetInstallments(ctx context.Context, installmentsID uuid.UUID) ([]*domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE installments_id = $1 AND user_id = $2
		ORDER BY installment_number
	`
	return r.queryMany(ctx, query, installmentsID, r.uow.userID)
}

// AddFutureFixed bulk-inserts the forward rows of a fixed series
func (r *expenseRepository) AddFutureFixed(ctx context.Context, expenses []*domain.Expense) error {
	for _, expense := range expenses {
		if err := r.insert(ctx, expense); err != nil {
			return err
		}
	}
	return nil
}

// ListFutureFixed retrieves the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *expenseRepository) ListFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) ([]*domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE recurring_id = $1 AND user_id = $2 AND is_fixed AND date > $3
		ORDER BY date
	`
	return r.queryMany(ctx, query, recurringID, r.uow.userID, after)
}

// DeleteFutureFixed removes the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *expenseRepository) DeleteFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) error {
	_, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE recurring_id = $1 AND user_id = $2 AND is_fixed AND date > $3`,
		recurringID, r.uow.userID, after)
	if err != nil {
		return fmt.Errorf("failed to delete future fixed expenses: %w", err)
	}
	return nil
}

// ListFixedInMonth retrieves the fixed expenses dated within the given month
func (r *expenseRepository) ListFixedInMonth(ctx context.Context, month time.Time) ([]*domain.Expense, error) {
	start := domain.MonthStart(month)
	end := domain.AddMonthsClamped(start, 1)
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1 AND is_fixed AND date >= $2 AND date < $3
		ORDER BY date
	`
	return r.queryMany(ctx, query, r.uow.userID, start, end)
}

// SumBySourceInPeriod sums expense values for a bank account and source with
// dates in [from, to)
func (r *expenseRepository) SumBySourceInPeriod(ctx context.Context, bankAccountID uuid.UUID, source domain.ExpenseSource, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(value), 0)
		FROM expenses
		WHERE user_id = $1 AND bank_account_id = $2 AND source = $3
			AND date >= $4 AND date < $5
	`
	var totalStr string
	err := r.uow.tx.QueryRowContext(ctx, query,
		r.uow.userID, bankAccountID, string(source), from, to).Scan(&totalStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return parseDecimal(totalStr, "value sum")
}

// RenameCategory updates every expense referencing the old category name
func (r *expenseRepository) RenameCategory(ctx context.Context, oldName, newName string) (int, error) {
	result, err := r.uow.tx.ExecContext(ctx,
		`UPDATE expenses SET category = $1 WHERE category = $2 AND user_id = $3`,
		newName, oldName, r.uow.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to rename expense category: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// RenameSource updates every expense referencing the old source name
func (r *expenseRepository) RenameSource(ctx context.Context, oldName, newName string) (int, error) {
	result, err := r.uow.tx.ExecContext(ctx,
		`UPDATE expenses SET source = $1 WHERE source = $2 AND user_id = $3`,
		newName, oldName, r.uow.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to rename expense source: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func (r *expenseRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*domain.Expense, error) {
	rows, err := r.uow.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}
