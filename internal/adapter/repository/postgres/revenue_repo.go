package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const revenueColumns = `id, user_id, bank_account_id, value, description, category, date,
		is_fixed, recurring_id`

// revenueRepository implements domain.RevenueRepository over the unit of
// work's transaction
type revenueRepository struct {
	uow *unitOfWork
}

func scanRevenue(row interface{ Scan(...interface{}) error }) (*domain.Revenue, error) {
	var revenue domain.Revenue
	var recurringID sql.NullString
	var valueStr string

	err := row.Scan(
		&revenue.ID,
		&revenue.UserID,
		&revenue.BankAccountID,
		&valueStr,
		&revenue.Description,
		&revenue.Category,
		&revenue.Date,
		&revenue.IsFixed,
		&recurringID,
	)
	if err != nil {
		return nil, err
	}

	if revenue.Value, err = parseDecimal(valueStr, "value"); err != nil {
		return nil, err
	}
	if revenue.RecurringID, err = parseNullUUID(recurringID, "recurring_id"); err != nil {
		return nil, err
	}
	return &revenue, nil
}

// Get retrieves a revenue by its ID
func (r *revenueRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Revenue, error) {
	query := `SELECT ` + revenueColumns + ` FROM revenues WHERE id = $1 AND user_id = $2`

	revenue, err := scanRevenue(r.uow.tx.QueryRowContext(ctx, query, id, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get revenue: %w", err)
	}
	r.uow.markSeen(revenue)
	return revenue, nil
}

func (r *revenueRepository) insert(ctx context.Context, revenue *domain.Revenue) error {
	query := `
		INSERT INTO revenues (` + revenueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		revenue.ID,
		revenue.UserID,
		revenue.BankAccountID,
		revenue.Value.String(),
		revenue.Description,
		revenue.Category,
		revenue.Date,
		revenue.IsFixed,
		nullable(revenue.RecurringID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert revenue: %w", err)
	}
	return nil
}

// Add creates a new revenue
func (r *revenueRepository) Add(ctx context.Context, revenue *domain.Revenue) error {
	if err := r.insert(ctx, revenue); err != nil {
		return err
	}
	r.uow.markSeen(revenue)
	return nil
}

// Update persists a revenue's mutable fields
func (r *revenueRepository) Update(ctx context.Context, revenue *domain.Revenue) error {
	query := `
		UPDATE revenues
		SET bank_account_id = $1, value = $2, description = $3, category = $4,
			date = $5, is_fixed = $6, recurring_id = $7
		WHERE id = $8 AND user_id = $9
	`
	result, err := r.uow.tx.ExecContext(ctx, query,
		revenue.BankAccountID,
		revenue.Value.String(),
		revenue.Description,
		revenue.Category,
		revenue.Date,
		revenue.IsFixed,
		nullable(revenue.RecurringID),
		revenue.ID,
		r.uow.userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update revenue: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	r.uow.markSeen(revenue)
	return nil
}

// Delete removes a revenue
func (r *revenueRepository) Delete(ctx context.Context, revenue *domain.Revenue) error {
	result, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM revenues WHERE id = $1 AND user_id = $2`, revenue.ID, r.uow.userID)
	if err != nil {
		return fmt.Errorf("failed to delete revenue: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	r.uow.markSeen(revenue)
	return nil
}

// AddFutureFixed bulk-inserts the forward rows of a fixed series
func (r *revenueRepository) AddFutureFixed(ctx context.Context, revenues []*domain.Revenue) error {
	for _, revenue := range revenues {
		if err := r.insert(ctx, revenue); err != nil {
			return err
		}
	}
	return nil
}

// ListFutureFixed retrieves the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *revenueRepository) ListFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) ([]*domain.Revenue, error) {
	query := `
		SELECT ` + revenueColumns + `
		FROM revenues
		WHERE recurring_id = $1 AND user_id = $2 AND is_fixed AND date > $3
		ORDER BY date
	`
	return r.queryMany(ctx, query, recurringID, r.uow.userID, after)
}

// DeleteFutureFixed removes the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *revenueRepository) DeleteFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) error {
	_, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM revenues WHERE recurring_id = $1 AND user_id = $2 AND is_fixed AND date > $3`,
		recurringID, r.uow.userID, after)
	if err != nil {
		return fmt.Errorf("failed to delete future fixed revenues: %w", err)
	}
	return nil
}

// ListFixedInMonth retrieves the fixed revenues dated within the given month
func (r *revenueRepository) ListFixedInMonth(ctx context.Context, month time.Time) ([]*domain.Revenue, error) {
	start := domain.MonthStart(month)
	end := domain.AddMonthsClamped(start, 1)
	query := `
		SELECT ` + revenueColumns + `
		FROM revenues
		WHERE user_id = $1 AND is_fixed AND date >= $2 AND date < $3
		ORDER BY date
	`
	return r.queryMany(ctx, query, r.uow.userID, start, end)
}

// RenameCategory updates every revenue referencing the old category name
func (r *revenueRepository) RenameCategory(ctx context.Context, oldName, newName string) (int, error) {
	result, err := r.uow.tx.ExecContext(ctx,
		`UPDATE revenues SET category = $1 WHERE category = $2 AND user_id = $3`,
		newName, oldName, r.uow.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to rename revenue category: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func (r *revenueRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*domain.Revenue, error) {
	rows, err := r.uow.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenues: %w", err)
	}
	defer rows.Close()

	var revenues []*domain.Revenue
	for rows.Next() {
		revenue, err := scanRevenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revenue: %w", err)
		}
		revenues = append(revenues, revenue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revenues: %w", err)
	}
	return revenues, nil
}
