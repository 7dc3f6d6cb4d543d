package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const incomeColumns = `id, asset_id, type, event_type, amount, operation_date,
		currency_conversion_rate`

// passiveIncomeRepository implements domain.PassiveIncomeRepository over the
// unit of work's transaction
type passiveIncomeRepository struct {
	uow *unitOfWork
}

func scanIncome(row interface{ Scan(...interface{}) error }) (*domain.PassiveIncome, error) {
	var income domain.PassiveIncome
	var amountStr, rateStr string

	err := row.Scan(
		&income.ID,
		&income.AssetID,
		&income.Type,
		&income.EventType,
		&amountStr,
		&income.OperationDate,
		&rateStr,
	)
	if err != nil {
		return nil, err
	}

	if income.Amount, err = parseDecimal(amountStr, "amount"); err != nil {
		return nil, err
	}
	if income.CurrencyConversionRate, err = parseDecimal(rateStr, "currency_conversion_rate"); err != nil {
		return nil, err
	}
	return &income, nil
}

// Get retrieves a passive income by its ID, scoped through the asset owner
func (r *passiveIncomeRepository) Get(ctx context.Context, id uuid.UUID) (*domain.PassiveIncome, error) {
	query := `
		SELECT p.id, p.asset_id, p.type, p.event_type, p.amount, p.operation_date,
			p.currency_conversion_rate
		FROM passive_incomes p
		JOIN assets a ON a.id = p.asset_id
		WHERE p.id = $1 AND a.user_id = $2
	`
	income, err := scanIncome(r.uow.tx.QueryRowContext(ctx, query, id, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get passive income: %w", err)
	}
	return income, nil
}

// Add creates a new passive income
func (r *passiveIncomeRepository) Add(ctx context.Context, income *domain.PassiveIncome) error {
	query := `
		INSERT INTO passive_incomes (` + incomeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		income.ID,
		income.AssetID,
		string(income.Type),
		string(income.EventType),
		income.Amount.String(),
		income.OperationDate,
		income.CurrencyConversionRate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert passive income: %w", err)
	}
	return nil
}

// Update persists a passive income's mutable fields
func (r *passiveIncomeRepository) Update(ctx context.Context, income *domain.PassiveIncome) error {
	query := `
		UPDATE passive_incomes
		SET type = $1, event_type = $2, amount = $3, operation_date = $4,
			currency_conversion_rate = $5
		WHERE id = $6
	`
	result, err := r.uow.tx.ExecContext(ctx, query,
		string(income.Type),
		string(income.EventType),
		income.Amount.String(),
		income.OperationDate,
		income.CurrencyConversionRate.String(),
		income.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update passive income: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a passive income
func (r *passiveIncomeRepository) Delete(ctx context.Context, income *domain.PassiveIncome) error {
	result, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM passive_incomes WHERE id = $1`, income.ID)
	if err != nil {
		return fmt.Errorf("failed to delete passive income: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByAsset retrieves an asset's passive incomes ordered by operation date
func (r *passiveIncomeRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.PassiveIncome, error) {
	query := `
		SELECT ` + incomeColumns + `
		FROM passive_incomes
		WHERE asset_id = $1
		ORDER BY operation_date, id
	`
	rows, err := r.uow.tx.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query passive incomes: %w", err)
	}
	defer rows.Close()

	var incomes []*domain.PassiveIncome
	for rows.Next() {
		income, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passive income: %w", err)
		}
		incomes = append(incomes, income)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passive incomes: %w", err)
	}
	return incomes, nil
}
