package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// ConversionRateRepository implements domain.ConversionRateRepository over the
// pool. Conversion rows are shared across users and read outside any unit of
// work, so this repository does not participate in the per-user transaction.
type ConversionRateRepository struct {
	db *DB
}

// NewConversionRateRepository creates a repository over the given database
func NewConversionRateRepository(db *DB) *ConversionRateRepository {
	return &ConversionRateRepository{db: db}
}

// Get retrieves the live conversion row for a currency pair
func (r *ConversionRateRepository) Get(ctx context.Context, from, to domain.Currency) (*domain.ConversionRate, error) {
	query := `
		SELECT from_currency, to_currency, value
		FROM conversion_rates
		WHERE from_currency = $1 AND to_currency = $2
	`
	var rate domain.ConversionRate
	var valueStr string
	err := r.db.QueryRowContext(ctx, query, string(from), string(to)).Scan(
		&rate.FromCurrency, &rate.ToCurrency, &valueStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversion rate: %w", err)
	}
	if rate.Value, err = parseDecimal(valueStr, "value"); err != nil {
		return nil, err
	}
	return &rate, nil
}

// Upsert writes the single live row for the currency pair
func (r *ConversionRateRepository) Upsert(ctx context.Context, rate *domain.ConversionRate) error {
	query := `
		INSERT INTO conversion_rates (from_currency, to_currency, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (from_currency, to_currency) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := r.db.ExecContext(ctx, query,
		string(rate.FromCurrency), string(rate.ToCurrency), rate.Value.String())
	if err != nil {
		return fmt.Errorf("failed to upsert conversion rate: %w", err)
	}
	return nil
}
