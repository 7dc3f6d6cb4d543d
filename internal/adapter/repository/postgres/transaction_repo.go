package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const transactionColumns = `id, asset_id, action, price, quantity, currency, initial_price,
		operation_date, currency_conversion_rate, external_id`

// transactionRepository implements domain.TransactionRepository over the unit
// of work's transaction. Ownership checks go through the asset join.
type transactionRepository struct {
	uow *unitOfWork
}

func scanTransaction(row interface{ Scan(...interface{}) error }) (*domain.Transaction, error) {
	var tx domain.Transaction
	var priceStr, quantityStr, rateStr string
	var initialStr, externalID sql.NullString

	err := row.Scan(
		&tx.ID,
		&tx.AssetID,
		&tx.Action,
		&priceStr,
		&quantityStr,
		&tx.Currency,
		&initialStr,
		&tx.OperationDate,
		&rateStr,
		&externalID,
	)
	if err != nil {
		return nil, err
	}

	if tx.Price, err = parseDecimal(priceStr, "price"); err != nil {
		return nil, err
	}
	if tx.Quantity, err = parseDecimal(quantityStr, "quantity"); err != nil {
		return nil, err
	}
	if tx.CurrencyConversionRate, err = parseDecimal(rateStr, "currency_conversion_rate"); err != nil {
		return nil, err
	}
	if initialStr.Valid {
		initial, err := parseDecimal(initialStr.String, "initial_price")
		if err != nil {
			return nil, err
		}
		tx.InitialPrice = &initial
	}
	if externalID.Valid {
		s := externalID.String
		tx.ExternalID = &s
	}
	return &tx, nil
}

// Get retrieves a transaction by its ID, scoped through the asset owner
func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT t.id, t.asset_id, t.action, t.price, t.quantity, t.currency, t.initial_price,
			t.operation_date, t.currency_conversion_rate, t.external_id
		FROM transactions t
		JOIN assets a ON a.id = t.asset_id
		WHERE t.id = $1 AND a.user_id = $2
	`
	tx, err := scanTransaction(r.uow.tx.QueryRowContext(ctx, query, id, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// Add creates a new transaction
func (r *transactionRepository) Add(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		tx.ID,
		tx.AssetID,
		string(tx.Action),
		tx.Price.String(),
		tx.Quantity.String(),
		string(tx.Currency),
		nullableDecimal(tx.InitialPrice),
		tx.OperationDate,
		tx.CurrencyConversionRate.String(),
		nullableString(tx.ExternalID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// AddBatch bulk-inserts transactions
func (r *transactionRepository) AddBatch(ctx context.Context, txs []*domain.Transaction) error {
	for _, tx := range txs {
		if err := r.Add(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// Update persists a transaction's mutable fields; identity is immutable
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET price = $1, quantity = $2, initial_price = $3, operation_date = $4,
			currency_conversion_rate = $5
		WHERE id = $6
	`
	result, err := r.uow.tx.ExecContext(ctx, query,
		tx.Price.String(),
		tx.Quantity.String(),
		nullableDecimal(tx.InitialPrice),
		tx.OperationDate,
		tx.CurrencyConversionRate.String(),
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a transaction
func (r *transactionRepository) Delete(ctx context.Context, tx *domain.Transaction) error {
	result, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1`, tx.ID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByAsset retrieves an asset's transactions ordered by operation date
func (r *transactionRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE asset_id = $1
		ORDER BY operation_date, id
	`
	rows, err := r.uow.tx.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}
