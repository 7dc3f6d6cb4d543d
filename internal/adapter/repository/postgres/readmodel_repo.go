package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const readModelColumns = `write_model_pk, user_id, code, type, currency, objective,
		quantity_balance, avg_price, normalized_avg_price, normalized_total_bought,
		normalized_total_sold, normalized_closed_roi, credited_incomes,
		normalized_credited_incomes, metadata_id`

// readModelRepository implements domain.ReadModelRepository over the unit of
// work's transaction
type readModelRepository struct {
	uow *unitOfWork
}

func scanReadModel(row interface{ Scan(...interface{}) error }) (*domain.AssetReadModel, error) {
	var rm domain.AssetReadModel
	var metadataID sql.NullString
	var quantityStr, avgStr, normAvgStr, boughtStr, soldStr, closedStr, incomesStr, normIncomesStr string

	err := row.Scan(
		&rm.WriteModelPK,
		&rm.UserID,
		&rm.Code,
		&rm.Type,
		&rm.Currency,
		&rm.Objective,
		&quantityStr,
		&avgStr,
		&normAvgStr,
		&boughtStr,
		&soldStr,
		&closedStr,
		&incomesStr,
		&normIncomesStr,
		&metadataID,
	)
	if err != nil {
		return nil, err
	}

	if rm.QuantityBalance, err = parseDecimal(quantityStr, "quantity_balance"); err != nil {
		return nil, err
	}
	if rm.AvgPrice, err = parseDecimal(avgStr, "avg_price"); err != nil {
		return nil, err
	}
	if rm.NormalizedAvgPrice, err = parseDecimal(normAvgStr, "normalized_avg_price"); err != nil {
		return nil, err
	}
	if rm.NormalizedTotalBought, err = parseDecimal(boughtStr, "normalized_total_bought"); err != nil {
		return nil, err
	}
	if rm.NormalizedTotalSold, err = parseDecimal(soldStr, "normalized_total_sold"); err != nil {
		return nil, err
	}
	if rm.NormalizedClosedROI, err = parseDecimal(closedStr, "normalized_closed_roi"); err != nil {
		return nil, err
	}
	if rm.CreditedIncomes, err = parseDecimal(incomesStr, "credited_incomes"); err != nil {
		return nil, err
	}
	if rm.NormalizedCreditedIncomes, err = parseDecimal(normIncomesStr, "normalized_credited_incomes"); err != nil {
		return nil, err
	}
	if rm.MetadataID, err = parseNullUUID(metadataID, "metadata_id"); err != nil {
		return nil, err
	}
	return &rm, nil
}

// Get retrieves the read row keyed by the write-model primary key
func (r *readModelRepository) Get(ctx context.Context, writeModelPK uuid.UUID) (*domain.AssetReadModel, error) {
	query := `SELECT ` + readModelColumns + ` FROM asset_read_models WHERE write_model_pk = $1 AND user_id = $2`

	rm, err := scanReadModel(r.uow.tx.QueryRowContext(ctx, query, writeModelPK, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset read model: %w", err)
	}
	return rm, nil
}

// List retrieves the user's read rows
func (r *readModelRepository) List(ctx context.Context) ([]*domain.AssetReadModel, error) {
	query := `SELECT ` + readModelColumns + ` FROM asset_read_models WHERE user_id = $1 ORDER BY code`

	rows, err := r.uow.tx.QueryContext(ctx, query, r.uow.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset read models: %w", err)
	}
	defer rows.Close()

	var models []*domain.AssetReadModel
	for rows.Next() {
		rm, err := scanReadModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset read model: %w", err)
		}
		models = append(models, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset read models: %w", err)
	}
	return models, nil
}

// Upsert writes the full row in one statement keyed by write_model_pk
func (r *readModelRepository) Upsert(ctx context.Context, row *domain.AssetReadModel) error {
	query := `
		INSERT INTO asset_read_models (` + readModelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (write_model_pk) DO UPDATE SET
			code = EXCLUDED.code,
			type = EXCLUDED.type,
			currency = EXCLUDED.currency,
			objective = EXCLUDED.objective,
			quantity_balance = EXCLUDED.quantity_balance,
			avg_price = EXCLUDED.avg_price,
			normalized_avg_price = EXCLUDED.normalized_avg_price,
			normalized_total_bought = EXCLUDED.normalized_total_bought,
			normalized_total_sold = EXCLUDED.normalized_total_sold,
			normalized_closed_roi = EXCLUDED.normalized_closed_roi,
			credited_incomes = EXCLUDED.credited_incomes,
			normalized_credited_incomes = EXCLUDED.normalized_credited_incomes,
			metadata_id = EXCLUDED.metadata_id
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		row.WriteModelPK,
		row.UserID,
		row.Code,
		string(row.Type),
		string(row.Currency),
		row.Objective,
		row.QuantityBalance.String(),
		row.AvgPrice.String(),
		row.NormalizedAvgPrice.String(),
		row.NormalizedTotalBought.String(),
		row.NormalizedTotalSold.String(),
		row.NormalizedClosedROI.String(),
		row.CreditedIncomes.String(),
		row.NormalizedCreditedIncomes.String(),
		nullable(row.MetadataID),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset read model: %w", err)
	}
	return nil
}

// Delete removes the read row
func (r *readModelRepository) Delete(ctx context.Context, writeModelPK uuid.UUID) error {
	_, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM asset_read_models WHERE write_model_pk = $1 AND user_id = $2`,
		writeModelPK, r.uow.userID)
	if err != nil {
		return fmt.Errorf("failed to delete asset read model: %w", err)
	}
	return nil
}

// closedOperationRepository implements domain.ClosedOperationRepository over
// the unit of work's transaction. Append-only.
type closedOperationRepository struct {
	uow *unitOfWork
}

const closedOpColumns = `id, asset_id, operation_datetime, normalized_total_bought,
		total_bought, quantity_bought, normalized_total_sold,
		normalized_credited_incomes, credited_incomes`

func scanClosedOp(row interface{ Scan(...interface{}) error }) (*domain.AssetClosedOperation, error) {
	var op domain.AssetClosedOperation
	var boughtStr, totalStr, qtyStr, soldStr, normIncomesStr, incomesStr string

	err := row.Scan(
		&op.ID,
		&op.AssetID,
		&op.OperationDatetime,
		&boughtStr,
		&totalStr,
		&qtyStr,
		&soldStr,
		&normIncomesStr,
		&incomesStr,
	)
	if err != nil {
		return nil, err
	}

	if op.NormalizedTotalBought, err = parseDecimal(boughtStr, "normalized_total_bought"); err != nil {
		return nil, err
	}
	if op.TotalBought, err = parseDecimal(totalStr, "total_bought"); err != nil {
		return nil, err
	}
	if op.QuantityBought, err = parseDecimal(qtyStr, "quantity_bought"); err != nil {
		return nil, err
	}
	if op.NormalizedTotalSold, err = parseDecimal(soldStr, "normalized_total_sold"); err != nil {
		return nil, err
	}
	if op.NormalizedCreditedIncomes, err = parseDecimal(normIncomesStr, "normalized_credited_incomes"); err != nil {
		return nil, err
	}
	if op.CreditedIncomes, err = parseDecimal(incomesStr, "credited_incomes"); err != nil {
		return nil, err
	}
	return &op, nil
}

// Add appends a settlement record
func (r *closedOperationRepository) Add(ctx context.Context, op *domain.AssetClosedOperation) error {
	query := `
		INSERT INTO asset_closed_operations (` + closedOpColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		op.ID,
		op.AssetID,
		op.OperationDatetime,
		op.NormalizedTotalBought.String(),
		op.TotalBought.String(),
		op.QuantityBought.String(),
		op.NormalizedTotalSold.String(),
		op.NormalizedCreditedIncomes.String(),
		op.CreditedIncomes.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert closed operation: %w", err)
	}
	return nil
}

// ListByAsset retrieves an asset's settlement records, oldest first
func (r *closedOperationRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.AssetClosedOperation, error) {
	query := `
		SELECT ` + closedOpColumns + `
		FROM asset_closed_operations
		WHERE asset_id = $1
		ORDER BY operation_datetime
	`
	rows, err := r.uow.tx.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed operations: %w", err)
	}
	defer rows.Close()

	var ops []*domain.AssetClosedOperation
	for rows.Next() {
		op, err := scanClosedOp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closed operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate closed operations: %w", err)
	}
	return ops, nil
}

// GetLatest retrieves the most recent settlement for an asset
func (r *closedOperationRepository) GetLatest(ctx context.Context, assetID uuid.UUID) (*domain.AssetClosedOperation, error) {
	query := `
		SELECT ` + closedOpColumns + `
		FROM asset_closed_operations
		WHERE asset_id = $1
		ORDER BY operation_datetime DESC
		LIMIT 1
	`
	op, err := scanClosedOp(r.uow.tx.QueryRowContext(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest closed operation: %w", err)
	}
	return op, nil
}
