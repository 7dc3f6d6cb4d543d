package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const assetColumns = `id, user_id, code, type, currency, objective, description,
		liquidity_type, maturity_date, is_held_in_self_custody`

// assetRepository implements domain.AssetRepository over the unit of work's
// transaction. Get and GetByIdentity hydrate the aggregate with its
// transactions and passive incomes.
type assetRepository struct {
	uow *unitOfWork
}

func scanAsset(row interface{ Scan(...interface{}) error }) (*domain.Asset, error) {
	var asset domain.Asset
	var liquidity sql.NullString
	var maturity sql.NullTime

	err := row.Scan(
		&asset.ID,
		&asset.UserID,
		&asset.Code,
		&asset.Type,
		&asset.Currency,
		&asset.Objective,
		&asset.Description,
		&liquidity,
		&maturity,
		&asset.IsHeldInSelfCustody,
	)
	if err != nil {
		return nil, err
	}

	if liquidity.Valid {
		l := domain.LiquidityType(liquidity.String)
		asset.LiquidityType = &l
	}
	if maturity.Valid {
		t := maturity.Time
		asset.MaturityDate = &t
	}
	return &asset, nil
}

// Get retrieves an asset with its transactions and passive incomes hydrated
func (r *assetRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1 AND user_id = $2`

	asset, err := scanAsset(r.uow.tx.QueryRowContext(ctx, query, id, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	if err := r.hydrate(ctx, asset); err != nil {
		return nil, err
	}
	r.uow.markSeen(asset)
	return asset, nil
}

// GetByIdentity retrieves the user's asset with the given (code, type,
// currency) key, hydrated
func (r *assetRepository) GetByIdentity(ctx context.Context, identity domain.AssetIdentity) (*domain.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE user_id = $1 AND code = $2 AND type = $3 AND currency = $4
	`
	asset, err := scanAsset(r.uow.tx.QueryRowContext(ctx, query,
		r.uow.userID, identity.Code, string(identity.Type), string(identity.Currency)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset by identity: %w", err)
	}
	if err := r.hydrate(ctx, asset); err != nil {
		return nil, err
	}
	r.uow.markSeen(asset)
	return asset, nil
}

// List retrieves the user's assets, unhydrated
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE user_id = $1 ORDER BY code`

	rows, err := r.uow.tx.QueryContext(ctx, query, r.uow.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}

// Add creates a new asset
func (r *assetRepository) Add(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var liquidity interface{}
	if asset.LiquidityType != nil {
		liquidity = string(*asset.LiquidityType)
	}
	var maturity interface{}
	if asset.MaturityDate != nil {
		maturity = *asset.MaturityDate
	}

	_, err := r.uow.tx.ExecContext(ctx, query,
		asset.ID,
		asset.UserID,
		asset.Code,
		string(asset.Type),
		string(asset.Currency),
		asset.Objective,
		asset.Description,
		liquidity,
		maturity,
		asset.IsHeldInSelfCustody,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	r.uow.markSeen(asset)
	return nil
}

// Update persists an asset's mutable fields
func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	query := `
		UPDATE assets
		SET objective = $1, description = $2, liquidity_type = $3, maturity_date = $4
		WHERE id = $5 AND user_id = $6
	`
	var liquidity interface{}
	if asset.LiquidityType != nil {
		liquidity = string(*asset.LiquidityType)
	}
	var maturity interface{}
	if asset.MaturityDate != nil {
		maturity = *asset.MaturityDate
	}

	result, err := r.uow.tx.ExecContext(ctx, query,
		asset.Objective,
		asset.Description,
		liquidity,
		maturity,
		asset.ID,
		r.uow.userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	r.uow.markSeen(asset)
	return nil
}

// Delete removes an asset; transactions and incomes cascade at the schema
// level
func (r *assetRepository) Delete(ctx context.Context, asset *domain.Asset) error {
	result, err := r.uow.tx.ExecContext(ctx,
		`DELETE FROM assets WHERE id = $1 AND user_id = $2`, asset.ID, r.uow.userID)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	r.uow.markSeen(asset)
	return nil
}

func (r *assetRepository) hydrate(ctx context.Context, asset *domain.Asset) error {
	txs, err := r.uow.transactions.ListByAsset(ctx, asset.ID)
	if err != nil {
		return err
	}
	incomes, err := r.uow.incomes.ListByAsset(ctx, asset.ID)
	if err != nil {
		return err
	}
	asset.Transactions = txs
	asset.PassiveIncomes = incomes
	return nil
}
