package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const metadataColumns = `id, code, type, currency, sector, current_price,
		current_price_updated_at, asset_id`

// metadataRepository implements domain.AssetMetaDataRepository over the unit
// of work's transaction. Metadata rows are shared across users; queries here
// do not carry the user scope.
type metadataRepository struct {
	uow *unitOfWork
}

func scanMetadata(row interface{ Scan(...interface{}) error }) (*domain.AssetMetaData, error) {
	var md domain.AssetMetaData
	var priceStr string
	var updatedAt sql.NullTime
	var assetID sql.NullString

	err := row.Scan(
		&md.ID,
		&md.Code,
		&md.Type,
		&md.Currency,
		&md.Sector,
		&priceStr,
		&updatedAt,
		&assetID,
	)
	if err != nil {
		return nil, err
	}

	if md.CurrentPrice, err = parseDecimal(priceStr, "current_price"); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		md.CurrentPriceUpdatedAt = &t
	}
	if md.AssetID, err = parseNullUUID(assetID, "asset_id"); err != nil {
		return nil, err
	}
	return &md, nil
}

// Get retrieves a metadata row by its ID
func (r *metadataRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AssetMetaData, error) {
	query := `SELECT ` + metadataColumns + ` FROM asset_metadata WHERE id = $1`

	md, err := scanMetadata(r.uow.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset metadata: %w", err)
	}
	return md, nil
}

// FilterOne retrieves the shared metadata row for a public asset identity
func (r *metadataRepository) FilterOne(ctx context.Context, identity domain.AssetIdentity) (*domain.AssetMetaData, error) {
	query := `
		SELECT ` + metadataColumns + `
		FROM asset_metadata
		WHERE asset_id IS NULL AND code = $1 AND type = $2 AND currency = $3
	`
	md, err := scanMetadata(r.uow.tx.QueryRowContext(ctx, query,
		identity.Code, string(identity.Type), string(identity.Currency)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to filter asset metadata: %w", err)
	}
	return md, nil
}

// Exists reports whether a shared metadata row exists for the identity
func (r *metadataRepository) Exists(ctx context.Context, identity domain.AssetIdentity) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM asset_metadata
			WHERE asset_id IS NULL AND code = $1 AND type = $2 AND currency = $3
		)
	`
	var exists bool
	err := r.uow.tx.QueryRowContext(ctx, query,
		identity.Code, string(identity.Type), string(identity.Currency)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check asset metadata existence: %w", err)
	}
	return exists, nil
}

// FilterForAsset retrieves the metadata row backing the asset
func (r *metadataRepository) FilterForAsset(ctx context.Context, asset *domain.Asset) (*domain.AssetMetaData, error) {
	if asset.IsHeldInSelfCustody {
		query := `SELECT ` + metadataColumns + ` FROM asset_metadata WHERE asset_id = $1`

		md, err := scanMetadata(r.uow.tx.QueryRowContext(ctx, query, asset.ID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("failed to filter asset metadata: %w", err)
		}
		return md, nil
	}
	return r.FilterOne(ctx, asset.Identity())
}

// Create inserts a new metadata row
func (r *metadataRepository) Create(ctx context.Context, metadata *domain.AssetMetaData) error {
	query := `
		INSERT INTO asset_metadata (` + metadataColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var updatedAt interface{}
	if metadata.CurrentPriceUpdatedAt != nil {
		updatedAt = *metadata.CurrentPriceUpdatedAt
	}

	_, err := r.uow.tx.ExecContext(ctx, query,
		metadata.ID,
		metadata.Code,
		string(metadata.Type),
		string(metadata.Currency),
		metadata.Sector,
		metadata.CurrentPrice.String(),
		updatedAt,
		nullable(metadata.AssetID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset metadata: %w", err)
	}
	return nil
}

// FilterAssetsEligibleForUpdate returns the metadata rows of assets held by
// any user with positive quantity balance. Shared rows match on identity,
// self-custody rows on the backing asset.
func (r *metadataRepository) FilterAssetsEligibleForUpdate(ctx context.Context) ([]*domain.AssetMetaData, error) {
	query := `
		SELECT DISTINCT m.id, m.code, m.type, m.currency, m.sector, m.current_price,
			m.current_price_updated_at, m.asset_id
		FROM asset_metadata m
		JOIN asset_read_models rm
			ON (m.asset_id IS NULL
				AND rm.code = m.code AND rm.type = m.type AND rm.currency = m.currency)
			OR rm.write_model_pk = m.asset_id
		WHERE rm.quantity_balance > 0
	`
	rows, err := r.uow.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible asset metadata: %w", err)
	}
	defer rows.Close()

	var metadata []*domain.AssetMetaData
	for rows.Next() {
		md, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset metadata: %w", err)
		}
		metadata = append(metadata, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset metadata: %w", err)
	}
	return metadata, nil
}

// BulkUpdate persists refreshed prices
func (r *metadataRepository) BulkUpdate(ctx context.Context, metadata []*domain.AssetMetaData) error {
	query := `
		UPDATE asset_metadata
		SET sector = $1, current_price = $2, current_price_updated_at = $3
		WHERE id = $4
	`
	for _, md := range metadata {
		var updatedAt interface{}
		if md.CurrentPriceUpdatedAt != nil {
			updatedAt = *md.CurrentPriceUpdatedAt
		}
		result, err := r.uow.tx.ExecContext(ctx, query,
			md.Sector, md.CurrentPrice.String(), updatedAt, md.ID)
		if err != nil {
			return fmt.Errorf("failed to update asset metadata: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}
