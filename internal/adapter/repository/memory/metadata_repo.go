package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// metadataRepository implements domain.AssetMetaDataRepository over the
// store. Metadata rows are shared across users; this repository ignores the
// unit of work's user scope.
type metadataRepository struct {
	uow *unitOfWork
}

// Get retrieves a metadata row by its ID
func (r *metadataRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AssetMetaData, error) {
	row, ok := r.uow.store.metadata[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMetadata(row), nil
}

// FilterOne retrieves the shared metadata row for a public asset identity
func (r *metadataRepository) FilterOne(ctx context.Context, identity domain.AssetIdentity) (*domain.AssetMetaData, error) {
	for _, row := range r.uow.store.metadata {
		if row.AssetID == nil && row.Code == identity.Code &&
			row.Type == identity.Type && row.Currency == identity.Currency {
			return cloneMetadata(row), nil
		}
	}
	return nil, domain.ErrNotFound
}

// Exists reports whether a shared metadata row exists for the identity
func (r *metadataRepository) Exists(ctx context.Context, identity domain.AssetIdentity) (bool, error) {
	_, err := r.FilterOne(ctx, identity)
	if err == domain.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FilterForAsset retrieves the metadata row backing the asset
func (r *metadataRepository) FilterForAsset(ctx context.Context, asset *domain.Asset) (*domain.AssetMetaData, error) {
	if asset.IsHeldInSelfCustody {
		for _, row := range r.uow.store.metadata {
			if row.AssetID != nil && *row.AssetID == asset.ID {
				return cloneMetadata(row), nil
			}
		}
		return nil, domain.ErrNotFound
	}
	return r.FilterOne(ctx, asset.Identity())
}

// Create inserts a new metadata row
func (r *metadataRepository) Create(ctx context.Context, metadata *domain.AssetMetaData) error {
	id := metadata.ID
	r.uow.store.metadata[id] = cloneMetadata(metadata)
	r.uow.addUndo(func() { delete(r.uow.store.metadata, id) })
	return nil
}

// FilterAssetsEligibleForUpdate returns the metadata rows of assets held by
// any user with positive quantity balance
func (r *metadataRepository) FilterAssetsEligibleForUpdate(ctx context.Context) ([]*domain.AssetMetaData, error) {
	// Identities of positions with positive quantity, across all users
	held := make(map[domain.AssetIdentity]bool)
	heldAssets := make(map[uuid.UUID]bool)
	for _, row := range r.uow.store.readModels {
		if row.QuantityBalance.IsPositive() {
			held[domain.AssetIdentity{Code: row.Code, Type: row.Type, Currency: row.Currency}] = true
			heldAssets[row.WriteModelPK] = true
		}
	}

	var rows []*domain.AssetMetaData
	for _, row := range r.uow.store.metadata {
		if row.AssetID != nil {
			if heldAssets[*row.AssetID] {
				rows = append(rows, cloneMetadata(row))
			}
			continue
		}
		if held[domain.AssetIdentity{Code: row.Code, Type: row.Type, Currency: row.Currency}] {
			rows = append(rows, cloneMetadata(row))
		}
	}
	return rows, nil
}

// BulkUpdate persists refreshed prices
func (r *metadataRepository) BulkUpdate(ctx context.Context, metadata []*domain.AssetMetaData) error {
	for _, row := range metadata {
		previous, ok := r.uow.store.metadata[row.ID]
		if !ok {
			return domain.ErrNotFound
		}
		id := row.ID
		r.uow.store.metadata[id] = cloneMetadata(row)
		r.uow.addUndo(func() { r.uow.store.metadata[id] = previous })
	}
	return nil
}
