package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository over the store.
// Get hydrates the aggregate with its transactions and passive incomes.
type assetRepository struct {
	uow *unitOfWork
}

func (r *assetRepository) row(id uuid.UUID) (*domain.Asset, bool) {
	row, ok := r.uow.store.assets[id]
	if !ok || row.UserID != r.uow.userID {
		return nil, false
	}
	return row, true
}

func (r *assetRepository) hydrate(asset *domain.Asset) {
	for _, tx := range r.uow.store.transactions {
		if tx.AssetID == asset.ID {
			asset.Transactions = append(asset.Transactions, cloneTransaction(tx))
		}
	}
	sort.Slice(asset.Transactions, func(i, j int) bool {
		return asset.Transactions[i].OperationDate.Before(asset.Transactions[j].OperationDate)
	})
	for _, income := range r.uow.store.incomes {
		if income.AssetID == asset.ID {
			asset.PassiveIncomes = append(asset.PassiveIncomes, cloneIncome(income))
		}
	}
	sort.Slice(asset.PassiveIncomes, func(i, j int) bool {
		return asset.PassiveIncomes[i].OperationDate.Before(asset.PassiveIncomes[j].OperationDate)
	})
}

// Get retrieves an asset with its transactions and passive incomes hydrated
func (r *assetRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	row, ok := r.row(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	asset := cloneAsset(row)
	r.hydrate(asset)
	r.uow.markSeen(asset)
	return asset, nil
}

// GetByIdentity retrieves the user's asset with the given key, hydrated
func (r *assetRepository) GetByIdentity(ctx context.Context, identity domain.AssetIdentity) (*domain.Asset, error) {
	for _, row := range r.uow.store.assets {
		if row.UserID == r.uow.userID && row.Identity() == identity {
			asset := cloneAsset(row)
			r.hydrate(asset)
			r.uow.markSeen(asset)
			return asset, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List retrieves the user's assets, hydrated
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	var rows []*domain.Asset
	for _, row := range r.uow.store.assets {
		if row.UserID == r.uow.userID {
			asset := cloneAsset(row)
			r.hydrate(asset)
			rows = append(rows, asset)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

// Add creates a new asset
func (r *assetRepository) Add(ctx context.Context, asset *domain.Asset) error {
	id := asset.ID
	r.uow.store.assets[id] = cloneAsset(asset)
	r.uow.addUndo(func() { delete(r.uow.store.assets, id) })
	r.uow.markSeen(asset)
	return nil
}

// Update persists an asset's mutable fields
func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	previous, ok := r.row(asset.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := asset.ID
	r.uow.store.assets[id] = cloneAsset(asset)
	r.uow.addUndo(func() { r.uow.store.assets[id] = previous })
	r.uow.markSeen(asset)
	return nil
}

// Delete removes an asset
func (r *assetRepository) Delete(ctx context.Context, asset *domain.Asset) error {
	previous, ok := r.row(asset.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := asset.ID
	delete(r.uow.store.assets, id)
	r.uow.addUndo(func() { r.uow.store.assets[id] = previous })
	r.uow.markSeen(asset)
	return nil
}
