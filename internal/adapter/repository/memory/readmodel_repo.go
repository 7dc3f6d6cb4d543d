package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// closedOperationRepository implements domain.ClosedOperationRepository.
// Append-only: no update or delete.
type closedOperationRepository struct {
	uow *unitOfWork
}

// Add appends a settlement record
func (r *closedOperationRepository) Add(ctx context.Context, op *domain.AssetClosedOperation) error {
	c := *op
	r.uow.store.closedOps = append(r.uow.store.closedOps, &c)
	r.uow.addUndo(func() {
		r.uow.store.closedOps = r.uow.store.closedOps[:len(r.uow.store.closedOps)-1]
	})
	return nil
}

// ListByAsset retrieves an asset's settlements ordered by operation datetime
func (r *closedOperationRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.AssetClosedOperation, error) {
	var rows []*domain.AssetClosedOperation
	for _, row := range r.uow.store.closedOps {
		if row.AssetID == assetID {
			c := *row
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].OperationDatetime.Before(rows[j].OperationDatetime)
	})
	return rows, nil
}

// GetLatest retrieves the most recent settlement for an asset
func (r *closedOperationRepository) GetLatest(ctx context.Context, assetID uuid.UUID) (*domain.AssetClosedOperation, error) {
	rows, err := r.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows[len(rows)-1], nil
}

// readModelRepository implements domain.ReadModelRepository over the store
type readModelRepository struct {
	uow *unitOfWork
}

// Get retrieves a read row by its write-model primary key
func (r *readModelRepository) Get(ctx context.Context, writeModelPK uuid.UUID) (*domain.AssetReadModel, error) {
	row, ok := r.uow.store.readModels[writeModelPK]
	if !ok || row.UserID != r.uow.userID {
		return nil, domain.ErrNotFound
	}
	return cloneReadModel(row), nil
}

// List retrieves the user's read rows
func (r *readModelRepository) List(ctx context.Context) ([]*domain.AssetReadModel, error) {
	var rows []*domain.AssetReadModel
	for _, row := range r.uow.store.readModels {
		if row.UserID == r.uow.userID {
			rows = append(rows, cloneReadModel(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

// Upsert inserts or replaces the read row keyed by write-model primary key
func (r *readModelRepository) Upsert(ctx context.Context, row *domain.AssetReadModel) error {
	pk := row.WriteModelPK
	previous, existed := r.uow.store.readModels[pk]
	r.uow.store.readModels[pk] = cloneReadModel(row)
	r.uow.addUndo(func() {
		if existed {
			r.uow.store.readModels[pk] = previous
		} else {
			delete(r.uow.store.readModels, pk)
		}
	})
	return nil
}

// Delete removes a read row
func (r *readModelRepository) Delete(ctx context.Context, writeModelPK uuid.UUID) error {
	previous, ok := r.uow.store.readModels[writeModelPK]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.uow.store.readModels, writeModelPK)
	r.uow.addUndo(func() { r.uow.store.readModels[writeModelPK] = previous })
	return nil
}
