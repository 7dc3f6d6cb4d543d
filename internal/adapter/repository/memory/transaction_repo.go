package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository over the store
type transactionRepository struct {
	uow *unitOfWork
}

// Get retrieves a transaction by its ID
func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row, ok := r.uow.store.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTransaction(row), nil
}

// Add creates a new transaction
func (r *transactionRepository) Add(ctx context.Context, tx *domain.Transaction) error {
	id := tx.ID
	r.uow.store.transactions[id] = cloneTransaction(tx)
	r.uow.addUndo(func() { delete(r.uow.store.transactions, id) })
	return nil
}

// AddBatch creates several transactions at once
func (r *transactionRepository) AddBatch(ctx context.Context, txs []*domain.Transaction) error {
	for _, tx := range txs {
		if err := r.Add(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// Update persists a transaction's mutable fields
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	previous, ok := r.uow.store.transactions[tx.ID]
	if !ok {
		return domain.ErrNotFound
	}
	id := tx.ID
	r.uow.store.transactions[id] = cloneTransaction(tx)
	r.uow.addUndo(func() { r.uow.store.transactions[id] = previous })
	return nil
}

// Delete removes a transaction
func (r *transactionRepository) Delete(ctx context.Context, tx *domain.Transaction) error {
	previous, ok := r.uow.store.transactions[tx.ID]
	if !ok {
		return domain.ErrNotFound
	}
	id := tx.ID
	delete(r.uow.store.transactions, id)
	r.uow.addUndo(func() { r.uow.store.transactions[id] = previous })
	return nil
}

// ListByAsset retrieves an asset's transactions ordered by operation date
func (r *transactionRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.Transaction, error) {
	var rows []*domain.Transaction
	for _, row := range r.uow.store.transactions {
		if row.AssetID == assetID {
			rows = append(rows, cloneTransaction(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].OperationDate.Before(rows[j].OperationDate)
	})
	return rows, nil
}
