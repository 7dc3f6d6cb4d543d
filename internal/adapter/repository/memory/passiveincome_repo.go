package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// passiveIncomeRepository implements domain.PassiveIncomeRepository over the store
type passiveIncomeRepository struct {
	uow *unitOfWork
}

// Get retrieves a passive income by its ID
func (r *passiveIncomeRepository) Get(ctx context.Context, id uuid.UUID) (*domain.PassiveIncome, error) {
	row, ok := r.uow.store.incomes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneIncome(row), nil
}

// Add creates a new passive income
func (r *passiveIncomeRepository) Add(ctx context.Context, income *domain.PassiveIncome) error {
	id := income.ID
	r.uow.store.incomes[id] = cloneIncome(income)
	r.uow.addUndo(func() { delete(r.uow.store.incomes, id) })
	return nil
}

// Update persists a passive income's mutable fields
func (r *passiveIncomeRepository) Update(ctx context.Context, income *domain.PassiveIncome) error {
	previous, ok := r.uow.store.incomes[income.ID]
	if !ok {
		return domain.ErrNotFound
	}
	id := income.ID
	r.uow.store.incomes[id] = cloneIncome(income)
	r.uow.addUndo(func() { r.uow.store.incomes[id] = previous })
	return nil
}

// Delete removes a passive income
func (r *passiveIncomeRepository) Delete(ctx context.Context, income *domain.PassiveIncome) error {
	previous, ok := r.uow.store.incomes[income.ID]
	if !ok {
		return domain.ErrNotFound
	}
	id := income.ID
	delete(r.uow.store.incomes, id)
	r.uow.addUndo(func() { r.uow.store.incomes[id] = previous })
	return nil
}

// ListByAsset retrieves an asset's passive incomes ordered by operation date
func (r *passiveIncomeRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.PassiveIncome, error) {
	var rows []*domain.PassiveIncome
	for _, row := range r.uow.store.incomes {
		if row.AssetID == assetID {
			rows = append(rows, cloneIncome(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].OperationDate.Before(rows[j].OperationDate)
	})
	return rows, nil
}
