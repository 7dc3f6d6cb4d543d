package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// revenueRepository implements domain.RevenueRepository over the store
type revenueRepository struct {
	uow *unitOfWork
}

func (r *revenueRepository) row(id uuid.UUID) (*domain.Revenue, bool) {
	row, ok := r.uow.store.revenues[id]
	if !ok || row.UserID != r.uow.userID {
		return nil, false
	}
	return row, true
}

// Get retrieves a revenue by its ID
func (r *revenueRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Revenue, error) {
	row, ok := r.row(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	revenue := cloneRevenue(row)
	r.uow.markSeen(revenue)
	return revenue, nil
}

// Add creates a new revenue
func (r *revenueRepository) Add(ctx context.Context, revenue *domain.Revenue) error {
	id := revenue.ID
	r.uow.store.revenues[id] = cloneRevenue(revenue)
	r.uow.addUndo(func() { delete(r.uow.store.revenues, id) })
	r.uow.markSeen(revenue)
	return nil
}

// Update persists a revenue's mutable fields
func (r *revenueRepository) Update(ctx context.Context, revenue *domain.Revenue) error {
	previous, ok := r.row(revenue.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := revenue.ID
	r.uow.store.revenues[id] = cloneRevenue(revenue)
	r.uow.addUndo(func() { r.uow.store.revenues[id] = previous })
	r.uow.markSeen(revenue)
	return nil
}

// Delete removes a revenue
func (r *revenueRepository) Delete(ctx context.Context, revenue *domain.Revenue) error {
	previous, ok := r.row(revenue.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := revenue.ID
	delete(r.uow.store.revenues, id)
	r.uow.addUndo(func() { r.uow.store.revenues[id] = previous })
	r.uow.markSeen(revenue)
	return nil
}

// AddFutureFixed bulk-inserts the forward rows of a fixed series
func (r *revenueRepository) AddFutureFixed(ctx context.Context, revenues []*domain.Revenue) error {
	for _, revenue := range revenues {
		id := revenue.ID
		r.uow.store.revenues[id] = cloneRevenue(revenue)
		r.uow.addUndo(func() { delete(r.uow.store.revenues, id) })
	}
	return nil
}

// ListFutureFixed retrieves the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *revenueRepository) ListFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) ([]*domain.Revenue, error) {
	var rows []*domain.Revenue
	for _, row := range r.uow.store.revenues {
		if row.UserID != r.uow.userID || !row.IsFixed || row.RecurringID == nil {
			continue
		}
		if *row.RecurringID == recurringID && row.Date.After(after) {
			rows = append(rows, cloneRevenue(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// DeleteFutureFixed removes the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *revenueRepository) DeleteFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) error {
	rows, err := r.ListFutureFixed(ctx, recurringID, after)
	if err != nil {
		return err
	}
	for _, row := range rows {
		id := row.ID
		previous := r.uow.store.revenues[id]
		delete(r.uow.store.revenues, id)
		r.uow.addUndo(func() { r.uow.store.revenues[id] = previous })
	}
	return nil
}

// ListFixedInMonth retrieves the fixed revenues dated within the given month
func (r *revenueRepository) ListFixedInMonth(ctx context.Context, month time.Time) ([]*domain.Revenue, error) {
	var rows []*domain.Revenue
	for _, row := range r.uow.store.revenues {
		if row.UserID != r.uow.userID || !row.IsFixed {
			continue
		}
		if domain.SameMonth(row.Date, month) {
			rows = append(rows, cloneRevenue(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// RenameCategory updates every revenue referencing the old category name
func (r *revenueRepository) RenameCategory(ctx context.Context, oldName, newName string) (int, error) {
	count := 0
	for _, row := range r.uow.store.revenues {
		if row.UserID != r.uow.userID || row.Category != oldName {
			continue
		}
		target := row
		previous := target.Category
		target.Category = newName
		r.uow.addUndo(func() { target.Category = previous })
		count++
	}
	return count, nil
}
