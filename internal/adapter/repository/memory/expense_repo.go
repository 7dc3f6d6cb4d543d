package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// expenseRepository implements domain.ExpenseRepository over the store.
// Get and Add record the aggregate in the unit of work's seen set so its
// events can be harvested.
type expenseRepository struct {
	uow *unitOfWork
}

func (r *expenseRepository) row(id uuid.UUID) (*domain.Expense, bool) {
	row, ok := r.uow.store.expenses[id]
	if !ok || row.UserID != r.uow.userID {
		return nil, false
	}
	return row, true
}

// Get retrieves an expense by its ID
func (r *expenseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	row, ok := r.row(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	expense := cloneExpense(row)
	r.uow.markSeen(expense)
	return expense, nil
}

// Add creates a new expense
func (r *expenseRepository) Add(ctx context.Context, expense *domain.Expense) error {
	id := expense.ID
	r.uow.store.expenses[id] = cloneExpense(expense)
	r.uow.addUndo(func() { delete(r.uow.store.expenses, id) })
	r.uow.markSeen(expense)
	return nil
}

// Update persists an expense's mutable fields
func (r *expenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	previous, ok := r.row(expense.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := expense.ID
	r.uow.store.expenses[id] = cloneExpense(expense)
	r.uow.addUndo(func() { r.uow.store.expenses[id] = previous })
	r.uow.markSeen(expense)
	return nil
}

// Delete removes an expense
func (r *expenseRepository) Delete(ctx context.Context, expense *domain.Expense) error {
	previous, ok := r.row(expense.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := expense.ID
	delete(r.uow.store.expenses, id)
	r.uow.addUndo(func() { r.uow.store.expenses[id] = previous })
	r.uow.markSeen(expense)
	return nil
}

// AddInstallments bulk-inserts an installment group. The first installment is
// the aggregate carrying the group's events.
func (r *expenseRepository) AddInstallments(ctx context.Context, installments []*domain.Expense) error {
	for i, installment := range installments {
		id := installment.ID
		r.uow.store.expenses[id] = cloneExpense(installment)
		r.uow.addUndo(func() { delete(r.uow.store.expenses, id) })
		if i == 0 {
			r.uow.markSeen(installment)
		}
	}
	return nil
}

// GetInstallments retrieves all siblings sharing an installments ID
func (r *expenseRepository) GetInstallments(ctx context.Context, installmentsID uuid.UUID) ([]*domain.Expense, error) {
	var siblings []*domain.Expense
	for _, row := range r.uow.store.expenses {
		if row.UserID != r.uow.userID || row.InstallmentsID == nil {
			continue
		}
		if *row.InstallmentsID == installmentsID {
			siblings = append(siblings, cloneExpense(row))
		}
	}
	sort.Slice(siblings, func(i, j int) bool {
		return *siblings[i].InstallmentNumber < *siblings[j].InstallmentNumber
	})
	return siblings, nil
}

// AddFutureFixed bulk-inserts the forward rows of a fixed series
func (r *expenseRepository) AddFutureFixed(ctx context.Context, expenses []*domain.Expense) error {
	for _, expense := range expenses {
		id := expense.ID
		r.uow.store.expenses[id] = cloneExpense(expense)
		r.uow.addUndo(func() { delete(r.uow.store.expenses, id) })
	}
	return nil
}

// ListFutureFixed retrieves the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *expenseRepository) ListFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) ([]*domain.Expense, error) {
	var rows []*domain.Expense
	for _, row := range r.uow.store.expenses {
		if row.UserID != r.uow.userID || !row.IsFixed || row.RecurringID == nil {
			continue
		}
		if *row.RecurringID == recurringID && row.Date.After(after) {
			rows = append(rows, cloneExpense(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// DeleteFutureFixed removes the fixed rows sharing a recurring ID dated
// strictly after the given date
func (r *expenseRepository) DeleteFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) error {
	rows, err := r.ListFutureFixed(ctx, recurringID, after)
	if err != nil {
		return err
	}
	for _, row := range rows {
		id := row.ID
		previous := r.uow.store.expenses[id]
		delete(r.uow.store.expenses, id)
		r.uow.addUndo(func() { r.uow.store.expenses[id] = previous })
	}
	return nil
}

// ListFixedInMonth retrieves the fixed expenses dated within the given month
func (r *expenseRepository) ListFixedInMonth(ctx context.Context, month time.Time) ([]*domain.Expense, error) {
	var rows []*domain.Expense
	for _, row := range r.uow.store.expenses {
		if row.UserID != r.uow.userID || !row.IsFixed {
			continue
		}
		if domain.SameMonth(row.Date, month) {
			rows = append(rows, cloneExpense(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// SumBySourceInPeriod sums expense values for a bank account and source with
// dates in [from, to)
func (r *expenseRepository) SumBySourceInPeriod(ctx context.Context, bankAccountID uuid.UUID, source domain.ExpenseSource, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, row := range r.uow.store.expenses {
		if row.UserID != r.uow.userID || row.Source != source {
			continue
		}
		if row.BankAccountID == nil || *row.BankAccountID != bankAccountID {
			continue
		}
		if row.Date.Before(from) || !row.Date.Before(to) {
			continue
		}
		total = total.Add(row.Value)
	}
	return total, nil
}

// RenameCategory updates every expense referencing the old category name
func (r *expenseRepository) RenameCategory(ctx context.Context, oldName, newName string) (int, error) {
	count := 0
	for _, row := range r.uow.store.expenses {
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

// RenameSource updates every expense referencing the old source name
func (r *expenseRepository) RenameSource(ctx context.Context, oldName, newName string) (int, error) {
	count := 0
	for _, row := range r.uow.store.expenses {
		if row.UserID != r.uow.userID || string(row.Source) != oldName {
			continue
		}
		target := row
		previous := target.Source
		target.Source = domain.ExpenseSource(newName)
		r.uow.addUndo(func() { target.Source = previous })
		count++
	}
	return count, nil
}
