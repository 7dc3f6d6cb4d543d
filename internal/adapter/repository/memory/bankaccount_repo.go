package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// bankAccountRepository implements domain.BankAccountRepository over the store
type bankAccountRepository struct {
	uow *unitOfWork
}

func (r *bankAccountRepository) row(id uuid.UUID) (*domain.BankAccount, bool) {
	row, ok := r.uow.store.accounts[id]
	if !ok || row.UserID != r.uow.userID {
		return nil, false
	}
	return row, true
}

// Get retrieves a bank account by its ID
func (r *bankAccountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	row, ok := r.row(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(row), nil
}

// GetDefault retrieves the user's default bank account
func (r *bankAccountRepository) GetDefault(ctx context.Context) (*domain.BankAccount, error) {
	for _, row := range r.uow.store.accounts {
		if row.UserID == r.uow.userID && row.IsDefault {
			return cloneAccount(row), nil
		}
	}
	return nil, domain.ErrNotFound
}

// List retrieves the user's bank accounts
func (r *bankAccountRepository) List(ctx context.Context) ([]*domain.BankAccount, error) {
	var rows []*domain.BankAccount
	for _, row := range r.uow.store.accounts {
		if row.UserID == r.uow.userID {
			rows = append(rows, cloneAccount(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.String() < rows[j].ID.String() })
	return rows, nil
}

// Add creates a new bank account
func (r *bankAccountRepository) Add(ctx context.Context, account *domain.BankAccount) error {
	id := account.ID
	r.uow.store.accounts[id] = cloneAccount(account)
	r.uow.addUndo(func() { delete(r.uow.store.accounts, id) })
	return nil
}

// Update persists a bank account's mutable fields
func (r *bankAccountRepository) Update(ctx context.Context, account *domain.BankAccount) error {
	previous, ok := r.row(account.ID)
	if !ok {
		return domain.ErrNotFound
	}
	id := account.ID
	r.uow.store.accounts[id] = cloneAccount(account)
	r.uow.addUndo(func() { r.uow.store.accounts[id] = previous })
	return nil
}

// Increment atomically adds amount to the account balance
func (r *bankAccountRepository) Increment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	row, ok := r.row(id)
	if !ok {
		return domain.ErrNotFound
	}
	previous := row.Amount
	row.Amount = row.Amount.Add(amount)
	r.uow.addUndo(func() { row.Amount = previous })
	return nil
}

// Decrement atomically subtracts amount from the account balance.
// The balance may go negative.
func (r *bankAccountRepository) Decrement(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.Increment(ctx, id, amount.Neg())
}
