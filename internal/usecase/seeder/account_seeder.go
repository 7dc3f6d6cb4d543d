package seeder

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// AccountSeeder ensures a user has a default bank account before any
// cash-flow command runs
type AccountSeeder struct {
	factory domain.UnitOfWorkFactory
}

// NewAccountSeeder creates a new AccountSeeder instance
func NewAccountSeeder(factory domain.UnitOfWorkFactory) *AccountSeeder {
	return &AccountSeeder{factory: factory}
}

// Seed creates the default account for the user if none exists.
// Idempotent: an existing default account is left untouched.
func (s *AccountSeeder) Seed(ctx context.Context, userID uuid.UUID) error {
	uow, err := s.factory.New(ctx, userID)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	_, err = uow.BankAccounts().GetDefault(ctx)
	if err == nil {
		return uow.Commit(ctx)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	account := &domain.BankAccount{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    decimal.Zero,
		IsDefault: true,
		IsActive:  true,
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if err := uow.BankAccounts().Add(ctx, account); err != nil {
		return err
	}
	return uow.Commit(ctx)
}
