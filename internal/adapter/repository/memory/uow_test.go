package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo-app/centavo-backend/internal/adapter/repository/memory"
	"github.com/centavo-app/centavo-backend/internal/domain"
)

func account(userID uuid.UUID, amount int64) *domain.BankAccount {
	return &domain.BankAccount{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   decimal.NewFromInt(amount),
		IsActive: true,
	}
}

func countAccounts(t *testing.T, factory *memory.UnitOfWorkFactory, userID uuid.UUID) int {
	t.Helper()
	ctx := context.Background()
	uow, err := factory.New(ctx, userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	accounts, err := uow.BankAccounts().List(ctx)
	require.NoError(t, err)
	return len(accounts)
}

func TestUnitOfWork_NestedSpanJoinsTheAmbientOne(t *testing.T) {
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())
	userID := uuid.New()
	ctx := context.Background()

	outer, err := factory.New(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, outer.BankAccounts().Add(ctx, account(userID, 100)))

	// A second New for the same user joins the open span instead of
	// deadlocking on the store
	inner, err := factory.New(ctx, userID)
	require.NoError(t, err)
	assert.Same(t, outer, inner)

	require.NoError(t, inner.BankAccounts().Add(ctx, account(userID, 200)))
	require.NoError(t, inner.Commit(ctx))

	// The inner commit was a no-op: the outer rollback undoes both writes
	require.NoError(t, outer.Rollback(ctx))
	assert.Equal(t, 0, countAccounts(t, factory, userID))
}

func TestUnitOfWork_OuterCommitPersistsNestedWrites(t *testing.T) {
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())
	userID := uuid.New()
	ctx := context.Background()

	outer, err := factory.New(ctx, userID)
	require.NoError(t, err)

	inner, err := factory.New(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, inner.BankAccounts().Add(ctx, account(userID, 100)))
	require.NoError(t, inner.Commit(ctx))

	require.NoError(t, outer.BankAccounts().Add(ctx, account(userID, 200)))
	require.NoError(t, outer.Commit(ctx))

	assert.Equal(t, 2, countAccounts(t, factory, userID))
}

func TestUnitOfWork_ClosedSpanIsNotAmbient(t *testing.T) {
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())
	userID := uuid.New()
	ctx := context.Background()

	first, err := factory.New(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, first.BankAccounts().Add(ctx, account(userID, 100)))
	require.NoError(t, first.Commit(ctx))

	// A span opened after the previous one closed is independent: its
	// rollback does not touch the committed write
	second, err := factory.New(ctx, userID)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, second.BankAccounts().Add(ctx, account(userID, 200)))
	require.NoError(t, second.Rollback(ctx))

	assert.Equal(t, 1, countAccounts(t, factory, userID))
}
