package rollover_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo-app/centavo-backend/internal/adapter/repository/memory"
	"github.com/centavo-app/centavo-backend/internal/bus"
	"github.com/centavo-app/centavo-backend/internal/domain"
	"github.com/centavo-app/centavo-backend/internal/usecase/account"
	"github.com/centavo-app/centavo-backend/internal/usecase/rollover"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

type fixture struct {
	factory   *memory.UnitOfWorkFactory
	bus       *bus.MessageBus
	userID    uuid.UUID
	accountID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())
	rolloverService := rollover.NewService(zerolog.Nop())
	accountService := account.NewServiceWithClock(zerolog.Nop(), func() time.Time { return today })

	b := bus.New(factory, zerolog.Nop())
	b.RegisterCommand("RolloverFixedEntities", rolloverService.HandleRollover)
	b.RegisterEvent("ExpenseCreated", accountService.OnExpenseCreated)
	b.RegisterEvent("RevenueCreated", accountService.OnRevenueCreated)

	f := &fixture{factory: factory, bus: b, userID: uuid.New(), accountID: uuid.New()}

	ctx := context.Background()
	uow, err := factory.New(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, uow.BankAccounts().Add(ctx, &domain.BankAccount{
		ID:        f.accountID,
		UserID:    f.userID,
		Amount:    decimal.NewFromInt(1000),
		IsDefault: true,
		IsActive:  true,
	}))
	require.NoError(t, uow.Commit(ctx))
	return f
}

func (f *fixture) seedFixedExpense(t *testing.T, value int64, date time.Time, recurringID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, uow.Expenses().Add(ctx, &domain.Expense{
		ID:            uuid.New(),
		UserID:        f.userID,
		BankAccountID: &f.accountID,
		Value:         decimal.NewFromInt(value),
		Description:   "Rent",
		Category:      "Housing",
		Source:        domain.ExpenseSourceBankTransfer,
		Date:          date,
		IsFixed:       true,
		RecurringID:   &recurringID,
	}))
	require.NoError(t, uow.Commit(ctx))
}

func (f *fixture) seedFixedRevenue(t *testing.T, value int64, date time.Time, recurringID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, uow.Revenues().Add(ctx, &domain.Revenue{
		ID:            uuid.New(),
		UserID:        f.userID,
		BankAccountID: f.accountID,
		Value:         decimal.NewFromInt(value),
		Description:   "Salary",
		Category:      "Job",
		Date:          date,
		IsFixed:       true,
		RecurringID:   &recurringID,
	}))
	require.NoError(t, uow.Commit(ctx))
}

func (f *fixture) fixedExpensesIn(t *testing.T, month time.Time) []*domain.Expense {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	rows, err := uow.Expenses().ListFixedInMonth(ctx, month)
	require.NoError(t, err)
	return rows
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	row, err := uow.BankAccounts().Get(ctx, f.accountID)
	require.NoError(t, err)
	return row.Amount
}

func TestHandleRollover_CopiesLastMonthsFixedSeries(t *testing.T) {
	f := newFixture(t)
	recurringID := uuid.New()
	f.seedFixedExpense(t, 50, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), recurringID)

	require.NoError(t, f.bus.Handle(context.Background(), domain.RolloverFixedEntities{
		UserID: f.userID,
		Month:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	rows := f.fixedExpensesIn(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, recurringID, *rows[0].RecurringID)

	// The copied occurrence settles against the account
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(950)))
}

func TestHandleRollover_SkipsSeriesAlreadyPresentInTheTargetMonth(t *testing.T) {
	f := newFixture(t)
	recurringID := uuid.New()
	f.seedFixedExpense(t, 50, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), recurringID)
	f.seedFixedExpense(t, 50, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), recurringID)

	require.NoError(t, f.bus.Handle(context.Background(), domain.RolloverFixedEntities{
		UserID: f.userID,
		Month:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	rows := f.fixedExpensesIn(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, rows, 1)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
}

func TestHandleRollover_CopiedRevenuesCreditTheAccount(t *testing.T) {
	f := newFixture(t)
	f.seedFixedRevenue(t, 500, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), uuid.New())

	require.NoError(t, f.bus.Handle(context.Background(), domain.RolloverFixedEntities{
		UserID: f.userID,
		Month:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	rows, err := uow.Revenues().ListFixedInMonth(ctx, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1500)))
}

func TestHandleRollover_ClampsEndOfMonthDates(t *testing.T) {
	f := newFixture(t)
	recurringID := uuid.New()
	f.seedFixedExpense(t, 50, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), recurringID)

	require.NoError(t, f.bus.Handle(context.Background(), domain.RolloverFixedEntities{
		UserID: f.userID,
		Month:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}))

	rows := f.fixedExpensesIn(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), rows[0].Date)
}

func TestHandleRollover_EmptyPreviousMonthIsANoOp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bus.Handle(context.Background(), domain.RolloverFixedEntities{
		UserID: f.userID,
		Month:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	assert.Empty(t, f.fixedExpensesIn(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
}
