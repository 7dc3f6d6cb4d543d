package revenue_test

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
	"github.com/centavo-app/centavo-backend/internal/usecase/revenue"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

type fixture struct {
	factory   *memory.UnitOfWorkFactory
	bus       *bus.MessageBus
	userID    uuid.UUID
	accountID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())

	revenueService := revenue.NewServiceWithClock(zerolog.Nop(), clock)
	accountService := account.NewServiceWithClock(zerolog.Nop(), clock)

	b := bus.New(factory, zerolog.Nop())
	b.RegisterCommand("CreateRevenue", revenueService.HandleCreate)
	b.RegisterCommand("UpdateRevenue", revenueService.HandleUpdate)
	b.RegisterCommand("DeleteRevenue", revenueService.HandleDelete)
	b.RegisterCommand("RenameRevenueCategory", revenueService.HandleRenameCategory)
	b.RegisterEvent("RevenueCreated", accountService.OnRevenueCreated)
	b.RegisterEvent("RevenueUpdated", accountService.OnRevenueUpdated)
	b.RegisterEvent("RevenueDeleted", accountService.OnRevenueDeleted)
	b.RegisterEvent("RevenueCategoryRenamed", revenueService.OnCategoryRenamed)

	f := &fixture{
		factory:   factory,
		bus:       b,
		userID:    uuid.New(),
		accountID: uuid.New(),
	}

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

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	account, err := uow.BankAccounts().Get(ctx, f.accountID)
	require.NoError(t, err)
	return account.Amount
}

func (f *fixture) newRevenue(value int64, date time.Time) *domain.Revenue {
	return &domain.Revenue{
		ID:            uuid.New(),
		UserID:        f.userID,
		BankAccountID: f.accountID,
		Value:         decimal.NewFromInt(value),
		Description:   "Salary",
		Category:      "Job",
		Date:          date,
	}
}

func TestHandleCreate_CreditsAccount(t *testing.T) {
	f := newFixture(t)

	err := f.bus.Handle(context.Background(), domain.CreateRevenue{
		Revenue: f.newRevenue(500, today),
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1500)))
}

func TestHandleCreate_FutureRevenueCreditsNothing(t *testing.T) {
	f := newFixture(t)

	err := f.bus.Handle(context.Background(), domain.CreateRevenue{
		Revenue: f.newRevenue(500, today.AddDate(0, 1, 0)),
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
}

func TestHandleCreate_ValidationFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(r *domain.Revenue)
		errMsg string
	}{
		{
			name:   "Zero value should fail",
			mutate: func(r *domain.Revenue) { r.Value = decimal.Zero },
			errMsg: "value must be positive",
		},
		{
			name:   "Empty description should fail",
			mutate: func(r *domain.Revenue) { r.Description = "" },
			errMsg: "description cannot be empty",
		},
		{
			name:   "Missing bank account should fail",
			mutate: func(r *domain.Revenue) { r.BankAccountID = uuid.Nil },
			errMsg: "bank account is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.newRevenue(500, today)
			tt.mutate(r)
			err := f.bus.Handle(context.Background(), domain.CreateRevenue{Revenue: r})
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHandleCreate_FixedSeriesPrePopulatesForwardMonths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := f.newRevenue(500, today)
	seed.IsFixed = true
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{
		Revenue:                             seed,
		PerformActionsOnFutureFixedEntities: true,
	}))

	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)

	require.NotNil(t, seed.RecurringID)
	future, err := uow.Revenues().ListFutureFixed(ctx, *seed.RecurringID, seed.Date)
	require.NoError(t, err)
	assert.Len(t, future, 11)
	for _, row := range future {
		assert.NotEqual(t, seed.ID, row.ID)
		assert.Equal(t, *seed.RecurringID, *row.RecurringID)
	}

	// Only the current occurrence credits the account
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1500)))
}

func TestHandleUpdate_ValueDeltaAdjustsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := f.newRevenue(500, today)
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: seed}))
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(1500)))

	require.NoError(t, f.bus.Handle(ctx, domain.UpdateRevenue{
		RevenueID: seed.ID,
		UserID:    f.userID,
		Data:      f.newRevenue(650, today),
	}))
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1650)))
}

func TestHandleUpdate_MoveToFutureDateRemovesCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := f.newRevenue(500, today)
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: seed}))

	require.NoError(t, f.bus.Handle(ctx, domain.UpdateRevenue{
		RevenueID: seed.ID,
		UserID:    f.userID,
		Data:      f.newRevenue(500, today.AddDate(0, 0, 10)),
	}))
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
}

func TestHandleUpdate_AccountChangeMovesTheCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherID := uuid.New()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, uow.BankAccounts().Add(ctx, &domain.BankAccount{
		ID:       otherID,
		UserID:   f.userID,
		Amount:   decimal.NewFromInt(100),
		IsActive: true,
	}))
	require.NoError(t, uow.Commit(ctx))

	seed := f.newRevenue(500, today)
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: seed}))

	data := f.newRevenue(500, today)
	data.BankAccountID = otherID
	require.NoError(t, f.bus.Handle(ctx, domain.UpdateRevenue{
		RevenueID: seed.ID,
		UserID:    f.userID,
		Data:      data,
	}))

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))

	uow, err = f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	other, err := uow.BankAccounts().Get(ctx, otherID)
	require.NoError(t, err)
	assert.True(t, other.Amount.Equal(decimal.NewFromInt(600)))
}

func TestHandleUpdate_PastFixedRowPropagatesToFutureRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedDate := domain.AddMonthsClamped(today.AddDate(0, 0, -5), -2)
	seed := f.newRevenue(500, seedDate)
	seed.IsFixed = true
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{
		Revenue:                             seed,
		PerformActionsOnFutureFixedEntities: true,
	}))
	balanceAfterCreate := f.balance(t)

	data := f.newRevenue(600, seedDate)
	data.IsFixed = true
	require.NoError(t, f.bus.Handle(ctx, domain.UpdateRevenue{
		RevenueID:                           seed.ID,
		UserID:                              f.userID,
		Data:                                data,
		PerformActionsOnFutureFixedEntities: true,
	}))

	// Three credited occurrences, a hundred extra each
	expected := balanceAfterCreate.Add(decimal.NewFromInt(300))
	assert.True(t, f.balance(t).Equal(expected), "got %s want %s", f.balance(t), expected)
}

func TestHandleUpdate_PastFixedCrossMonthDateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedDate := domain.AddMonthsClamped(today, -2)
	seed := f.newRevenue(500, seedDate)
	seed.IsFixed = true
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: seed}))

	data := f.newRevenue(500, today)
	data.IsFixed = true
	err := f.bus.Handle(ctx, domain.UpdateRevenue{
		RevenueID: seed.ID,
		UserID:    f.userID,
		Data:      data,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "past fixed revenues must stay within their month")
}

func TestHandleDelete_RemovesCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := f.newRevenue(500, today)
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: seed}))
	require.True(t, f.balance(t).Equal(decimal.NewFromInt(1500)))

	require.NoError(t, f.bus.Handle(ctx, domain.DeleteRevenue{
		RevenueID: seed.ID,
		UserID:    f.userID,
	}))
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
}

func TestHandleDelete_FixedCascadesToFutureRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := f.newRevenue(500, today)
	seed.IsFixed = true
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{
		Revenue:                             seed,
		PerformActionsOnFutureFixedEntities: true,
	}))
	recurringID := *seed.RecurringID

	require.NoError(t, f.bus.Handle(ctx, domain.DeleteRevenue{
		RevenueID:                           seed.ID,
		UserID:                              f.userID,
		PerformActionsOnFutureFixedEntities: true,
	}))

	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	future, err := uow.Revenues().ListFutureFixed(ctx, recurringID, seed.Date)
	require.NoError(t, err)
	assert.Empty(t, future)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
}

func TestHandleRenameCategory_CascadesAcrossRevenues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.newRevenue(100, today)
	second := f.newRevenue(200, today)
	second.Category = "Freelance"
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: first}))
	require.NoError(t, f.bus.Handle(ctx, domain.CreateRevenue{Revenue: second}))

	require.NoError(t, f.bus.Handle(ctx, domain.RenameRevenueCategory{
		UserID:  f.userID,
		OldName: "Job",
		NewName: "Employment",
	}))

	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	renamed, err := uow.Revenues().Get(ctx, first.ID)
	require.NoError(t, err)
	untouched, err := uow.Revenues().Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Employment", renamed.Category)
	assert.Equal(t, "Freelance", untouched.Category)
}
