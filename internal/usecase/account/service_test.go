package account_test

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
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

type fixture struct {
	factory *memory.UnitOfWorkFactory
	bus     *bus.MessageBus
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())
	accountService := account.NewServiceWithClock(zerolog.Nop(), func() time.Time { return today })

	b := bus.New(factory, zerolog.Nop())
	b.RegisterCommand("SettleCreditCardBills", accountService.HandleSettleBills)

	return &fixture{factory: factory, bus: b, userID: uuid.New()}
}

func (f *fixture) addAccount(t *testing.T, amount int64, billDay *int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	id := uuid.New()
	require.NoError(t, uow.BankAccounts().Add(ctx, &domain.BankAccount{
		ID:                id,
		UserID:            f.userID,
		Amount:            decimal.NewFromInt(amount),
		IsActive:          true,
		CreditCardBillDay: billDay,
	}))
	require.NoError(t, uow.Commit(ctx))
	return id
}

func (f *fixture) addCreditCardExpense(t *testing.T, accountID uuid.UUID, value int64, date time.Time) {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, uow.Expenses().Add(ctx, &domain.Expense{
		ID:            uuid.New(),
		UserID:        f.userID,
		BankAccountID: &accountID,
		Value:         decimal.NewFromInt(value),
		Description:   "Card purchase",
		Category:      "Misc",
		Source:        domain.ExpenseSourceCreditCard,
		Date:          date,
	}))
	require.NoError(t, uow.Commit(ctx))
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	row, err := uow.BankAccounts().Get(ctx, id)
	require.NoError(t, err)
	return row.Amount
}

func TestHandleSettleBills_DecrementsOnceForThePeriod(t *testing.T) {
	f := newFixture(t)
	billDay := 15
	accountID := f.addAccount(t, 1000, &billDay)

	// In the period [May 15, Jun 15)
	f.addCreditCardExpense(t, accountID, 100, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC))
	f.addCreditCardExpense(t, accountID, 50, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	// Outside the period
	f.addCreditCardExpense(t, accountID, 999, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC))
	f.addCreditCardExpense(t, accountID, 999, today)

	require.NoError(t, f.bus.Handle(context.Background(), domain.SettleCreditCardBills{
		UserID: f.userID,
		Today:  today,
	}))
	assert.True(t, f.balance(t, accountID).Equal(decimal.NewFromInt(850)))
}

func TestHandleSettleBills_SkipsAccountsWhoseBillDayIsNotToday(t *testing.T) {
	f := newFixture(t)
	billDay := 20
	accountID := f.addAccount(t, 1000, &billDay)
	f.addCreditCardExpense(t, accountID, 100, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.bus.Handle(context.Background(), domain.SettleCreditCardBills{
		UserID: f.userID,
		Today:  today,
	}))
	assert.True(t, f.balance(t, accountID).Equal(decimal.NewFromInt(1000)))
}

func TestHandleSettleBills_SkipsAccountsWithoutACard(t *testing.T) {
	f := newFixture(t)
	accountID := f.addAccount(t, 1000, nil)
	f.addCreditCardExpense(t, accountID, 100, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.bus.Handle(context.Background(), domain.SettleCreditCardBills{
		UserID: f.userID,
		Today:  today,
	}))
	assert.True(t, f.balance(t, accountID).Equal(decimal.NewFromInt(1000)))
}

func TestHandleSettleBills_BillDayClampsToShortMonths(t *testing.T) {
	f := newFixture(t)
	billDay := 31
	accountID := f.addAccount(t, 1000, &billDay)
	f.addCreditCardExpense(t, accountID, 200, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))

	// June has 30 days, so a day-31 bill falls on the 30th
	require.NoError(t, f.bus.Handle(context.Background(), domain.SettleCreditCardBills{
		UserID: f.userID,
		Today:  time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}))
	assert.True(t, f.balance(t, accountID).Equal(decimal.NewFromInt(800)))
}

func TestHandleSettleBills_SettlesEachAccountIndependently(t *testing.T) {
	f := newFixture(t)
	billDay := 15
	first := f.addAccount(t, 1000, &billDay)
	second := f.addAccount(t, 500, &billDay)

	f.addCreditCardExpense(t, first, 100, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	f.addCreditCardExpense(t, second, 40, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.bus.Handle(context.Background(), domain.SettleCreditCardBills{
		UserID: f.userID,
		Today:  today,
	}))
	assert.True(t, f.balance(t, first).Equal(decimal.NewFromInt(900)))
	assert.True(t, f.balance(t, second).Equal(decimal.NewFromInt(460)))
}
