package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// Service keeps bank-account balances in sync with the cash-flow entities.
// It reacts to expense and revenue events inside the same unit of work that
// produced them and settles credit-card bills on schedule.
type Service struct {
	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new account Service instance
func NewService(log zerolog.Logger) *Service {
	return &Service{
		now: time.Now,
		log: log.With().Str("component", "account").Logger(),
	}
}

// NewServiceWithClock creates a Service with an injected clock for tests
func NewServiceWithClock(log zerolog.Logger, now func() time.Time) *Service {
	service := NewService(log)
	service.now = now
	return service
}

// settlesImmediately reports whether an expense hits the account balance at
// write time. Credit card purchases settle through the monthly bill and cash
// never touches a bank account.
func settlesImmediately(source domain.ExpenseSource, date, today time.Time) bool {
	if source == domain.ExpenseSourceCreditCard || source == domain.ExpenseSourceMoney {
		return false
	}
	return !domain.DateOnly(date).After(domain.DateOnly(today))
}

// revenueCredits reports whether a revenue hits the account balance at write
// time. Future-dated revenues credit nothing until they are re-dated.
func revenueCredits(date, today time.Time) bool {
	return !domain.DateOnly(date).After(domain.DateOnly(today))
}

// resolveAccount returns the referenced account, or the user's default when
// the reference is nil
func (s *Service) resolveAccount(ctx context.Context, uow domain.UnitOfWork, id *uuid.UUID) (*domain.BankAccount, error) {
	if id != nil {
		return uow.BankAccounts().Get(ctx, *id)
	}
	return uow.BankAccounts().GetDefault(ctx)
}

// OnExpenseCreated decrements the account when the new expense settles
// immediately. Installment groups are always credit card and settle through
// the bill, so they never reach the decrement.
func (s *Service) OnExpenseCreated(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.ExpenseCreated)
	if !ok {
		return fmt.Errorf("account service: unexpected event %T", event)
	}
	expense := e.Expense
	today := s.now()

	if expense.IsInstallment() || !settlesImmediately(expense.Source, expense.Date, today) {
		return nil
	}
	account, err := s.resolveAccount(ctx, uow, expense.BankAccountID)
	if err != nil {
		return err
	}
	return uow.BankAccounts().Decrement(ctx, account.ID, expense.Value)
}

// OnExpenseUpdated applies the balance delta between the previous and the new
// state of the expense. When the account reference changed, the previous
// account is refunded and the new one charged.
func (s *Service) OnExpenseUpdated(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.ExpenseUpdated)
	if !ok {
		return fmt.Errorf("account service: unexpected event %T", event)
	}
	expense := e.Expense
	today := s.now()

	if expense.IsInstallment() {
		return nil
	}

	previousCharged := decimal.Zero
	if settlesImmediately(e.PreviousSource, e.PreviousDate, today) {
		previousCharged = e.PreviousValue
	}
	newCharged := decimal.Zero
	if settlesImmediately(expense.Source, expense.Date, today) {
		newCharged = expense.Value
	}
	if previousCharged.IsZero() && newCharged.IsZero() {
		return nil
	}

	previousAccount, err := s.resolveAccount(ctx, uow, e.PreviousBankAccountID)
	if err != nil {
		return err
	}
	newAccount, err := s.resolveAccount(ctx, uow, expense.BankAccountID)
	if err != nil {
		return err
	}

	if previousAccount.ID != newAccount.ID {
		if !previousCharged.IsZero() {
			if err := uow.BankAccounts().Increment(ctx, previousAccount.ID, previousCharged); err != nil {
				return err
			}
		}
		if !newCharged.IsZero() {
			return uow.BankAccounts().Decrement(ctx, newAccount.ID, newCharged)
		}
		return nil
	}

	delta := newCharged.Sub(previousCharged)
	if delta.IsZero() {
		return nil
	}
	return uow.BankAccounts().Decrement(ctx, newAccount.ID, delta)
}

// OnExpenseDeleted refunds the account when the deleted expense had settled
// immediately
func (s *Service) OnExpenseDeleted(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.ExpenseDeleted)
	if !ok {
		return fmt.Errorf("account service: unexpected event %T", event)
	}
	expense := e.Expense
	today := s.now()

	if expense.IsInstallment() || !settlesImmediately(expense.Source, expense.Date, today) {
		return nil
	}
	account, err := s.resolveAccount(ctx, uow, expense.BankAccountID)
	if err != nil {
		return err
	}
	return uow.BankAccounts().Increment(ctx, account.ID, expense.Value)
}

// OnRevenueCreated credits the account when the revenue is dated at or before
// today
func (s *Service) OnRevenueCreated(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.RevenueCreated)
	if !ok {
		return fmt.Errorf("account service: unexpected event %T", event)
	}
	revenue := e.Revenue
	if !revenueCredits(revenue.Date, s.now()) {
		return nil
	}
	return uow.BankAccounts().Increment(ctx, revenue.BankAccountID, revenue.Value)
}

// OnRevenueUpdated applies the balance delta between the previous and the new
// state of the revenue
func (s *Service) OnRevenueUpdated(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.RevenueUpdated)
	if !ok {
		return fmt.Errorf("account service: unexpected event %T", event)
	}
	revenue := e.Revenue
	today := s.now()

	previousCredited := decimal.Zero
	if revenueCredits(e.PreviousDate, today) {
		previousCredited = e.PreviousValue
	}
	newCredited := decimal.Zero
	if revenueCredits(revenue.Date, today) {
		newCredited = revenue.Value
	}

	if e.PreviousBankAccountID != revenue.BankAccountID {
		if !previousCredited.IsZero() {
			if err := uow.BankAccounts().Decrement(ctx, e.PreviousBankAccountID, previousCredited); err != nil {
				return err
			}
		}
		if !newCredited.IsZero() {
			return uow.BankAccounts().Increment(ctx, revenue.BankAccountID, newCredited)
		}
		return nil
	}

	delta := newCredited.Sub(previousCredited)
	if delta.IsZero() {
		return nil
	}
	return uow.BankAccounts().Increment(ctx, revenue.BankAccountID, delta)
}

// OnRevenueDeleted debits back the account when the deleted revenue had
// credited it
func (s *Service) OnRevenueDeleted(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.RevenueDeleted)
	if !ok {
		return fmt.Errorf("account service: unexpected event %T", event)
	}
	revenue := e.Revenue
	if !revenueCredits(revenue.Date, s.now()) {
		return nil
	}
	return uow.BankAccounts().Decrement(ctx, revenue.BankAccountID, revenue.Value)
}

// HandleSettleBills handles the SettleCreditCardBills command.
// Logic:
//  1. For each of the user's active accounts whose bill day falls today
//     (clamped to the month's last day)
//  2. Sum the credit-card expenses dated in [previous bill date, today)
//  3. Decrement the account once by the total
func (s *Service) HandleSettleBills(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.SettleCreditCardBills)
	if !ok {
		return fmt.Errorf("account service: unexpected command %T", cmd)
	}
	today := domain.DateOnly(c.Today)

	accounts, err := uow.BankAccounts().List(ctx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		if !account.IsActive || account.CreditCardBillDay == nil {
			continue
		}
		if !billDayFalls(today, *account.CreditCardBillDay) {
			continue
		}

		from := previousBillDate(today)
		total, err := uow.Expenses().SumBySourceInPeriod(ctx, account.ID, domain.ExpenseSourceCreditCard, from, today)
		if err != nil {
			return err
		}
		if total.IsZero() {
			continue
		}
		if err := uow.BankAccounts().Decrement(ctx, account.ID, total); err != nil {
			return err
		}
		s.log.Info().
			Str("account_id", account.ID.String()).
			Str("total", total.String()).
			Msg("credit card bill settled")
	}
	return nil
}

// billDayFalls reports whether the bill day lands on today, clamping bill days
// past the month's end to its last day
func billDayFalls(today time.Time, billDay int) bool {
	last := domain.DaysInMonth(today.Year(), today.Month())
	if billDay > last {
		billDay = last
	}
	return today.Day() == billDay
}

// previousBillDate returns the same bill date one month earlier, clamped to
// that month's length
func previousBillDate(billDate time.Time) time.Time {
	return domain.AddMonthsClamped(billDate, -1)
}
