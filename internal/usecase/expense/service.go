package expense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// forwardMonths is the number of months a fixed series is projected ahead of
// its seed row, giving 12 rows in total
const forwardMonths = 11

// Service handles expense commands and the rename cascade events
type Service struct {
	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new expense Service instance
func NewService(log zerolog.Logger) *Service {
	return &Service{
		now: time.Now,
		log: log.With().Str("component", "expense").Logger(),
	}
}

// NewServiceWithClock creates a Service with an injected clock for tests
func NewServiceWithClock(log zerolog.Logger, now func() time.Time) *Service {
	service := NewService(log)
	service.now = now
	return service
}

// HandleCreate handles the CreateExpense command.
// Logic:
//  1. If is_fixed: assign a recurring ID, add the current row, and if the
//     flag is set add the 11 forward rows sharing the recurring ID
//  2. Else if installments_qty is set: split the value across N monthly rows
//     sharing a fresh installments ID
//  3. Else: add a single row
//  4. Record ExpenseCreated on the aggregate
func (s *Service) HandleCreate(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.CreateExpense)
	if !ok {
		return fmt.Errorf("expense service: unexpected command %T", cmd)
	}
	expense := c.Expense
	today := s.now()

	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}

	switch {
	case expense.IsFixed:
		if err := expense.Validate(today); err != nil {
			return err
		}
		recurringID := uuid.New()
		expense.RecurringID = &recurringID
		if err := uow.Expenses().Add(ctx, expense); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities {
			if err := uow.Expenses().AddFutureFixed(ctx, buildFutureFixed(expense)); err != nil {
				return err
			}
		}
		expense.AddEvent(domain.ExpenseCreated{Expense: expense})

	case expense.InstallmentsQty != nil:
		group, err := buildInstallments(expense)
		if err != nil {
			return err
		}
		if err := group[0].Validate(today); err != nil {
			return err
		}
		if err := uow.Expenses().AddInstallments(ctx, group); err != nil {
			return err
		}
		// The first installment is the aggregate carrying the group
		first := group[0]
		first.Installments = group
		first.AddEvent(domain.ExpenseCreated{Expense: first})

	default:
		if err := expense.Validate(today); err != nil {
			return err
		}
		if err := uow.Expenses().Add(ctx, expense); err != nil {
			return err
		}
		expense.AddEvent(domain.ExpenseCreated{Expense: expense})
	}

	return nil
}

// HandleUpdate handles the UpdateExpense command, branching on the
// (previous, new) combination of is_fixed and installments_id
func (s *Service) HandleUpdate(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.UpdateExpense)
	if !ok {
		return fmt.Errorf("expense service: unexpected command %T", cmd)
	}
	today := s.now()

	previous, err := uow.Expenses().Get(ctx, c.ExpenseID)
	if err != nil {
		return err
	}

	updated := applyExpenseData(previous, c.Data)
	if err := updated.ValidateUpdate(previous, today); err != nil {
		return err
	}

	var carrier *domain.Expense

	switch {
	case previous.IsInstallment():
		carrier, err = s.updateInstallmentGroup(ctx, uow, updated, previous)
		if err != nil {
			return err
		}

	case previous.IsFixed && updated.IsFixed:
		if err := uow.Expenses().Update(ctx, updated); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities {
			if err := s.propagateToFutureFixed(ctx, uow, updated, previous); err != nil {
				return err
			}
		}
		carrier = updated

	case !previous.IsFixed && updated.IsFixed:
		recurringID := uuid.New()
		updated.RecurringID = &recurringID
		if err := uow.Expenses().Update(ctx, updated); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities {
			if err := uow.Expenses().AddFutureFixed(ctx, buildFutureFixed(updated)); err != nil {
				return err
			}
		}
		carrier = updated

	case previous.IsFixed && !updated.IsFixed:
		recurringID := previous.RecurringID
		updated.RecurringID = nil
		if err := uow.Expenses().Update(ctx, updated); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities && recurringID != nil {
			if err := uow.Expenses().DeleteFutureFixed(ctx, *recurringID, previous.Date); err != nil {
				return err
			}
		}
		carrier = updated

	default:
		if err := uow.Expenses().Update(ctx, updated); err != nil {
			return err
		}
		carrier = updated
	}

	carrier.AddEvent(domain.ExpenseUpdated{
		Expense:               carrier,
		PreviousValue:         previous.Value,
		PreviousDate:          previous.Date,
		PreviousSource:        previous.Source,
		PreviousBankAccountID: previous.BankAccountID,
	})
	return nil
}

// HandleDelete handles the DeleteExpense command.
// Deleting an installment removes the whole group; deleting a fixed row with
// the flag set removes its future rows as well.
func (s *Service) HandleDelete(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.DeleteExpense)
	if !ok {
		return fmt.Errorf("expense service: unexpected command %T", cmd)
	}

	expense, err := uow.Expenses().Get(ctx, c.ExpenseID)
	if err != nil {
		return err
	}

	if expense.IsInstallment() {
		siblings, err := uow.Expenses().GetInstallments(ctx, *expense.InstallmentsID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if err := uow.Expenses().Delete(ctx, sibling); err != nil {
				return err
			}
		}
		expense.Installments = siblings
	} else {
		if err := uow.Expenses().Delete(ctx, expense); err != nil {
			return err
		}
		if expense.IsFixed && c.PerformActionsOnFutureFixedEntities && expense.RecurringID != nil {
			if err := uow.Expenses().DeleteFutureFixed(ctx, *expense.RecurringID, expense.Date); err != nil {
				return err
			}
		}
	}

	expense.AddEvent(domain.ExpenseDeleted{Expense: expense})
	return nil
}

// HandleRenameCategory handles the RenameExpenseCategory command by raising
// the rename event; the cascade itself runs in the event handler
func (s *Service) HandleRenameCategory(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.RenameExpenseCategory)
	if !ok {
		return fmt.Errorf("expense service: unexpected command %T", cmd)
	}
	if c.NewName == "" {
		return domain.NewValidationError("new_name", "new name cannot be empty")
	}
	uow.RaiseEvent(domain.ExpenseCategoryRenamed{
		UserID:  c.UserID,
		OldName: c.OldName,
		NewName: c.NewName,
	})
	return nil
}

// HandleRenameSource handles the RenameExpenseSource command
func (s *Service) HandleRenameSource(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.RenameExpenseSource)
	if !ok {
		return fmt.Errorf("expense service: unexpected command %T", cmd)
	}
	if c.NewName == "" {
		return domain.NewValidationError("new_name", "new name cannot be empty")
	}
	// Source is a closed set; a free-form name would fail validation on the
	// renamed rows' next update
	if !domain.ExpenseSource(c.NewName).IsValid() {
		return domain.NewValidationError("new_name", "unknown expense source")
	}
	uow.RaiseEvent(domain.ExpenseSourceRenamed{
		UserID:  c.UserID,
		OldName: c.OldName,
		NewName: c.NewName,
	})
	return nil
}

// OnCategoryRenamed cascades the new category name to every expense that
// referenced the old one
func (s *Service) OnCategoryRenamed(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.ExpenseCategoryRenamed)
	if !ok {
		return fmt.Errorf("expense service: unexpected event %T", event)
	}
	count, err := uow.Expenses().RenameCategory(ctx, e.OldName, e.NewName)
	if err != nil {
		return err
	}
	s.log.Debug().Int("rows", count).Str("category", e.NewName).Msg("expense category cascade")
	return nil
}

// OnSourceRenamed cascades the new source name to every expense that
// referenced the old one
func (s *Service) OnSourceRenamed(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.ExpenseSourceRenamed)
	if !ok {
		return fmt.Errorf("expense service: unexpected event %T", event)
	}
	count, err := uow.Expenses().RenameSource(ctx, e.OldName, e.NewName)
	if err != nil {
		return err
	}
	s.log.Debug().Int("rows", count).Str("source", e.NewName).Msg("expense source cascade")
	return nil
}

// updateInstallmentGroup propagates value and description to the sibling
// installments. A date change is allowed only on installment #1 and re-spaces
// every sibling by whole months from the new start. Returns the updated row
// addressed by the command with the group hydrated.
func (s *Service) updateInstallmentGroup(ctx context.Context, uow domain.UnitOfWork, updated, previous *domain.Expense) (*domain.Expense, error) {
	siblings, err := uow.Expenses().GetInstallments(ctx, *previous.InstallmentsID)
	if err != nil {
		return nil, err
	}
	if len(siblings) == 0 {
		return nil, domain.ErrNotFound
	}

	qty := *previous.InstallmentsQty
	dateChanged := !domain.DateOnly(updated.Date).Equal(domain.DateOnly(previous.Date))
	start := siblings[0].Date
	if dateChanged {
		start = updated.Date
	}

	var carrier *domain.Expense
	for _, sibling := range siblings {
		k := *sibling.InstallmentNumber
		sibling.Value = updated.Value
		sibling.Description = installmentDescription(updated.Description, k, qty)
		sibling.Category = updated.Category
		sibling.Source = updated.Source
		sibling.BankAccountID = updated.BankAccountID
		if dateChanged {
			sibling.Date = domain.AddMonthsClamped(start, k-1)
		}
		if err := uow.Expenses().Update(ctx, sibling); err != nil {
			return nil, err
		}
		if k == *previous.InstallmentNumber {
			carrier = sibling
		}
	}
	if carrier == nil {
		return nil, domain.ErrNotFound
	}
	carrier.Installments = siblings
	return carrier, nil
}

// propagateToFutureFixed applies the changed fields to every later row
// sharing the recurring ID. A date change shifts each row's day-of-month,
// keeping its own month. Each propagated row records its own ExpenseUpdated
// so the bank-account handler applies the delta of every settled occurrence.
func (s *Service) propagateToFutureFixed(ctx context.Context, uow domain.UnitOfWork, updated, previous *domain.Expense) error {
	if previous.RecurringID == nil {
		return errors.New("fixed expense without recurring id")
	}
	future, err := uow.Expenses().ListFutureFixed(ctx, *previous.RecurringID, previous.Date)
	if err != nil {
		return err
	}

	dayChanged := updated.Date.Day() != previous.Date.Day()
	for _, row := range future {
		previousValue := row.Value
		previousDate := row.Date
		previousSource := row.Source
		previousAccountID := row.BankAccountID

		row.Value = updated.Value
		row.Description = updated.Description
		row.Category = updated.Category
		row.Source = updated.Source
		row.BankAccountID = updated.BankAccountID
		if dayChanged {
			row.Date = shiftDayOfMonth(row.Date, updated.Date.Day())
		}
		if err := uow.Expenses().Update(ctx, row); err != nil {
			return err
		}
		row.AddEvent(domain.ExpenseUpdated{
			Expense:               row,
			PreviousValue:         previousValue,
			PreviousDate:          previousDate,
			PreviousSource:        previousSource,
			PreviousBankAccountID: previousAccountID,
		})
	}
	return nil
}

// buildFutureFixed returns the 11 forward copies of a fixed expense, fresh
// primary keys but the same recurring ID
func buildFutureFixed(seed *domain.Expense) []*domain.Expense {
	future := make([]*domain.Expense, 0, forwardMonths)
	for i := 1; i <= forwardMonths; i++ {
		row := *seed
		row.ResetEvents()
		row.ID = uuid.New()
		row.Date = domain.AddMonthsClamped(seed.Date, i)
		future = append(future, &row)
	}
	return future
}

// buildInstallments splits an expense into its installment rows.
// Each row gets round(value/N, 2); the first absorbs the rounding remainder
// so the group sums to the original value exactly.
func buildInstallments(seed *domain.Expense) ([]*domain.Expense, error) {
	qty := *seed.InstallmentsQty
	if qty < 2 {
		return nil, domain.NewValidationError("installments_qty", "installments quantity must be at least 2")
	}
	installmentsID := uuid.New()

	per := seed.Value.Div(decimal.NewFromInt(int64(qty))).Round(2)
	first := seed.Value.Sub(per.Mul(decimal.NewFromInt(int64(qty - 1))))

	group := make([]*domain.Expense, 0, qty)
	for k := 1; k <= qty; k++ {
		row := *seed
		row.ResetEvents()
		number := k
		quantity := qty
		row.ID = uuid.New()
		row.InstallmentsID = &installmentsID
		row.InstallmentNumber = &number
		row.InstallmentsQty = &quantity
		row.Value = per
		if k == 1 {
			row.ID = seed.ID
			row.Value = first
		}
		row.Date = domain.AddMonthsClamped(seed.Date, k-1)
		row.Description = installmentDescription(seed.Description, k, qty)
		group = append(group, &row)
	}
	return group, nil
}

func installmentDescription(base string, k, qty int) string {
	return fmt.Sprintf("%s (%d/%d)", base, k, qty)
}

// shiftDayOfMonth moves t to the given day within its own month, clamped to
// the month's length
func shiftDayOfMonth(t time.Time, day int) time.Time {
	last := domain.DaysInMonth(t.Year(), t.Month())
	if day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// applyExpenseData copies the mutable fields of data onto a fresh copy of
// previous, keeping identity and group links
func applyExpenseData(previous, data *domain.Expense) *domain.Expense {
	updated := *previous
	updated.ResetEvents()
	updated.Value = data.Value
	updated.Description = data.Description
	updated.Category = data.Category
	updated.Source = data.Source
	updated.Date = data.Date
	updated.IsFixed = data.IsFixed
	updated.BankAccountID = data.BankAccountID
	return &updated
}
