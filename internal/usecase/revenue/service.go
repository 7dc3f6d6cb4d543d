package revenue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// forwardMonths is the number of months a fixed series is projected ahead of
// its seed row, giving 12 rows in total
const forwardMonths = 11

// Service handles revenue commands and the rename cascade events
type Service struct {
	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new revenue Service instance
func NewService(log zerolog.Logger) *Service {
	return &Service{
		now: time.Now,
		log: log.With().Str("component", "revenue").Logger(),
	}
}

// NewServiceWithClock creates a Service with an injected clock for tests
func NewServiceWithClock(log zerolog.Logger, now func() time.Time) *Service {
	service := NewService(log)
	service.now = now
	return service
}

// HandleCreate handles the CreateRevenue command
func (s *Service) HandleCreate(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.CreateRevenue)
	if !ok {
		return fmt.Errorf("revenue service: unexpected command %T", cmd)
	}
	revenue := c.Revenue

	if revenue.ID == uuid.Nil {
		revenue.ID = uuid.New()
	}
	if err := revenue.Validate(); err != nil {
		return err
	}

	if revenue.IsFixed {
		recurringID := uuid.New()
		revenue.RecurringID = &recurringID
	}
	if err := uow.Revenues().Add(ctx, revenue); err != nil {
		return err
	}
	if revenue.IsFixed && c.PerformActionsOnFutureFixedEntities {
		if err := uow.Revenues().AddFutureFixed(ctx, buildFutureFixed(revenue)); err != nil {
			return err
		}
	}

	revenue.AddEvent(domain.RevenueCreated{Revenue: revenue})
	return nil
}

// HandleUpdate handles the UpdateRevenue command, branching on the
// (previous, new) is_fixed combination
func (s *Service) HandleUpdate(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.UpdateRevenue)
	if !ok {
		return fmt.Errorf("revenue service: unexpected command %T", cmd)
	}
	today := s.now()

	previous, err := uow.Revenues().Get(ctx, c.RevenueID)
	if err != nil {
		return err
	}

	updated := applyRevenueData(previous, c.Data)
	if err := updated.ValidateUpdate(previous, today); err != nil {
		return err
	}

	switch {
	case previous.IsFixed && updated.IsFixed:
		if err := uow.Revenues().Update(ctx, updated); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities {
			if err := s.propagateToFutureFixed(ctx, uow, updated, previous); err != nil {
				return err
			}
		}

	case !previous.IsFixed && updated.IsFixed:
		recurringID := uuid.New()
		updated.RecurringID = &recurringID
		if err := uow.Revenues().Update(ctx, updated); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities {
			if err := uow.Revenues().AddFutureFixed(ctx, buildFutureFixed(updated)); err != nil {
				return err
			}
		}

	case previous.IsFixed && !updated.IsFixed:
		recurringID := previous.RecurringID
		updated.RecurringID = nil
		if err := uow.Revenues().Update(ctx, updated); err != nil {
			return err
		}
		if c.PerformActionsOnFutureFixedEntities && recurringID != nil {
			if err := uow.Revenues().DeleteFutureFixed(ctx, *recurringID, previous.Date); err != nil {
				return err
			}
		}

	default:
		if err := uow.Revenues().Update(ctx, updated); err != nil {
			return err
		}
	}

	updated.AddEvent(domain.RevenueUpdated{
		Revenue:               updated,
		PreviousValue:         previous.Value,
		PreviousDate:          previous.Date,
		PreviousBankAccountID: previous.BankAccountID,
	})
	return nil
}

// HandleDelete handles the DeleteRevenue command
func (s *Service) HandleDelete(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.DeleteRevenue)
	if !ok {
		return fmt.Errorf("revenue service: unexpected command %T", cmd)
	}

	revenue, err := uow.Revenues().Get(ctx, c.RevenueID)
	if err != nil {
		return err
	}

	if err := uow.Revenues().Delete(ctx, revenue); err != nil {
		return err
	}
	if revenue.IsFixed && c.PerformActionsOnFutureFixedEntities && revenue.RecurringID != nil {
		if err := uow.Revenues().DeleteFutureFixed(ctx, *revenue.RecurringID, revenue.Date); err != nil {
			return err
		}
	}

	revenue.AddEvent(domain.RevenueDeleted{Revenue: revenue})
	return nil
}

// HandleRenameCategory handles the RenameRevenueCategory command by raising
// the rename event; the cascade itself runs in the event handler
func (s *Service) HandleRenameCategory(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.RenameRevenueCategory)
	if !ok {
		return fmt.Errorf("revenue service: unexpected command %T", cmd)
	}
	if c.NewName == "" {
		return domain.NewValidationError("new_name", "new name cannot be empty")
	}
	uow.RaiseEvent(domain.RevenueCategoryRenamed{
		UserID:  c.UserID,
		OldName: c.OldName,
		NewName: c.NewName,
	})
	return nil
}

// OnCategoryRenamed cascades the new category name to every revenue that
// referenced the old one
func (s *Service) OnCategoryRenamed(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.RevenueCategoryRenamed)
	if !ok {
		return fmt.Errorf("revenue service: unexpected event %T", event)
	}
	count, err := uow.Revenues().RenameCategory(ctx, e.OldName, e.NewName)
	if err != nil {
		return err
	}
	s.log.Debug().Int("rows", count).Str("category", e.NewName).Msg("revenue category cascade")
	return nil
}

// propagateToFutureFixed applies the changed fields to every future row
// sharing the recurring ID
func (s *Service) propagateToFutureFixed(ctx context.Context, uow domain.UnitOfWork, updated, previous *domain.Revenue) error {
	if previous.RecurringID == nil {
		return errors.New("fixed revenue without recurring id")
	}
	future, err := uow.Revenues().ListFutureFixed(ctx, *previous.RecurringID, previous.Date)
	if err != nil {
		return err
	}

	dayChanged := updated.Date.Day() != previous.Date.Day()
	for _, row := range future {
		previousValue := row.Value
		previousDate := row.Date
		previousAccountID := row.BankAccountID

		row.Value = updated.Value
		row.Description = updated.Description
		row.Category = updated.Category
		row.BankAccountID = updated.BankAccountID
		if dayChanged {
			row.Date = shiftDayOfMonth(row.Date, updated.Date.Day())
		}
		if err := uow.Revenues().Update(ctx, row); err != nil {
			return err
		}
		row.AddEvent(domain.RevenueUpdated{
			Revenue:               row,
			PreviousValue:         previousValue,
			PreviousDate:          previousDate,
			PreviousBankAccountID: previousAccountID,
		})
	}
	return nil
}

// buildFutureFixed returns the 11 forward copies of a fixed revenue, fresh
// primary keys but the same recurring ID
func buildFutureFixed(seed *domain.Revenue) []*domain.Revenue {
	future := make([]*domain.Revenue, 0, forwardMonths)
	for i := 1; i <= forwardMonths; i++ {
		row := *seed
		row.ResetEvents()
		row.ID = uuid.New()
		row.Date = domain.AddMonthsClamped(seed.Date, i)
		future = append(future, &row)
	}
	return future
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

// applyRevenueData copies the mutable fields of data onto a fresh copy of
// previous, keeping identity and series links
func applyRevenueData(previous, data *domain.Revenue) *domain.Revenue {
	updated := *previous
	updated.ResetEvents()
	updated.Value = data.Value
	updated.Description = data.Description
	updated.Category = data.Category
	updated.Date = data.Date
	updated.IsFixed = data.IsFixed
	updated.BankAccountID = data.BankAccountID
	return &updated
}
