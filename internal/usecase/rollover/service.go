// Package rollover carries fixed expense and revenue series into a new month.
package rollover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// Service duplicates last month's fixed entities into the current month
type Service struct {
	log zerolog.Logger
}

// NewService creates a new rollover Service instance
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "rollover").Logger()}
}

// HandleRollover handles the RolloverFixedEntities command.
// Logic:
//  1. List last month's fixed expenses and revenues
//  2. Skip any series that already has a row in the target month, which
//     happens when the forward months were pre-populated at create time
//  3. Copy the rest verbatim with a fresh primary key, same recurring ID,
//     dated the same day in the target month
//  4. Copied revenues record RevenueCreated so the account handler credits
//     the new occurrence
func (s *Service) HandleRollover(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.RolloverFixedEntities)
	if !ok {
		return fmt.Errorf("rollover service: unexpected command %T", cmd)
	}

	month := domain.MonthStart(c.Month)
	previousMonth := domain.AddMonthsClamped(month, -1)

	expenses, err := s.rolloverExpenses(ctx, uow, previousMonth, month)
	if err != nil {
		return err
	}
	revenues, err := s.rolloverRevenues(ctx, uow, previousMonth, month)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("user_id", c.UserID.String()).
		Time("month", month).
		Int("expenses", expenses).
		Int("revenues", revenues).
		Msg("fixed series rolled over")
	return nil
}

func (s *Service) rolloverExpenses(ctx context.Context, uow domain.UnitOfWork, previousMonth, month time.Time) (int, error) {
	lastMonth, err := uow.Expenses().ListFixedInMonth(ctx, previousMonth)
	if err != nil {
		return 0, err
	}
	thisMonth, err := uow.Expenses().ListFixedInMonth(ctx, month)
	if err != nil {
		return 0, err
	}
	existing := recurringSet(len(thisMonth))
	for _, row := range thisMonth {
		if row.RecurringID != nil {
			existing[*row.RecurringID] = true
		}
	}

	count := 0
	for _, row := range lastMonth {
		if row.RecurringID != nil && existing[*row.RecurringID] {
			continue
		}
		copied := *row
		copied.ResetEvents()
		copied.ID = uuid.New()
		copied.Date = domain.AddMonthsClamped(row.Date, 1)
		if err := uow.Expenses().Add(ctx, &copied); err != nil {
			return count, err
		}
		copied.AddEvent(domain.ExpenseCreated{Expense: &copied})
		count++
	}
	return count, nil
}

func (s *Service) rolloverRevenues(ctx context.Context, uow domain.UnitOfWork, previousMonth, month time.Time) (int, error) {
	lastMonth, err := uow.Revenues().ListFixedInMonth(ctx, previousMonth)
	if err != nil {
		return 0, err
	}
	thisMonth, err := uow.Revenues().ListFixedInMonth(ctx, month)
	if err != nil {
		return 0, err
	}
	existing := recurringSet(len(thisMonth))
	for _, row := range thisMonth {
		if row.RecurringID != nil {
			existing[*row.RecurringID] = true
		}
	}

	count := 0
	for _, row := range lastMonth {
		if row.RecurringID != nil && existing[*row.RecurringID] {
			continue
		}
		copied := *row
		copied.ResetEvents()
		copied.ID = uuid.New()
		copied.Date = domain.AddMonthsClamped(row.Date, 1)
		if err := uow.Revenues().Add(ctx, &copied); err != nil {
			return count, err
		}
		copied.AddEvent(domain.RevenueCreated{Revenue: &copied})
		count++
	}
	return count, nil
}

func recurringSet(size int) map[uuid.UUID]bool {
	return make(map[uuid.UUID]bool, size)
}
