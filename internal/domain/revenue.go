package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Revenue represents a cash inflow entity in the domain layer.
// Fixed revenues repeat monthly and share a RecurringID across months.
type Revenue struct {
	aggregateRoot

	ID            uuid.UUID
	UserID        uuid.UUID
	BankAccountID uuid.UUID
	Value         decimal.Decimal
	Description   string
	Category      string
	Date          time.Time
	IsFixed       bool
	RecurringID   *uuid.UUID
}

// Validate ensures the revenue adheres to domain rules
func (r *Revenue) Validate() error {
	if r.Value.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("value", "value must be positive")
	}
	if r.Description == "" {
		return NewValidationError("description", "description cannot be empty")
	}
	if r.Category == "" {
		return NewValidationError("category", "category cannot be empty")
	}
	if r.BankAccountID == uuid.Nil {
		return NewValidationError("bank_account_id", "bank account is required")
	}
	return nil
}

// ValidateUpdate enforces the same-month rule for past fixed revenues
func (r *Revenue) ValidateUpdate(previous *Revenue, today time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if previous.IsFixed && previous.Date.Before(MonthStart(today)) {
		if !SameMonth(r.Date, previous.Date) {
			return NewValidationError("date", "past fixed revenues must stay within their month")
		}
	}

	return nil
}
