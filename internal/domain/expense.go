package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseSource represents where the money for an expense came from
type ExpenseSource string

const (
	ExpenseSourceMoney        ExpenseSource = "MONEY"
	ExpenseSourceBankTransfer ExpenseSource = "BANK_TRANSFER"
	ExpenseSourceCreditCard   ExpenseSource = "CREDIT_CARD"
	ExpenseSourceDebitCard    ExpenseSource = "DEBIT_CARD"
	ExpenseSourceBankSlip     ExpenseSource = "BANK_SLIP"
	ExpenseSourceSettleUp     ExpenseSource = "SETTLE_UP"
)

// IsValid reports whether the source is one of the known values
func (s ExpenseSource) IsValid() bool {
	switch s {
	case ExpenseSourceMoney, ExpenseSourceBankTransfer, ExpenseSourceCreditCard,
		ExpenseSourceDebitCard, ExpenseSourceBankSlip, ExpenseSourceSettleUp:
		return true
	}
	return false
}

// IsDeferredSettlement reports whether the source settles later than the
// purchase date (the expense may be dated in the future)
func (s ExpenseSource) IsDeferredSettlement() bool {
	return s == ExpenseSourceCreditCard
}

// Expense represents a cash outflow entity in the domain layer.
// It is an aggregate root: installment siblings are hydrated into Installments
// before updates so the aggregate can be validated and propagated as a whole.
type Expense struct {
	aggregateRoot

	ID            uuid.UUID
	UserID        uuid.UUID
	BankAccountID *uuid.UUID
	Value         decimal.Decimal
	Description   string
	Category      string
	Source        ExpenseSource
	Date          time.Time
	IsFixed       bool
	RecurringID   *uuid.UUID

	// Installment fields: either all three are nil or all three are set
	InstallmentsID    *uuid.UUID
	InstallmentNumber *int
	InstallmentsQty   *int

	// Installments holds the sibling rows sharing InstallmentsID, hydrated
	// by the repository for update/delete propagation
	Installments []*Expense
}

// IsInstallment reports whether this expense belongs to an installment group
func (e *Expense) IsInstallment() bool {
	return e.InstallmentsID != nil
}

// Validate ensures the expense adheres to domain rules.
// today is injected so validation is deterministic under test.
func (e *Expense) Validate(today time.Time) error {
	if e.Value.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("value", "value must be positive")
	}
	if e.Description == "" {
		return NewValidationError("description", "description cannot be empty")
	}
	if e.Category == "" {
		return NewValidationError("category", "category cannot be empty")
	}
	if !e.Source.IsValid() {
		return NewValidationError("source", "unknown expense source")
	}

	// Installment fields must be all set or all unset
	set := 0
	if e.InstallmentsID != nil {
		set++
	}
	if e.InstallmentNumber != nil {
		set++
	}
	if e.InstallmentsQty != nil {
		set++
	}
	if set != 0 && set != 3 {
		return NewValidationError("installments", "installment fields must be set together")
	}

	if e.InstallmentsQty != nil {
		if *e.InstallmentsQty < 2 {
			return NewValidationError("installments_qty", "installments quantity must be at least 2")
		}
		if *e.InstallmentNumber < 1 || *e.InstallmentNumber > *e.InstallmentsQty {
			return NewValidationError("installment_number", "installment number out of range")
		}
		if e.IsFixed {
			return NewValidationError("is_fixed", "fixed expenses cannot have installments")
		}
		if !e.Source.IsDeferredSettlement() {
			return NewValidationError("source", "installments require a credit card source")
		}
	}

	// A non-fixed expense dated in the future must come from a
	// deferred-settlement source
	if !e.IsFixed && e.Date.After(DateOnly(today)) && !e.Source.IsDeferredSettlement() {
		return NewValidationError("date", "future expenses require a credit card source")
	}

	return nil
}

// ValidateUpdate enforces the rules that depend on the previous state:
//   - an installment other than the first cannot change its date
//   - a fixed expense whose date is in a past month must keep the new date
//     within that same month
func (e *Expense) ValidateUpdate(previous *Expense, today time.Time) error {
	if err := e.Validate(today); err != nil {
		return err
	}

	if previous.InstallmentNumber != nil && *previous.InstallmentNumber > 1 {
		if !DateOnly(e.Date).Equal(DateOnly(previous.Date)) {
			return NewValidationError("date", "only the first installment can change its date")
		}
	}

	if previous.IsFixed && previous.Date.Before(MonthStart(today)) {
		if !SameMonth(e.Date, previous.Date) {
			return NewValidationError("date", "past fixed expenses must stay within their month")
		}
	}

	return nil
}
