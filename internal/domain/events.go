package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a fact announcing that something happened. The bus dispatches each
// event to zero or more handlers; a failing event handler is logged but does
// not abort the queue.
type Event interface {
	EventName() string
}

// Expense events

// ExpenseCreated is raised after an expense (or its installment group, or its
// fixed series) has been added
type ExpenseCreated struct {
	Expense *Expense
}

// EventName returns the event type name
func (e ExpenseCreated) EventName() string { return "ExpenseCreated" }

// ExpenseUpdated is raised after an expense has been updated. It carries the
// previous value, date, source and account so the bank-account handler can
// compute the balance delta.
type ExpenseUpdated struct {
	Expense               *Expense
	PreviousValue         decimal.Decimal
	PreviousDate          time.Time
	PreviousSource        ExpenseSource
	PreviousBankAccountID *uuid.UUID
}

// EventName returns the event type name
func (e ExpenseUpdated) EventName() string { return "ExpenseUpdated" }

// ExpenseDeleted is raised after an expense (and possibly its future fixed
// rows or installment siblings) has been deleted
type ExpenseDeleted struct {
	Expense *Expense
}

// EventName returns the event type name
func (e ExpenseDeleted) EventName() string { return "ExpenseDeleted" }

// ExpenseCategoryRenamed cascades a category rename to all expenses that
// referenced the old name
type ExpenseCategoryRenamed struct {
	UserID  uuid.UUID
	OldName string
	NewName string
}

// EventName returns the event type name
func (e ExpenseCategoryRenamed) EventName() string { return "ExpenseCategoryRenamed" }

// ExpenseSourceRenamed cascades a source rename to all expenses that
// referenced the old name
type ExpenseSourceRenamed struct {
	UserID  uuid.UUID
	OldName string
	NewName string
}

// EventName returns the event type name
func (e ExpenseSourceRenamed) EventName() string { return "ExpenseSourceRenamed" }

// Revenue events

// RevenueCreated is raised after a revenue has been added
type RevenueCreated struct {
	Revenue *Revenue
}

// EventName returns the event type name
func (e RevenueCreated) EventName() string { return "RevenueCreated" }

// RevenueUpdated is raised after a revenue has been updated
type RevenueUpdated struct {
	Revenue               *Revenue
	PreviousValue         decimal.Decimal
	PreviousDate          time.Time
	PreviousBankAccountID uuid.UUID
}

// EventName returns the event type name
func (e RevenueUpdated) EventName() string { return "RevenueUpdated" }

// RevenueDeleted is raised after a revenue has been deleted
type RevenueDeleted struct {
	Revenue *Revenue
}

// EventName returns the event type name
func (e RevenueDeleted) EventName() string { return "RevenueDeleted" }

// RevenueCategoryRenamed cascades a category rename to all revenues that
// referenced the old name
type RevenueCategoryRenamed struct {
	UserID  uuid.UUID
	OldName string
	NewName string
}

// EventName returns the event type name
func (e RevenueCategoryRenamed) EventName() string { return "RevenueCategoryRenamed" }

// Asset events

// TransactionsCreated is raised after one or more transactions have been
// added to an asset. The projector recomputes the asset's read row.
type TransactionsCreated struct {
	AssetID uuid.UUID
}

// EventName returns the event type name
func (e TransactionsCreated) EventName() string { return "TransactionsCreated" }

// TransactionUpdated is raised after a transaction has been updated
type TransactionUpdated struct {
	AssetID uuid.UUID
}

// EventName returns the event type name
func (e TransactionUpdated) EventName() string { return "TransactionUpdated" }

// TransactionDeleted is raised after a transaction has been deleted
type TransactionDeleted struct {
	AssetID uuid.UUID
}

// EventName returns the event type name
func (e TransactionDeleted) EventName() string { return "TransactionDeleted" }

// PassiveIncomeCreated is raised after a passive income has been added
type PassiveIncomeCreated struct {
	AssetID uuid.UUID
}

// EventName returns the event type name
func (e PassiveIncomeCreated) EventName() string { return "PassiveIncomeCreated" }

// PassiveIncomeUpdated is raised after a passive income has been updated
type PassiveIncomeUpdated struct {
	AssetID uuid.UUID
}

// EventName returns the event type name
func (e PassiveIncomeUpdated) EventName() string { return "PassiveIncomeUpdated" }

// PassiveIncomeDeleted is raised after a passive income has been deleted
type PassiveIncomeDeleted struct {
	AssetID uuid.UUID
}

// EventName returns the event type name
func (e PassiveIncomeDeleted) EventName() string { return "PassiveIncomeDeleted" }

// AssetQuantityZeroed is raised when a sell brings the cumulative quantity to
// zero; its handler performs closed-operation settlement
type AssetQuantityZeroed struct {
	AssetID           uuid.UUID
	OperationDatetime time.Time
}

// EventName returns the event type name
func (e AssetQuantityZeroed) EventName() string { return "AssetQuantityZeroed" }
