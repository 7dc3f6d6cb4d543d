package domain

import (
	"time"

	"github.com/google/uuid"
)

// Command is an imperative request with exactly one handler. Command failures
// abort the batch and surface to the caller.
type Command interface {
	CommandName() string
	CommandUserID() uuid.UUID
}

// Expense commands

// CreateExpense creates a single expense, an installment group, or a fixed
// series depending on the expense fields
type CreateExpense struct {
	Expense *Expense

	// PerformActionsOnFutureFixedEntities pre-populates the 11 forward
	// months of a fixed series at create time
	PerformActionsOnFutureFixedEntities bool
}

// CommandName returns the command type name
func (c CreateExpense) CommandName() string { return "CreateExpense" }

// CommandUserID returns the user scope of the command
func (c CreateExpense) CommandUserID() uuid.UUID { return c.Expense.UserID }

// UpdateExpense updates an expense, branching on the (previous, new)
// combination of is_fixed and installments_id
type UpdateExpense struct {
	ExpenseID                           uuid.UUID
	UserID                              uuid.UUID
	Data                                *Expense
	PerformActionsOnFutureFixedEntities bool
}

// CommandName returns the command type name
func (c UpdateExpense) CommandName() string { return "UpdateExpense" }

// CommandUserID returns the user scope of the command
func (c UpdateExpense) CommandUserID() uuid.UUID { return c.UserID }

// DeleteExpense deletes an expense, optionally cascading to future fixed rows
// or the whole installment group
type DeleteExpense struct {
	ExpenseID                           uuid.UUID
	UserID                              uuid.UUID
	PerformActionsOnFutureFixedEntities bool
}

// CommandName returns the command type name
func (c DeleteExpense) CommandName() string { return "DeleteExpense" }

// CommandUserID returns the user scope of the command
func (c DeleteExpense) CommandUserID() uuid.UUID { return c.UserID }

// RenameExpenseCategory cascades a category rename across the user's expenses
type RenameExpenseCategory struct {
	UserID  uuid.UUID
	OldName string
	NewName string
}

// CommandName returns the command type name
func (c RenameExpenseCategory) CommandName() string { return "RenameExpenseCategory" }

// CommandUserID returns the user scope of the command
func (c RenameExpenseCategory) CommandUserID() uuid.UUID { return c.UserID }

// RenameExpenseSource cascades a source rename across the user's expenses
type RenameExpenseSource struct {
	UserID  uuid.UUID
	OldName string
	NewName string
}

// CommandName returns the command type name
func (c RenameExpenseSource) CommandName() string { return "RenameExpenseSource" }

// CommandUserID returns the user scope of the command
func (c RenameExpenseSource) CommandUserID() uuid.UUID { return c.UserID }

// Revenue commands

// CreateRevenue creates a single revenue or a fixed series
type CreateRevenue struct {
	Revenue                             *Revenue
	PerformActionsOnFutureFixedEntities bool
}

// CommandName returns the command type name
func (c CreateRevenue) CommandName() string { return "CreateRevenue" }

// CommandUserID returns the user scope of the command
func (c CreateRevenue) CommandUserID() uuid.UUID { return c.Revenue.UserID }

// UpdateRevenue updates a revenue
type UpdateRevenue struct {
	RevenueID                           uuid.UUID
	UserID                              uuid.UUID
	Data                                *Revenue
	PerformActionsOnFutureFixedEntities bool
}

// CommandName returns the command type name
func (c UpdateRevenue) CommandName() string { return "UpdateRevenue" }

// CommandUserID returns the user scope of the command
func (c UpdateRevenue) CommandUserID() uuid.UUID { return c.UserID }

// DeleteRevenue deletes a revenue, optionally cascading to future fixed rows
type DeleteRevenue struct {
	RevenueID                           uuid.UUID
	UserID                              uuid.UUID
	PerformActionsOnFutureFixedEntities bool
}

// CommandName returns the command type name
func (c DeleteRevenue) CommandName() string { return "DeleteRevenue" }

// CommandUserID returns the user scope of the command
func (c DeleteRevenue) CommandUserID() uuid.UUID { return c.UserID }

// RenameRevenueCategory cascades a category rename across the user's revenues
type RenameRevenueCategory struct {
	UserID  uuid.UUID
	OldName string
	NewName string
}

// CommandName returns the command type name
func (c RenameRevenueCategory) CommandName() string { return "RenameRevenueCategory" }

// CommandUserID returns the user scope of the command
func (c RenameRevenueCategory) CommandUserID() uuid.UUID { return c.UserID }

// Asset commands

// CreateTransactions adds one or more transactions to an asset, creating the
// asset on first use
type CreateTransactions struct {
	UserID       uuid.UUID
	Asset        *Asset
	Transactions []*Transaction
}

// CommandName returns the command type name
func (c CreateTransactions) CommandName() string { return "CreateTransactions" }

// CommandUserID returns the user scope of the command
func (c CreateTransactions) CommandUserID() uuid.UUID { return c.UserID }

// UpdateTransaction updates a transaction's mutable fields (price, quantity,
// date); identity is immutable
type UpdateTransaction struct {
	UserID        uuid.UUID
	AssetID       uuid.UUID
	TransactionID uuid.UUID
	Data          *Transaction
}

// CommandName returns the command type name
func (c UpdateTransaction) CommandName() string { return "UpdateTransaction" }

// CommandUserID returns the user scope of the command
func (c UpdateTransaction) CommandUserID() uuid.UUID { return c.UserID }

// DeleteTransaction removes a transaction from an asset
type DeleteTransaction struct {
	UserID        uuid.UUID
	AssetID       uuid.UUID
	TransactionID uuid.UUID
}

// CommandName returns the command type name
func (c DeleteTransaction) CommandName() string { return "DeleteTransaction" }

// CommandUserID returns the user scope of the command
func (c DeleteTransaction) CommandUserID() uuid.UUID { return c.UserID }

// CreatePassiveIncome records a dividend, JCP or income payment on an asset
type CreatePassiveIncome struct {
	UserID  uuid.UUID
	AssetID uuid.UUID
	Income  *PassiveIncome
}

// CommandName returns the command type name
func (c CreatePassiveIncome) CommandName() string { return "CreatePassiveIncome" }

// CommandUserID returns the user scope of the command
func (c CreatePassiveIncome) CommandUserID() uuid.UUID { return c.UserID }

// UpdatePassiveIncome updates a passive income
type UpdatePassiveIncome struct {
	UserID   uuid.UUID
	AssetID  uuid.UUID
	IncomeID uuid.UUID
	Data     *PassiveIncome
}

// CommandName returns the command type name
func (c UpdatePassiveIncome) CommandName() string { return "UpdatePassiveIncome" }

// CommandUserID returns the user scope of the command
func (c UpdatePassiveIncome) CommandUserID() uuid.UUID { return c.UserID }

// DeletePassiveIncome removes a passive income from an asset
type DeletePassiveIncome struct {
	UserID   uuid.UUID
	AssetID  uuid.UUID
	IncomeID uuid.UUID
}

// CommandName returns the command type name
func (c DeletePassiveIncome) CommandName() string { return "DeletePassiveIncome" }

// CommandUserID returns the user scope of the command
func (c DeletePassiveIncome) CommandUserID() uuid.UUID { return c.UserID }

// RebuildAssetReadModel recomputes the full read row (aggregate and
// descriptive columns) for an asset, recovering from divergence
type RebuildAssetReadModel struct {
	UserID  uuid.UUID
	AssetID uuid.UUID
}

// CommandName returns the command type name
func (c RebuildAssetReadModel) CommandName() string { return "RebuildAssetReadModel" }

// CommandUserID returns the user scope of the command
func (c RebuildAssetReadModel) CommandUserID() uuid.UUID { return c.UserID }

// UpdateAssetPrices refreshes the current price of every metadata row backing
// a held position. System scoped: metadata is shared across users.
type UpdateAssetPrices struct{}

// CommandName returns the command type name
func (c UpdateAssetPrices) CommandName() string { return "UpdateAssetPrices" }

// CommandUserID returns the system scope of the command
func (c UpdateAssetPrices) CommandUserID() uuid.UUID { return uuid.Nil }

// Scheduled commands. These are user-scoped instances fanned out by the
// scheduler jobs, one per active user.

// RolloverFixedEntities duplicates last month's fixed expenses and revenues
// into the given month
type RolloverFixedEntities struct {
	UserID uuid.UUID
	Month  time.Time
}

// CommandName returns the command type name
func (c RolloverFixedEntities) CommandName() string { return "RolloverFixedEntities" }

// CommandUserID returns the user scope of the command
func (c RolloverFixedEntities) CommandUserID() uuid.UUID { return c.UserID }

// SettleCreditCardBills sums the period's credit-card expenses for each of
// the user's accounts whose bill day is today and decrements the account once
type SettleCreditCardBills struct {
	UserID uuid.UUID
	Today  time.Time
}

// CommandName returns the command type name
func (c SettleCreditCardBills) CommandName() string { return "SettleCreditCardBills" }

// CommandUserID returns the user scope of the command
func (c SettleCreditCardBills) CommandUserID() uuid.UUID { return c.UserID }

// TakeSnapshots records the user's bank total and total invested for the
// given month
type TakeSnapshots struct {
	UserID uuid.UUID
	Month  time.Time
}

// CommandName returns the command type name
func (c TakeSnapshots) CommandName() string { return "TakeSnapshots" }

// CommandUserID returns the user scope of the command
func (c TakeSnapshots) CommandUserID() uuid.UUID { return c.UserID }
