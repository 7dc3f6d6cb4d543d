package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseRepository defines the interface for expense persistence operations.
// All operations are scoped to the user the unit of work was acquired for.
type ExpenseRepository interface {
	// Get retrieves an expense by its ID
	Get(ctx context.Context, id uuid.UUID) (*Expense, error)

	// Add creates a new expense and records it in the seen set
	Add(ctx context.Context, expense *Expense) error

	// Update persists an expense's mutable fields
	Update(ctx context.Context, expense *Expense) error

	// Delete removes an expense
	Delete(ctx context.Context, expense *Expense) error

	// AddInstallments bulk-inserts an installment group
	AddInstallments(ctx context.Context, installments []*Expense) error

	// GetInstallments retrieves all siblings sharing an installments ID,
	// ordered by installment number
	GetInstallments(ctx context.Context, installmentsID uuid.UUID) ([]*Expense, error)

	// AddFutureFixed bulk-inserts the forward rows of a fixed series
	AddFutureFixed(ctx context.Context, expenses []*Expense) error

	// ListFutureFixed retrieves the fixed rows sharing a recurring ID dated
	// strictly after the given date, ordered by date
	ListFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) ([]*Expense, error)

	// DeleteFutureFixed removes the fixed rows sharing a recurring ID dated
	// strictly after the given date
	DeleteFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) error

	// ListFixedInMonth retrieves the fixed expenses dated within the given month
	ListFixedInMonth(ctx context.Context, month time.Time) ([]*Expense, error)

	// SumBySourceInPeriod sums expense values for a bank account and source
	// with dates in [from, to)
	SumBySourceInPeriod(ctx context.Context, bankAccountID uuid.UUID, source ExpenseSource, from, to time.Time) (decimal.Decimal, error)

	// RenameCategory updates every expense referencing the old category name
	RenameCategory(ctx context.Context, oldName, newName string) (int, error)

	// RenameSource updates every expense referencing the old source name
	RenameSource(ctx context.Context, oldName, newName string) (int, error)
}

// RevenueRepository defines the interface for revenue persistence operations
type RevenueRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Revenue, error)
	Add(ctx context.Context, revenue *Revenue) error
	Update(ctx context.Context, revenue *Revenue) error
	Delete(ctx context.Context, revenue *Revenue) error

	// AddFutureFixed bulk-inserts the forward rows of a fixed series
	AddFutureFixed(ctx context.Context, revenues []*Revenue) error

	// ListFutureFixed retrieves the fixed rows sharing a recurring ID dated
	// strictly after the given date, ordered by date
	ListFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) ([]*Revenue, error)

	// DeleteFutureFixed removes the fixed rows sharing a recurring ID dated
	// strictly after the given date
	DeleteFutureFixed(ctx context.Context, recurringID uuid.UUID, after time.Time) error

	// ListFixedInMonth retrieves the fixed revenues dated within the given month
	ListFixedInMonth(ctx context.Context, month time.Time) ([]*Revenue, error)

	// RenameCategory updates every revenue referencing the old category name
	RenameCategory(ctx context.Context, oldName, newName string) (int, error)
}

// BankAccountRepository defines the interface for bank account persistence.
// Increment and Decrement compile to a single atomic arithmetic update so the
// hottest row's critical section stays minimal.
type BankAccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*BankAccount, error)
	GetDefault(ctx context.Context) (*BankAccount, error)
	List(ctx context.Context) ([]*BankAccount, error)
	Add(ctx context.Context, account *BankAccount) error
	Update(ctx context.Context, account *BankAccount) error
	Increment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Decrement(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// Get retrieves an asset with its transactions and passive incomes hydrated
	Get(ctx context.Context, id uuid.UUID) (*Asset, error)

	// GetByIdentity retrieves the user's asset with the given (code, type,
	// currency) key, hydrated
	GetByIdentity(ctx context.Context, identity AssetIdentity) (*Asset, error)

	List(ctx context.Context) ([]*Asset, error)
	Add(ctx context.Context, asset *Asset) error
	Update(ctx context.Context, asset *Asset) error
	Delete(ctx context.Context, asset *Asset) error
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Add(ctx context.Context, tx *Transaction) error
	AddBatch(ctx context.Context, txs []*Transaction) error
	Update(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, tx *Transaction) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Transaction, error)
}

// PassiveIncomeRepository defines the interface for passive income persistence
type PassiveIncomeRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*PassiveIncome, error)
	Add(ctx context.Context, income *PassiveIncome) error
	Update(ctx context.Context, income *PassiveIncome) error
	Delete(ctx context.Context, income *PassiveIncome) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*PassiveIncome, error)
}

// ClosedOperationRepository defines the interface for closed-operation
// settlement records. Append-only.
type ClosedOperationRepository interface {
	Add(ctx context.Context, op *AssetClosedOperation) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*AssetClosedOperation, error)

	// GetLatest retrieves the most recent settlement for an asset, or
	// ErrNotFound when the asset has never closed
	GetLatest(ctx context.Context, assetID uuid.UUID) (*AssetClosedOperation, error)
}

// ReadModelRepository defines the interface for the denormalized asset rows
type ReadModelRepository interface {
	Get(ctx context.Context, writeModelPK uuid.UUID) (*AssetReadModel, error)
	List(ctx context.Context) ([]*AssetReadModel, error)
	Upsert(ctx context.Context, row *AssetReadModel) error
	Delete(ctx context.Context, writeModelPK uuid.UUID) error
}

// AssetMetaDataRepository defines the interface for shared pricing metadata.
// Process-wide: metadata for public assets is shared across users and never
// written as part of a user command.
type AssetMetaDataRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*AssetMetaData, error)
	FilterOne(ctx context.Context, identity AssetIdentity) (*AssetMetaData, error)
	Exists(ctx context.Context, identity AssetIdentity) (bool, error)
	Create(ctx context.Context, metadata *AssetMetaData) error

	// FilterForAsset retrieves the metadata row backing the asset: the
	// private row for self-custody holdings, the shared identity row otherwise
	FilterForAsset(ctx context.Context, asset *Asset) (*AssetMetaData, error)

	// FilterAssetsEligibleForUpdate returns the metadata rows of assets held
	// by any user with positive quantity balance
	FilterAssetsEligibleForUpdate(ctx context.Context) ([]*AssetMetaData, error)

	// BulkUpdate persists refreshed prices
	BulkUpdate(ctx context.Context, metadata []*AssetMetaData) error
}

// SnapshotRepository defines the interface for monthly snapshots
type SnapshotRepository interface {
	AddBankSnapshot(ctx context.Context, snapshot *BankAccountSnapshot) error
	AddInvestedSnapshot(ctx context.Context, snapshot *AssetsTotalInvestedSnapshot) error

	// LatestBankBefore retrieves the most recent bank snapshot with
	// operation date at or before the target
	LatestBankBefore(ctx context.Context, target time.Time) (*BankAccountSnapshot, error)

	// LatestInvestedBefore retrieves the most recent invested snapshot with
	// operation date at or before the target
	LatestInvestedBefore(ctx context.Context, target time.Time) (*AssetsTotalInvestedSnapshot, error)
}

// ConversionRateRepository defines the interface for the durable currency
// conversion rows
type ConversionRateRepository interface {
	Get(ctx context.Context, from, to Currency) (*ConversionRate, error)
	Upsert(ctx context.Context, rate *ConversionRate) error
}

// UserLister lists the users the scheduled jobs fan out over. Users are
// external to this core; active users are those with an active bank account.
type UserLister interface {
	ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// UnitOfWork is a scoped transactional context bound to one user. Exiting the
// scope without calling Commit implies rollback. Re-entrant: when an ambient
// transaction is already open, Commit and Rollback become no-ops and the
// outer span controls the actual boundary.
type UnitOfWork interface {
	Expenses() ExpenseRepository
	Revenues() RevenueRepository
	BankAccounts() BankAccountRepository
	Assets() AssetRepository
	Transactions() TransactionRepository
	PassiveIncomes() PassiveIncomeRepository
	ClosedOperations() ClosedOperationRepository
	ReadModels() ReadModelRepository
	AssetMetaData() AssetMetaDataRepository
	Snapshots() SnapshotRepository

	// Commit flushes repository writes to the store
	Commit(ctx context.Context) error

	// Rollback discards them
	Rollback(ctx context.Context) error

	// RaiseEvent buffers an event that is not tied to an aggregate, such as
	// a category rename announced by an input adapter
	RaiseEvent(event Event)

	// CollectNewEvents yields and clears the events buffered on each seen
	// aggregate, in insertion order
	CollectNewEvents() []Event
}

// UnitOfWorkFactory acquires a unit of work bound to one user
type UnitOfWorkFactory interface {
	New(ctx context.Context, userID uuid.UUID) (UnitOfWork, error)
}

// PriceOracle provides current and historical prices for public assets.
// Calls may block on network I/O and must honor the context deadline.
type PriceOracle interface {
	// GetPrices returns current prices keyed by asset code
	GetPrices(ctx context.Context, batch []AssetIdentity) (map[string]decimal.Decimal, error)

	// DollarToBRL returns the current USD to BRL conversion value
	DollarToBRL(ctx context.Context) (decimal.Decimal, error)

	// ClosePrice returns the closing price of an asset at a past date
	ClosePrice(ctx context.Context, identity AssetIdentity, date time.Time) (decimal.Decimal, error)
}

// KeyValueStore is the shared cache consulted between the local memory shield
// and the durable conversion row
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
