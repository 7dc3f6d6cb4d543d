package app

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/bus"
	"github.com/centavo-app/centavo-backend/internal/domain"
	"github.com/centavo-app/centavo-backend/internal/usecase/account"
	"github.com/centavo-app/centavo-backend/internal/usecase/asset"
	"github.com/centavo-app/centavo-backend/internal/usecase/expense"
	"github.com/centavo-app/centavo-backend/internal/usecase/fxcache"
	"github.com/centavo-app/centavo-backend/internal/usecase/projector"
	"github.com/centavo-app/centavo-backend/internal/usecase/revenue"
	"github.com/centavo-app/centavo-backend/internal/usecase/rollover"
	"github.com/centavo-app/centavo-backend/internal/usecase/snapshot"
)

// Options carries the external dependencies and tuning knobs the application
// core needs wired in.
type Options struct {
	Factory domain.UnitOfWorkFactory
	KV      domain.KeyValueStore
	Rates   domain.ConversionRateRepository
	Oracle  domain.PriceOracle

	DollarCacheTTL    time.Duration
	DefaultDollarRate decimal.Decimal

	Log zerolog.Logger
}

// App is the wired application core: the message bus with every command and
// event handler registered, plus the shared dollar cache.
type App struct {
	Bus      *bus.MessageBus
	FX       *fxcache.DollarCache
	Snapshot *snapshot.Service
}

// New wires the services and registers the dispatch tables.
//
// On AssetQuantityZeroed the settlement handler must run before the
// projector so the read row is rebuilt against the new closed operation.
func New(opts Options) *App {
	fx := fxcache.New(opts.KV, opts.Rates, opts.Oracle,
		opts.DollarCacheTTL, opts.DefaultDollarRate, opts.Log)

	expenseService := expense.NewService(opts.Log)
	revenueService := revenue.NewService(opts.Log)
	accountService := account.NewService(opts.Log)
	assetService := asset.NewService(opts.Log)
	projectorService := projector.NewService(fx, opts.Oracle, opts.Log)
	snapshotService := snapshot.NewService(fx, opts.Log)
	rolloverService := rollover.NewService(opts.Log)

	b := bus.New(opts.Factory, opts.Log)

	b.RegisterCommand("CreateExpense", expenseService.HandleCreate)
	b.RegisterCommand("UpdateExpense", expenseService.HandleUpdate)
	b.RegisterCommand("DeleteExpense", expenseService.HandleDelete)
	b.RegisterCommand("RenameExpenseCategory", expenseService.HandleRenameCategory)
	b.RegisterCommand("RenameExpenseSource", expenseService.HandleRenameSource)

	b.RegisterCommand("CreateRevenue", revenueService.HandleCreate)
	b.RegisterCommand("UpdateRevenue", revenueService.HandleUpdate)
	b.RegisterCommand("DeleteRevenue", revenueService.HandleDelete)
	b.RegisterCommand("RenameRevenueCategory", revenueService.HandleRenameCategory)

	b.RegisterCommand("CreateTransactions", assetService.HandleCreateTransactions)
	b.RegisterCommand("UpdateTransaction", assetService.HandleUpdateTransaction)
	b.RegisterCommand("DeleteTransaction", assetService.HandleDeleteTransaction)
	b.RegisterCommand("CreatePassiveIncome", assetService.HandleCreatePassiveIncome)
	b.RegisterCommand("UpdatePassiveIncome", assetService.HandleUpdatePassiveIncome)
	b.RegisterCommand("DeletePassiveIncome", assetService.HandleDeletePassiveIncome)

	b.RegisterCommand("RebuildAssetReadModel", projectorService.HandleRebuild)
	b.RegisterCommand("UpdateAssetPrices", projectorService.HandleUpdatePrices)

	b.RegisterCommand("RolloverFixedEntities", rolloverService.HandleRollover)
	b.RegisterCommand("SettleCreditCardBills", accountService.HandleSettleBills)
	b.RegisterCommand("TakeSnapshots", snapshotService.HandleTakeSnapshots)

	b.RegisterEvent("ExpenseCreated", accountService.OnExpenseCreated)
	b.RegisterEvent("ExpenseUpdated", accountService.OnExpenseUpdated)
	b.RegisterEvent("ExpenseDeleted", accountService.OnExpenseDeleted)
	b.RegisterEvent("ExpenseCategoryRenamed", expenseService.OnCategoryRenamed)
	b.RegisterEvent("ExpenseSourceRenamed", expenseService.OnSourceRenamed)

	b.RegisterEvent("RevenueCreated", accountService.OnRevenueCreated)
	b.RegisterEvent("RevenueUpdated", accountService.OnRevenueUpdated)
	b.RegisterEvent("RevenueDeleted", accountService.OnRevenueDeleted)
	b.RegisterEvent("RevenueCategoryRenamed", revenueService.OnCategoryRenamed)

	b.RegisterEvent("TransactionsCreated", projectorService.OnAggregateChanged)
	b.RegisterEvent("TransactionUpdated", projectorService.OnAggregateChanged)
	b.RegisterEvent("TransactionDeleted", projectorService.OnAggregateChanged)
	b.RegisterEvent("PassiveIncomeCreated", projectorService.OnAggregateChanged)
	b.RegisterEvent("PassiveIncomeUpdated", projectorService.OnAggregateChanged)
	b.RegisterEvent("PassiveIncomeDeleted", projectorService.OnAggregateChanged)

	b.RegisterEvent("AssetQuantityZeroed", assetService.OnQuantityZeroed)
	b.RegisterEvent("AssetQuantityZeroed", projectorService.OnAggregateChanged)

	return &App{Bus: b, FX: fx, Snapshot: snapshotService}
}
