package asset_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo-app/centavo-backend/internal/adapter/repository/memory"
	"github.com/centavo-app/centavo-backend/internal/bus"
	"github.com/centavo-app/centavo-backend/internal/domain"
	"github.com/centavo-app/centavo-backend/internal/usecase/asset"
	"github.com/centavo-app/centavo-backend/internal/usecase/fxcache"
	"github.com/centavo-app/centavo-backend/internal/usecase/projector"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

type stubOracle struct {
	prices map[string]decimal.Decimal
	dollar decimal.Decimal
}

func (o *stubOracle) GetPrices(ctx context.Context, batch []domain.AssetIdentity) (map[string]decimal.Decimal, error) {
	return o.prices, nil
}

func (o *stubOracle) DollarToBRL(ctx context.Context) (decimal.Decimal, error) {
	return o.dollar, nil
}

func (o *stubOracle) ClosePrice(ctx context.Context, identity domain.AssetIdentity, date time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fixture struct {
	store   *memory.Store
	factory *memory.UnitOfWorkFactory
	bus     *bus.MessageBus
	oracle  *stubOracle
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	factory := memory.NewUnitOfWorkFactory(store)
	oracle := &stubOracle{prices: map[string]decimal.Decimal{}, dollar: decimal.NewFromInt(5)}

	fx := fxcache.New(
		memory.NewKeyValueStore(store),
		memory.NewConversionRateRepository(store),
		oracle,
		time.Hour,
		decimal.NewFromInt(5),
		zerolog.Nop(),
	)
	assetService := asset.NewServiceWithClock(zerolog.Nop(), clock)
	projectorService := projector.NewService(fx, oracle, zerolog.Nop())

	b := bus.New(factory, zerolog.Nop())
	b.RegisterCommand("CreateTransactions", assetService.HandleCreateTransactions)
	b.RegisterCommand("UpdateTransaction", assetService.HandleUpdateTransaction)
	b.RegisterCommand("DeleteTransaction", assetService.HandleDeleteTransaction)
	b.RegisterCommand("CreatePassiveIncome", assetService.HandleCreatePassiveIncome)
	b.RegisterCommand("UpdatePassiveIncome", assetService.HandleUpdatePassiveIncome)
	b.RegisterCommand("DeletePassiveIncome", assetService.HandleDeletePassiveIncome)
	b.RegisterCommand("RebuildAssetReadModel", projectorService.HandleRebuild)
	b.RegisterCommand("UpdateAssetPrices", projectorService.HandleUpdatePrices)
	for _, name := range []string{
		"TransactionsCreated", "TransactionUpdated", "TransactionDeleted",
		"PassiveIncomeCreated", "PassiveIncomeUpdated", "PassiveIncomeDeleted",
	} {
		b.RegisterEvent(name, projectorService.OnAggregateChanged)
	}
	// Settlement must run before the projection so the read row is rebuilt
	// against the fresh closed operation
	b.RegisterEvent("AssetQuantityZeroed", assetService.OnQuantityZeroed)
	b.RegisterEvent("AssetQuantityZeroed", projectorService.OnAggregateChanged)

	return &fixture{store: store, factory: factory, bus: b, oracle: oracle, userID: uuid.New()}
}

func stockAsset(userID uuid.UUID) *domain.Asset {
	return &domain.Asset{
		UserID:   userID,
		Code:     "PETR4",
		Type:     domain.AssetTypeStock,
		Currency: domain.CurrencyBRL,
	}
}

func buyTx(price, quantity int64, day int) *domain.Transaction {
	return &domain.Transaction{
		Action:                 domain.TransactionActionBuy,
		Price:                  decimal.NewFromInt(price),
		Quantity:               decimal.NewFromInt(quantity),
		Currency:               domain.CurrencyBRL,
		OperationDate:          time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		CurrencyConversionRate: decimal.NewFromInt(1),
	}
}

func sellTx(price, quantity int64, day int) *domain.Transaction {
	tx := buyTx(price, quantity, day)
	tx.Action = domain.TransactionActionSell
	return tx
}

func (f *fixture) create(t *testing.T, txs ...*domain.Transaction) *domain.Asset {
	t.Helper()
	a := stockAsset(f.userID)
	require.NoError(t, f.bus.Handle(context.Background(), domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        a,
		Transactions: txs,
	}))
	return f.getAsset(t, a.Identity())
}

func (f *fixture) getAsset(t *testing.T, identity domain.AssetIdentity) *domain.Asset {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	a, err := uow.Assets().GetByIdentity(ctx, identity)
	require.NoError(t, err)
	return a
}

func (f *fixture) readModel(t *testing.T, assetID uuid.UUID) *domain.AssetReadModel {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	row, err := uow.ReadModels().Get(ctx, assetID)
	require.NoError(t, err)
	return row
}

func (f *fixture) closedOperations(t *testing.T, assetID uuid.UUID) []*domain.AssetClosedOperation {
	t.Helper()
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	ops, err := uow.ClosedOperations().ListByAsset(ctx, assetID)
	require.NoError(t, err)
	return ops
}

func TestHandleCreateTransactions_CreatesAssetMetadataAndReadRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1), buyTx(20, 100, 2))
	require.Len(t, a.Transactions, 2)

	row := f.readModel(t, a.ID)
	assert.Equal(t, "PETR4", row.Code)
	assert.True(t, row.QuantityBalance.Equal(decimal.NewFromInt(200)))
	assert.True(t, row.AvgPrice.Equal(decimal.NewFromInt(15)))
	require.NotNil(t, row.MetadataID)

	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	metadata, err := uow.AssetMetaData().FilterOne(ctx, a.Identity())
	require.NoError(t, err)
	assert.Nil(t, metadata.AssetID)
}

func TestHandleCreateTransactions_ReusesTheExistingAsset(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, buyTx(10, 100, 1))
	second := f.create(t, buyTx(20, 100, 2))
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Transactions, 2)
}

func TestHandleCreateTransactions_SellDefaultsCostBasisToAverage(t *testing.T) {
	f := newFixture(t)

	a := f.create(t, buyTx(10, 100, 1), buyTx(20, 100, 2), sellTx(25, 50, 3))

	var sell *domain.Transaction
	for _, tx := range a.Transactions {
		if tx.Action == domain.TransactionActionSell {
			sell = tx
		}
	}
	require.NotNil(t, sell)
	require.NotNil(t, sell.InitialPrice)
	assert.True(t, sell.InitialPrice.Equal(decimal.NewFromInt(15)))
}

func TestHandleCreateTransactions_RejectsCurrencyMismatch(t *testing.T) {
	f := newFixture(t)

	usd := buyTx(10, 100, 1)
	usd.Currency = domain.CurrencyUSD
	usd.CurrencyConversionRate = decimal.NewFromInt(5)

	err := f.bus.Handle(context.Background(), domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        stockAsset(f.userID),
		Transactions: []*domain.Transaction{buyTx(10, 100, 1), usd},
	})
	assert.ErrorIs(t, err, domain.ErrMultipleCurrencies)

	// The command rolled back: no asset was persisted
	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	_, err = uow.Assets().GetByIdentity(ctx, stockAsset(f.userID).Identity())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleCreateTransactions_RejectsOversell(t *testing.T) {
	f := newFixture(t)
	f.create(t, buyTx(10, 100, 1))

	err := f.bus.Handle(context.Background(), domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        stockAsset(f.userID),
		Transactions: []*domain.Transaction{sellTx(12, 150, 2)},
	})
	assert.ErrorIs(t, err, domain.ErrNegativeQuantity)
}

func TestHandleCreateTransactions_SelfCustodyForcesQuantityOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	daily := domain.LiquidityTypeDaily
	a := &domain.Asset{
		UserID:              f.userID,
		Code:                "CDB Banco X",
		Type:                domain.AssetTypeFixedBR,
		Currency:            domain.CurrencyBRL,
		LiquidityType:       &daily,
		IsHeldInSelfCustody: true,
	}
	tx := buyTx(5000, 3, 1)
	require.NoError(t, f.bus.Handle(ctx, domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        a,
		Transactions: []*domain.Transaction{tx},
	}))
	assert.True(t, tx.Quantity.Equal(decimal.NewFromInt(1)))

	// Self-custody metadata is private to the asset
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	stored, err := uow.Assets().GetByIdentity(ctx, a.Identity())
	require.NoError(t, err)
	metadata, err := uow.AssetMetaData().FilterForAsset(ctx, stored)
	require.NoError(t, err)
	require.NotNil(t, metadata.AssetID)
	assert.Equal(t, stored.ID, *metadata.AssetID)
}

func TestQuantityZeroed_SettlesAClosedOperation(t *testing.T) {
	f := newFixture(t)

	// Buy 100 @ 10, credited income 100, sell all @ 14
	a := f.create(t, buyTx(10, 100, 1))
	require.NoError(t, f.bus.Handle(context.Background(), domain.CreatePassiveIncome{
		UserID:  f.userID,
		AssetID: a.ID,
		Income: &domain.PassiveIncome{
			Type:                   domain.PassiveIncomeTypeDividend,
			EventType:              domain.PassiveIncomeEventTypeCredited,
			Amount:                 decimal.NewFromInt(100),
			OperationDate:          time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			CurrencyConversionRate: decimal.NewFromInt(1),
		},
	}))
	sell := sellTx(14, 100, 3)
	sell.InitialPrice = ptr(decimal.NewFromInt(10))
	require.NoError(t, f.bus.Handle(context.Background(), domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        stockAsset(f.userID),
		Transactions: []*domain.Transaction{sell},
	}))

	ops := f.closedOperations(t, a.ID)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].NormalizedTotalSold.Equal(decimal.NewFromInt(400)))
	assert.True(t, ops[0].NormalizedCreditedIncomes.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, sell.OperationDate, ops[0].OperationDatetime)

	// The read row resets its window and accumulates the closed ROI
	row := f.readModel(t, a.ID)
	assert.True(t, row.QuantityBalance.IsZero())
	assert.True(t, row.NormalizedTotalBought.IsZero())
	assert.True(t, row.NormalizedClosedROI.Equal(decimal.NewFromInt(500)))
}

func TestQuantityZeroed_SecondCloseCoversOnlyItsWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1))
	sell := sellTx(14, 100, 2)
	sell.InitialPrice = ptr(decimal.NewFromInt(10))
	f.create(t, sell)

	// Reopen and close again
	f.create(t, buyTx(20, 50, 5))
	secondSell := sellTx(26, 50, 8)
	secondSell.InitialPrice = ptr(decimal.NewFromInt(20))
	require.NoError(t, f.bus.Handle(ctx, domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        stockAsset(f.userID),
		Transactions: []*domain.Transaction{secondSell},
	}))

	ops := f.closedOperations(t, a.ID)
	require.Len(t, ops, 2)
	assert.True(t, ops[0].NormalizedTotalSold.Equal(decimal.NewFromInt(400)))
	assert.True(t, ops[1].NormalizedTotalSold.Equal(decimal.NewFromInt(300)))
	assert.True(t, ops[1].QuantityBought.Equal(decimal.NewFromInt(50)))

	row := f.readModel(t, a.ID)
	assert.True(t, row.NormalizedClosedROI.Equal(decimal.NewFromInt(700)))
}

func TestQuantityZeroed_ReplayIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1))
	sell := sellTx(14, 100, 2)
	sell.InitialPrice = ptr(decimal.NewFromInt(10))
	f.create(t, sell)
	require.Len(t, f.closedOperations(t, a.ID), 1)

	// Updating the closing sell re-emits the zeroed event with the same
	// operation datetime
	require.NoError(t, f.bus.Handle(ctx, domain.UpdateTransaction{
		UserID:        f.userID,
		AssetID:       a.ID,
		TransactionID: sell.ID,
		Data: &domain.Transaction{
			Price:                  decimal.NewFromInt(15),
			Quantity:               decimal.NewFromInt(100),
			OperationDate:          sell.OperationDate,
			CurrencyConversionRate: decimal.NewFromInt(1),
		},
	}))
	assert.Len(t, f.closedOperations(t, a.ID), 1)
}

func TestHandleDeleteTransaction_RejectsDeletingTheBuyUnderASell(t *testing.T) {
	f := newFixture(t)

	a := f.create(t, buyTx(10, 100, 1), sellTx(12, 80, 2))
	var buy *domain.Transaction
	for _, tx := range a.Transactions {
		if tx.Action == domain.TransactionActionBuy {
			buy = tx
		}
	}
	require.NotNil(t, buy)

	err := f.bus.Handle(context.Background(), domain.DeleteTransaction{
		UserID:        f.userID,
		AssetID:       a.ID,
		TransactionID: buy.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNegativeQuantity)
}

func TestHandleCreatePassiveIncome_RejectsTypeMismatch(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, buyTx(10, 100, 1))

	err := f.bus.Handle(context.Background(), domain.CreatePassiveIncome{
		UserID:  f.userID,
		AssetID: a.ID,
		Income: &domain.PassiveIncome{
			Type:                   domain.PassiveIncomeTypeIncome,
			EventType:              domain.PassiveIncomeEventTypeCredited,
			Amount:                 decimal.NewFromInt(10),
			OperationDate:          time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			CurrencyConversionRate: decimal.NewFromInt(1),
		},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "income type not valid for asset type")
}

func TestHandleUpdatePrices_RefreshesHeldAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1))
	f.oracle.prices = map[string]decimal.Decimal{"PETR4": decimal.NewFromFloat(12.5)}

	require.NoError(t, f.bus.Handle(ctx, domain.UpdateAssetPrices{}))

	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	metadata, err := uow.AssetMetaData().FilterOne(ctx, a.Identity())
	require.NoError(t, err)
	assert.True(t, metadata.CurrentPrice.Equal(decimal.NewFromFloat(12.5)))
	assert.NotNil(t, metadata.CurrentPriceUpdatedAt)
}

func TestHandleUpdatePrices_SkipsCodesMissingFromTheOracle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1))
	f.oracle.prices = map[string]decimal.Decimal{"VALE3": decimal.NewFromInt(60)}

	require.NoError(t, f.bus.Handle(ctx, domain.UpdateAssetPrices{}))

	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	metadata, err := uow.AssetMetaData().FilterOne(ctx, a.Identity())
	require.NoError(t, err)
	assert.True(t, metadata.CurrentPrice.IsZero())
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
