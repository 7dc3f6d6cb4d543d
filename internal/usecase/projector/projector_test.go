package projector_test

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

type stubOracle struct{}

func (stubOracle) GetPrices(ctx context.Context, batch []domain.AssetIdentity) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{}, nil
}

func (stubOracle) DollarToBRL(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(5), nil
}

func (stubOracle) ClosePrice(ctx context.Context, identity domain.AssetIdentity, date time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fixture struct {
	factory *memory.UnitOfWorkFactory
	bus     *bus.MessageBus
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	factory := memory.NewUnitOfWorkFactory(store)

	fx := fxcache.New(
		memory.NewKeyValueStore(store),
		memory.NewConversionRateRepository(store),
		stubOracle{},
		time.Hour,
		decimal.NewFromInt(5),
		zerolog.Nop(),
	)
	assetService := asset.NewServiceWithClock(zerolog.Nop(), clock)
	projectorService := projector.NewService(fx, stubOracle{}, zerolog.Nop())

	b := bus.New(factory, zerolog.Nop())
	b.RegisterCommand("CreateTransactions", assetService.HandleCreateTransactions)
	b.RegisterCommand("CreatePassiveIncome", assetService.HandleCreatePassiveIncome)
	b.RegisterCommand("RebuildAssetReadModel", projectorService.HandleRebuild)
	for _, name := range []string{
		"TransactionsCreated", "PassiveIncomeCreated",
	} {
		b.RegisterEvent(name, projectorService.OnAggregateChanged)
	}
	b.RegisterEvent("AssetQuantityZeroed", assetService.OnQuantityZeroed)
	b.RegisterEvent("AssetQuantityZeroed", projectorService.OnAggregateChanged)

	return &fixture{factory: factory, bus: b, userID: uuid.New()}
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

	ctx := context.Background()
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	stored, err := uow.Assets().GetByIdentity(ctx, a.Identity())
	require.NoError(t, err)
	return stored
}

func (f *fixture) rebuild(t *testing.T, assetID uuid.UUID) *domain.AssetReadModel {
	t.Helper()
	require.NoError(t, f.bus.Handle(context.Background(), domain.RebuildAssetReadModel{
		UserID:  f.userID,
		AssetID: assetID,
	}))
	return f.readModel(t, assetID)
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

func TestHandleRebuild_IsIdempotent(t *testing.T) {
	f := newFixture(t)

	a := f.create(t, buyTx(10, 100, 1), buyTx(20, 100, 2))
	projected := f.readModel(t, a.ID)

	first := f.rebuild(t, a.ID)
	second := f.rebuild(t, a.ID)

	// Rebuilding N times yields the same row as the event-driven projection
	assert.Equal(t, first, second)
	assert.Equal(t, projected, second)
	assert.True(t, second.QuantityBalance.Equal(decimal.NewFromInt(200)))
	assert.True(t, second.AvgPrice.Equal(decimal.NewFromInt(15)))
}

func TestHandleRebuild_IsIdempotentAfterAClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1))
	require.NoError(t, f.bus.Handle(ctx, domain.CreatePassiveIncome{
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
	initial := decimal.NewFromInt(10)
	sell.InitialPrice = &initial
	require.NoError(t, f.bus.Handle(ctx, domain.CreateTransactions{
		UserID:       f.userID,
		Asset:        stockAsset(f.userID),
		Transactions: []*domain.Transaction{sell},
	}))
	projected := f.readModel(t, a.ID)

	first := f.rebuild(t, a.ID)
	second := f.rebuild(t, a.ID)

	// The settled window stays settled: the rebuild recomputes the same
	// zeroed row and does not double-count the closed operation
	assert.Equal(t, first, second)
	assert.Equal(t, projected, second)
	assert.True(t, second.QuantityBalance.IsZero())
	assert.True(t, second.NormalizedTotalBought.IsZero())
	assert.True(t, second.NormalizedClosedROI.Equal(decimal.NewFromInt(500)))
}

func TestHandleRebuild_RestoresDescriptiveColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, buyTx(10, 100, 1))

	// Simulate a diverged row: the descriptive half was overwritten
	uow, err := f.factory.New(ctx, f.userID)
	require.NoError(t, err)
	row, err := uow.ReadModels().Get(ctx, a.ID)
	require.NoError(t, err)
	row.Code = "WRONG"
	row.MetadataID = nil
	require.NoError(t, uow.ReadModels().Upsert(ctx, row))
	require.NoError(t, uow.Commit(ctx))

	rebuilt := f.rebuild(t, a.ID)
	assert.Equal(t, "PETR4", rebuilt.Code)
	assert.NotNil(t, rebuilt.MetadataID)
}
