// Package snapshot records monthly patrimony snapshots and answers
// growth-over-period queries against them.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
	"github.com/centavo-app/centavo-backend/internal/usecase/costbasis"
	"github.com/centavo-app/centavo-backend/internal/usecase/fxcache"
)

// Service takes the monthly snapshots and serves the growth queries
type Service struct {
	fx  *fxcache.DollarCache
	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new snapshot Service instance
func NewService(fx *fxcache.DollarCache, log zerolog.Logger) *Service {
	return &Service{
		fx:  fx,
		now: time.Now,
		log: log.With().Str("component", "snapshot").Logger(),
	}
}

// NewServiceWithClock creates a Service with an injected clock for tests
func NewServiceWithClock(fx *fxcache.DollarCache, log zerolog.Logger, now func() time.Time) *Service {
	service := NewService(fx, log)
	service.now = now
	return service
}

// HandleTakeSnapshots handles the TakeSnapshots command.
// Logic:
//  1. Bank total = sum of the user's active account balances
//  2. Invested total = sum of normalized current price times quantity balance
//     across the user's read rows
//  3. Record one row per table dated the first of the month
func (s *Service) HandleTakeSnapshots(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.TakeSnapshots)
	if !ok {
		return fmt.Errorf("snapshot service: unexpected command %T", cmd)
	}
	operationDate := domain.MonthStart(c.Month)

	bankTotal, err := s.bankTotal(ctx, uow)
	if err != nil {
		return err
	}
	if err := uow.Snapshots().AddBankSnapshot(ctx, &domain.BankAccountSnapshot{
		ID:            uuid.New(),
		UserID:        c.UserID,
		OperationDate: operationDate,
		Total:         bankTotal,
	}); err != nil {
		return err
	}

	investedTotal, err := s.investedTotal(ctx, uow)
	if err != nil {
		return err
	}
	if err := uow.Snapshots().AddInvestedSnapshot(ctx, &domain.AssetsTotalInvestedSnapshot{
		ID:            uuid.New(),
		UserID:        c.UserID,
		OperationDate: operationDate,
		Total:         investedTotal,
	}); err != nil {
		return err
	}

	s.log.Info().
		Str("user_id", c.UserID.String()).
		Time("operation_date", operationDate).
		Msg("monthly snapshots recorded")
	return nil
}

// PatrimonyGrowth holds the answer to a growth-over-period query
type PatrimonyGrowth struct {
	CurrentTotal     decimal.Decimal
	HistoricalTotal  decimal.Decimal
	HistoricalDate   time.Time
	GrowthPercentage decimal.Decimal
}

// BankGrowth compares the user's current bank total with the latest snapshot
// at or before today minus the given number of months
func (s *Service) BankGrowth(ctx context.Context, uow domain.UnitOfWork, months int) (*PatrimonyGrowth, error) {
	target := domain.AddMonthsClamped(domain.MonthStart(s.now()), -months)
	historical, err := uow.Snapshots().LatestBankBefore(ctx, target)
	if err != nil {
		return nil, err
	}
	current, err := s.bankTotal(ctx, uow)
	if err != nil {
		return nil, err
	}
	return &PatrimonyGrowth{
		CurrentTotal:     current,
		HistoricalTotal:  historical.Total,
		HistoricalDate:   historical.OperationDate,
		GrowthPercentage: growthPercentage(current, historical.Total),
	}, nil
}

// InvestedGrowth compares the user's current invested total with the latest
// snapshot at or before today minus the given number of months
func (s *Service) InvestedGrowth(ctx context.Context, uow domain.UnitOfWork, months int) (*PatrimonyGrowth, error) {
	target := domain.AddMonthsClamped(domain.MonthStart(s.now()), -months)
	historical, err := uow.Snapshots().LatestInvestedBefore(ctx, target)
	if err != nil {
		return nil, err
	}
	current, err := s.investedTotal(ctx, uow)
	if err != nil {
		return nil, err
	}
	return &PatrimonyGrowth{
		CurrentTotal:     current,
		HistoricalTotal:  historical.Total,
		HistoricalDate:   historical.OperationDate,
		GrowthPercentage: growthPercentage(current, historical.Total),
	}, nil
}

// AssetROI is the answer to an opened-position ROI query
type AssetROI struct {
	NormalizedROI decimal.Decimal
	Percentage    decimal.Decimal
}

// OpenPositionROI values an opened position at its current metadata price,
// converted to BRL for USD assets, and returns the normalized ROI with its
// percentage over the invested amount
func (s *Service) OpenPositionROI(ctx context.Context, uow domain.UnitOfWork, assetID uuid.UUID) (*AssetROI, error) {
	row, err := uow.ReadModels().Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if row.MetadataID == nil {
		return nil, domain.ErrNotFound
	}
	metadata, err := uow.AssetMetaData().Get(ctx, *row.MetadataID)
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromInt(1)
	if row.Currency == domain.CurrencyUSD {
		rate = s.fx.Rate(ctx)
	}
	window := costbasis.Aggregates{
		QuantityBalance:           row.QuantityBalance,
		NormalizedTotalBought:     row.NormalizedTotalBought,
		NormalizedTotalSold:       row.NormalizedTotalSold,
		NormalizedCreditedIncomes: row.NormalizedCreditedIncomes,
	}
	roi := costbasis.OpenROI(window, metadata.CurrentPrice, rate)
	return &AssetROI{
		NormalizedROI: roi,
		Percentage:    costbasis.ROIPercentage(roi, row.NormalizedTotalBought),
	}, nil
}

func (s *Service) bankTotal(ctx context.Context, uow domain.UnitOfWork) (decimal.Decimal, error) {
	accounts, err := uow.BankAccounts().List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, account := range accounts {
		if account.IsActive {
			total = total.Add(account.Amount)
		}
	}
	return total, nil
}

// investedTotal values each opened position at its metadata price, converted
// to BRL with the cached dollar rate for USD assets
func (s *Service) investedTotal(ctx context.Context, uow domain.UnitOfWork) (decimal.Decimal, error) {
	rows, err := uow.ReadModels().List(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, row := range rows {
		if !row.QuantityBalance.IsPositive() || row.MetadataID == nil {
			continue
		}
		metadata, err := uow.AssetMetaData().Get(ctx, *row.MetadataID)
		if err != nil {
			return decimal.Zero, err
		}
		price := metadata.CurrentPrice
		if row.Currency == domain.CurrencyUSD {
			price = price.Mul(s.fx.Rate(ctx))
		}
		total = total.Add(price.Mul(row.QuantityBalance))
	}
	return total, nil
}

// growthPercentage returns the relative growth over the historical total,
// rounded to 2dp, guarding against a zero divisor
func growthPercentage(current, historical decimal.Decimal) decimal.Decimal {
	if historical.IsZero() {
		return decimal.Zero
	}
	return current.Sub(historical).Div(historical).Mul(decimal.NewFromInt(100)).Round(2)
}
