// Package projector maintains the denormalized per-asset read rows and the
// shared pricing metadata. Projection runs inside the same unit of work as
// the write that triggered it, so the read model converges with every
// aggregate-touching command.
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
	"github.com/centavo-app/centavo-backend/internal/usecase/costbasis"
	"github.com/centavo-app/centavo-backend/internal/usecase/fxcache"
)

// priceFetchTimeout bounds the oracle round-trip during the scheduled refresh
const priceFetchTimeout = 30 * time.Second

// Service projects write-model changes into the asset read rows and refreshes
// metadata prices from the oracle
type Service struct {
	fx     *fxcache.DollarCache
	oracle domain.PriceOracle
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a new projector Service instance
func NewService(fx *fxcache.DollarCache, oracle domain.PriceOracle, log zerolog.Logger) *Service {
	return &Service{
		fx:     fx,
		oracle: oracle,
		now:    time.Now,
		log:    log.With().Str("component", "projector").Logger(),
	}
}

// aggregateOnly and descriptiveOnly select the partial upsert modes
var (
	aggregateOnly   = true
	descriptiveOnly = false
)

// OnAggregateChanged recomputes the aggregate columns of the asset that an
// event touched
func (s *Service) OnAggregateChanged(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	assetID, ok := assetIDOf(event)
	if !ok {
		return fmt.Errorf("projector: unexpected event %T", event)
	}
	return s.Upsert(ctx, uow, assetID, &aggregateOnly)
}

// HandleRebuild handles the RebuildAssetReadModel command with a full upsert,
// recovering the row from any divergence
func (s *Service) HandleRebuild(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.RebuildAssetReadModel)
	if !ok {
		return fmt.Errorf("projector: unexpected command %T", cmd)
	}
	return s.Upsert(ctx, uow, c.AssetID, nil)
}

// Upsert recomputes the read row for the asset and writes it in one upsert
// keyed by the write-model primary key.
// Modes:
//   - isAggregateUpsert true: only the aggregate columns are recomputed
//   - false: only the descriptive columns
//   - nil: full upsert
//
// Idempotent: running it twice with the same write model yields the same row.
func (s *Service) Upsert(ctx context.Context, uow domain.UnitOfWork, assetID uuid.UUID, isAggregateUpsert *bool) error {
	asset, err := uow.Assets().Get(ctx, assetID)
	if err != nil {
		return err
	}

	row, err := uow.ReadModels().Get(ctx, assetID)
	if errors.Is(err, domain.ErrNotFound) {
		row = &domain.AssetReadModel{WriteModelPK: assetID, UserID: asset.UserID}
		// A fresh row needs both halves regardless of the requested mode
		isAggregateUpsert = nil
	} else if err != nil {
		return err
	}

	if isAggregateUpsert == nil || !*isAggregateUpsert {
		if err := s.fillDescriptive(ctx, uow, asset, row); err != nil {
			return err
		}
	}
	if isAggregateUpsert == nil || *isAggregateUpsert {
		if err := s.fillAggregates(ctx, uow, asset, row); err != nil {
			return err
		}
	}

	return uow.ReadModels().Upsert(ctx, row)
}

// fillDescriptive writes the identity columns and the metadata link
func (s *Service) fillDescriptive(ctx context.Context, uow domain.UnitOfWork, asset *domain.Asset, row *domain.AssetReadModel) error {
	row.Code = asset.Code
	row.Type = asset.Type
	row.Currency = asset.Currency
	row.Objective = asset.Objective

	metadata, err := uow.AssetMetaData().FilterForAsset(ctx, asset)
	switch {
	case err == nil:
		row.MetadataID = &metadata.ID
	case errors.Is(err, domain.ErrNotFound):
		row.MetadataID = nil
	default:
		return err
	}
	return nil
}

// fillAggregates recomputes the running aggregates over the window since the
// latest closed operation and accumulates the closed ROI across settlements
func (s *Service) fillAggregates(ctx context.Context, uow domain.UnitOfWork, asset *domain.Asset, row *domain.AssetReadModel) error {
	closed, err := uow.ClosedOperations().ListByAsset(ctx, asset.ID)
	if err != nil {
		return err
	}

	var since *time.Time
	closedROI := decimal.Zero
	for _, op := range closed {
		window := costbasis.Aggregates{
			NormalizedTotalSold:       op.NormalizedTotalSold,
			NormalizedCreditedIncomes: op.NormalizedCreditedIncomes,
		}
		closedROI = closedROI.Add(costbasis.ClosedROI(window))
		if since == nil || op.OperationDatetime.After(*since) {
			t := op.OperationDatetime
			since = &t
		}
	}

	agg := costbasis.Compute(asset.Transactions, asset.PassiveIncomes, since)
	row.QuantityBalance = agg.QuantityBalance
	row.AvgPrice = agg.AvgPrice
	row.NormalizedAvgPrice = agg.NormalizedAvgPrice
	row.NormalizedTotalBought = agg.NormalizedTotalBought
	row.NormalizedTotalSold = agg.NormalizedTotalSold
	row.CreditedIncomes = agg.CreditedIncomes
	row.NormalizedCreditedIncomes = agg.NormalizedCreditedIncomes
	row.NormalizedClosedROI = closedROI
	return nil
}

// HandleUpdatePrices handles the UpdateAssetPrices command: it batches the
// metadata rows of held assets, fetches current prices with a bounded
// deadline, and bulk-writes the refreshed rows. A code missing from the
// oracle response is skipped and retried on the next cycle.
func (s *Service) HandleUpdatePrices(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	if _, ok := cmd.(domain.UpdateAssetPrices); !ok {
		return fmt.Errorf("projector: unexpected command %T", cmd)
	}

	rows, err := uow.AssetMetaData().FilterAssetsEligibleForUpdate(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	batch := make([]domain.AssetIdentity, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, domain.AssetIdentity{Code: row.Code, Type: row.Type, Currency: row.Currency})
	}

	fetchCtx, cancel := context.WithTimeout(ctx, priceFetchTimeout)
	defer cancel()
	prices, err := s.oracle.GetPrices(fetchCtx, batch)
	if err != nil {
		return fmt.Errorf("price fetch failed: %w", domain.ErrExternalUnavailable)
	}

	updatedAt := s.now()
	updated := make([]*domain.AssetMetaData, 0, len(rows))
	for _, row := range rows {
		price, ok := prices[row.Code]
		if !ok {
			s.log.Warn().Str("code", row.Code).Msg("price missing from oracle response")
			continue
		}
		row.CurrentPrice = price
		t := updatedAt
		row.CurrentPriceUpdatedAt = &t
		updated = append(updated, row)
	}
	if len(updated) == 0 {
		return nil
	}
	if err := uow.AssetMetaData().BulkUpdate(ctx, updated); err != nil {
		return err
	}

	if err := s.fx.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("dollar rate refresh failed")
	}

	s.log.Info().Int("assets", len(updated)).Msg("asset prices refreshed")
	return nil
}

// assetIDOf extracts the asset key from the aggregate events the projector
// subscribes to
func assetIDOf(event domain.Event) (uuid.UUID, bool) {
	switch e := event.(type) {
	case domain.TransactionsCreated:
		return e.AssetID, true
	case domain.TransactionUpdated:
		return e.AssetID, true
	case domain.TransactionDeleted:
		return e.AssetID, true
	case domain.PassiveIncomeCreated:
		return e.AssetID, true
	case domain.PassiveIncomeUpdated:
		return e.AssetID, true
	case domain.PassiveIncomeDeleted:
		return e.AssetID, true
	case domain.AssetQuantityZeroed:
		return e.AssetID, true
	}
	return uuid.Nil, false
}
