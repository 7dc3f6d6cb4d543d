package asset

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
)

// Service handles the investment write model: transactions, passive incomes
// and closed-operation settlement
type Service struct {
	now func() time.Time
	log zerolog.Logger
}

// NewService creates a new asset Service instance
func NewService(log zerolog.Logger) *Service {
	return &Service{
		now: time.Now,
		log: log.With().Str("component", "asset").Logger(),
	}
}

// NewServiceWithClock creates a Service with an injected clock for tests
func NewServiceWithClock(log zerolog.Logger, now func() time.Time) *Service {
	service := NewService(log)
	service.now = now
	return service
}

// HandleCreateTransactions handles the CreateTransactions command.
// Logic:
//  1. Resolve the asset by (code, type, currency), creating it and its
//     metadata row on first use
//  2. For each transaction: default the sell cost basis to the running
//     weighted-average buy price, validate against the aggregate, append
//  3. Bulk-insert the batch
//  4. Record TransactionsCreated; when a sell zeroes the cumulative quantity,
//     record AssetQuantityZeroed as well
func (s *Service) HandleCreateTransactions(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.CreateTransactions)
	if !ok {
		return fmt.Errorf("asset service: unexpected command %T", cmd)
	}
	if len(c.Transactions) == 0 {
		return domain.NewValidationError("transactions", "at least one transaction is required")
	}
	today := s.now()

	asset, err := s.resolveAsset(ctx, uow, c)
	if err != nil {
		return err
	}

	var lastSell *domain.Transaction
	for _, tx := range c.Transactions {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		tx.AssetID = asset.ID
		if asset.IsHeldInSelfCustody {
			tx.Quantity = decimal.NewFromInt(1)
		}
		if tx.Action == domain.TransactionActionSell && tx.InitialPrice == nil {
			avg := asset.AvgBuyPrice()
			tx.InitialPrice = &avg
		}
		if err := asset.ValidateNewTransaction(tx, today); err != nil {
			return err
		}
		asset.Transactions = append(asset.Transactions, tx)
		if tx.Action == domain.TransactionActionSell {
			lastSell = tx
		}
	}

	if err := uow.Transactions().AddBatch(ctx, c.Transactions); err != nil {
		return err
	}

	asset.AddEvent(domain.TransactionsCreated{AssetID: asset.ID})
	if lastSell != nil && asset.QuantityBalance().IsZero() {
		asset.AddEvent(domain.AssetQuantityZeroed{
			AssetID:           asset.ID,
			OperationDatetime: lastSell.OperationDate,
		})
	}
	return nil
}

// HandleUpdateTransaction handles the UpdateTransaction command.
// Price, quantity, date and conversion rate are mutable; action, currency and
// the asset link are not.
func (s *Service) HandleUpdateTransaction(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.UpdateTransaction)
	if !ok {
		return fmt.Errorf("asset service: unexpected command %T", cmd)
	}
	today := s.now()

	asset, err := uow.Assets().Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	previous, err := uow.Transactions().Get(ctx, c.TransactionID)
	if err != nil {
		return err
	}
	if previous.AssetID != asset.ID {
		return domain.ErrNotFound
	}

	updated := *previous
	updated.Price = c.Data.Price
	updated.Quantity = c.Data.Quantity
	updated.OperationDate = c.Data.OperationDate
	updated.CurrencyConversionRate = c.Data.CurrencyConversionRate
	if c.Data.InitialPrice != nil {
		updated.InitialPrice = c.Data.InitialPrice
	}
	if asset.IsHeldInSelfCustody {
		updated.Quantity = decimal.NewFromInt(1)
	}

	if err := asset.ValidateUpdatedTransaction(&updated, previous, today); err != nil {
		return err
	}
	if err := uow.Transactions().Update(ctx, &updated); err != nil {
		return err
	}
	swapTransaction(asset, &updated)

	asset.AddEvent(domain.TransactionUpdated{AssetID: asset.ID})
	s.maybeRecordZeroed(asset)
	return nil
}

// HandleDeleteTransaction handles the DeleteTransaction command
func (s *Service) HandleDeleteTransaction(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.DeleteTransaction)
	if !ok {
		return fmt.Errorf("asset service: unexpected command %T", cmd)
	}

	asset, err := uow.Assets().Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	tx, err := uow.Transactions().Get(ctx, c.TransactionID)
	if err != nil {
		return err
	}
	if tx.AssetID != asset.ID {
		return domain.ErrNotFound
	}

	if err := asset.ValidateDeletedTransaction(tx); err != nil {
		return err
	}
	if err := uow.Transactions().Delete(ctx, tx); err != nil {
		return err
	}
	removeTransaction(asset, tx.ID)

	asset.AddEvent(domain.TransactionDeleted{AssetID: asset.ID})
	s.maybeRecordZeroed(asset)
	return nil
}

// HandleCreatePassiveIncome handles the CreatePassiveIncome command
func (s *Service) HandleCreatePassiveIncome(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.CreatePassiveIncome)
	if !ok {
		return fmt.Errorf("asset service: unexpected command %T", cmd)
	}

	asset, err := uow.Assets().Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	income := c.Income
	if income.ID == uuid.Nil {
		income.ID = uuid.New()
	}
	income.AssetID = asset.ID

	if err := asset.ValidateNewPassiveIncome(income); err != nil {
		return err
	}
	if err := uow.PassiveIncomes().Add(ctx, income); err != nil {
		return err
	}

	asset.AddEvent(domain.PassiveIncomeCreated{AssetID: asset.ID})
	return nil
}

// HandleUpdatePassiveIncome handles the UpdatePassiveIncome command
func (s *Service) HandleUpdatePassiveIncome(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.UpdatePassiveIncome)
	if !ok {
		return fmt.Errorf("asset service: unexpected command %T", cmd)
	}

	asset, err := uow.Assets().Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	previous, err := uow.PassiveIncomes().Get(ctx, c.IncomeID)
	if err != nil {
		return err
	}
	if previous.AssetID != asset.ID {
		return domain.ErrNotFound
	}

	updated := *previous
	updated.Type = c.Data.Type
	updated.EventType = c.Data.EventType
	updated.Amount = c.Data.Amount
	updated.OperationDate = c.Data.OperationDate
	updated.CurrencyConversionRate = c.Data.CurrencyConversionRate

	if err := asset.ValidateNewPassiveIncome(&updated); err != nil {
		return err
	}
	if err := uow.PassiveIncomes().Update(ctx, &updated); err != nil {
		return err
	}

	asset.AddEvent(domain.PassiveIncomeUpdated{AssetID: asset.ID})
	return nil
}

// HandleDeletePassiveIncome handles the DeletePassiveIncome command
func (s *Service) HandleDeletePassiveIncome(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.DeletePassiveIncome)
	if !ok {
		return fmt.Errorf("asset service: unexpected command %T", cmd)
	}

	asset, err := uow.Assets().Get(ctx, c.AssetID)
	if err != nil {
		return err
	}
	income, err := uow.PassiveIncomes().Get(ctx, c.IncomeID)
	if err != nil {
		return err
	}
	if income.AssetID != asset.ID {
		return domain.ErrNotFound
	}

	if err := uow.PassiveIncomes().Delete(ctx, income); err != nil {
		return err
	}

	asset.AddEvent(domain.PassiveIncomeDeleted{AssetID: asset.ID})
	return nil
}

// OnQuantityZeroed settles a closed operation: it totals the window since the
// previous close and records it as an append-only settlement row. The read
// model reset happens in the projector, which runs after this handler on the
// same event.
func (s *Service) OnQuantityZeroed(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error {
	e, ok := event.(domain.AssetQuantityZeroed)
	if !ok {
		return fmt.Errorf("asset service: unexpected event %T", event)
	}

	asset, err := uow.Assets().Get(ctx, e.AssetID)
	if err != nil {
		return err
	}
	if !asset.QuantityBalance().IsZero() {
		return domain.ErrAssetStillOpened
	}

	var since *time.Time
	latest, err := uow.ClosedOperations().GetLatest(ctx, asset.ID)
	switch {
	case err == nil:
		if !latest.OperationDatetime.Before(e.OperationDatetime) {
			// Already settled, the event is a replay
			return nil
		}
		since = &latest.OperationDatetime
	case errors.Is(err, domain.ErrNotFound):
	default:
		return err
	}

	agg := costbasis.Compute(asset.Transactions, asset.PassiveIncomes, since)
	op := &domain.AssetClosedOperation{
		ID:                        uuid.New(),
		AssetID:                   asset.ID,
		OperationDatetime:         e.OperationDatetime,
		NormalizedTotalBought:     agg.NormalizedTotalBought,
		TotalBought:               agg.TotalBought,
		QuantityBought:            agg.QuantityBought,
		NormalizedTotalSold:       agg.NormalizedTotalSold,
		NormalizedCreditedIncomes: agg.NormalizedCreditedIncomes,
		CreditedIncomes:           agg.CreditedIncomes,
	}
	if err := uow.ClosedOperations().Add(ctx, op); err != nil {
		return err
	}
	s.log.Info().
		Str("asset_id", asset.ID.String()).
		Time("operation_datetime", e.OperationDatetime).
		Msg("closed operation settled")
	return nil
}

// resolveAsset fetches the user's asset by identity, creating it and ensuring
// its metadata row on first use
func (s *Service) resolveAsset(ctx context.Context, uow domain.UnitOfWork, c domain.CreateTransactions) (*domain.Asset, error) {
	asset, err := uow.Assets().GetByIdentity(ctx, c.Asset.Identity())
	if err == nil {
		return asset, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	asset = c.Asset
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	asset.UserID = c.UserID
	if err := asset.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := uow.Assets().Add(ctx, asset); err != nil {
		return nil, err
	}
	if err := s.ensureMetadata(ctx, uow, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// ensureMetadata creates the pricing metadata row for a new asset.
// Public assets share one row per identity across users; self-custody
// holdings get a private row linked to the asset.
func (s *Service) ensureMetadata(ctx context.Context, uow domain.UnitOfWork, asset *domain.Asset) error {
	if asset.IsHeldInSelfCustody {
		return uow.AssetMetaData().Create(ctx, &domain.AssetMetaData{
			ID:       uuid.New(),
			Code:     asset.Code,
			Type:     asset.Type,
			Currency: asset.Currency,
			AssetID:  &asset.ID,
		})
	}

	exists, err := uow.AssetMetaData().Exists(ctx, asset.Identity())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return uow.AssetMetaData().Create(ctx, &domain.AssetMetaData{
		ID:       uuid.New(),
		Code:     asset.Code,
		Type:     asset.Type,
		Currency: asset.Currency,
	})
}

// maybeRecordZeroed records AssetQuantityZeroed after a mutation left the
// position fully closed
func (s *Service) maybeRecordZeroed(asset *domain.Asset) {
	if len(asset.Transactions) == 0 || !asset.QuantityBalance().IsZero() {
		return
	}
	hasSell := false
	latest := time.Time{}
	for _, tx := range asset.Transactions {
		if tx.Action == domain.TransactionActionSell {
			hasSell = true
		}
		if tx.OperationDate.After(latest) {
			latest = tx.OperationDate
		}
	}
	if !hasSell {
		return
	}
	asset.AddEvent(domain.AssetQuantityZeroed{
		AssetID:           asset.ID,
		OperationDatetime: latest,
	})
}

func swapTransaction(asset *domain.Asset, updated *domain.Transaction) {
	for i, tx := range asset.Transactions {
		if tx.ID == updated.ID {
			asset.Transactions[i] = updated
			return
		}
	}
}

func removeTransaction(asset *domain.Asset, id uuid.UUID) {
	for i, tx := range asset.Transactions {
		if tx.ID == id {
			asset.Transactions = append(asset.Transactions[:i], asset.Transactions[i+1:]...)
			return
		}
	}
}
