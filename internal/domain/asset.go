package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetType represents the kind of investment asset
type AssetType string

const (
	AssetTypeStock    AssetType = "STOCK"
	AssetTypeStockUSA AssetType = "STOCK_USA"
	AssetTypeFII      AssetType = "FII"
	AssetTypeCrypto   AssetType = "CRYPTO"
	AssetTypeFixedBR  AssetType = "FIXED_BR"
)

// IsValid reports whether the asset type is one of the known values
func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeStock, AssetTypeStockUSA, AssetTypeFII, AssetTypeCrypto, AssetTypeFixedBR:
		return true
	}
	return false
}

// Currency represents the currency an asset is traded in
type Currency string

const (
	CurrencyBRL Currency = "BRL"
	CurrencyUSD Currency = "USD"
)

// CurrencyValidForType reports whether the currency is allowed for the asset type.
// Brazilian instruments trade in BRL, US stocks in USD; crypto trades in either.
func CurrencyValidForType(currency Currency, assetType AssetType) bool {
	switch assetType {
	case AssetTypeStock, AssetTypeFII, AssetTypeFixedBR:
		return currency == CurrencyBRL
	case AssetTypeStockUSA:
		return currency == CurrencyUSD
	case AssetTypeCrypto:
		return currency == CurrencyBRL || currency == CurrencyUSD
	}
	return false
}

// LiquidityType represents how a fixed-income asset can be redeemed
type LiquidityType string

const (
	LiquidityTypeDaily      LiquidityType = "DAILY"
	LiquidityTypeAtMaturity LiquidityType = "AT_MATURITY"
)

// AssetIdentity identifies a publicly traded instrument. Metadata rows for
// public assets are shared across users under this key.
type AssetIdentity struct {
	Code     string
	Type     AssetType
	Currency Currency
}

// Asset represents an investment position owned by a user.
// It is an aggregate root: Transactions and PassiveIncomes are hydrated
// before mutations so invariants can be checked against the full history.
type Asset struct {
	aggregateRoot

	ID                  uuid.UUID
	UserID              uuid.UUID
	Code                string
	Type                AssetType
	Currency            Currency
	Objective           string
	Description         string
	LiquidityType       *LiquidityType
	MaturityDate        *time.Time
	IsHeldInSelfCustody bool

	Transactions   []*Transaction
	PassiveIncomes []*PassiveIncome
}

// Identity returns the (code, type, currency) key of the asset
func (a *Asset) Identity() AssetIdentity {
	return AssetIdentity{Code: a.Code, Type: a.Type, Currency: a.Currency}
}

// Validate ensures the asset adheres to domain rules.
// today is injected so the maturity-date check is deterministic under test.
func (a *Asset) Validate(today time.Time) error {
	if a.Code == "" {
		return NewValidationError("code", "code cannot be empty")
	}
	if !a.Type.IsValid() {
		return NewValidationError("type", "unknown asset type")
	}
	if !CurrencyValidForType(a.Currency, a.Type) {
		return NewValidationError("currency", "currency not valid for asset type")
	}
	if a.Type == AssetTypeFixedBR {
		if a.LiquidityType == nil {
			return NewValidationError("liquidity_type", "fixed income assets require a liquidity type")
		}
		if *a.LiquidityType == LiquidityTypeAtMaturity {
			if a.MaturityDate == nil {
				return NewValidationError("maturity_date", "AT_MATURITY assets require a maturity date")
			}
			if !a.MaturityDate.After(today) {
				return NewValidationError("maturity_date", "maturity date must be in the future")
			}
		}
	}
	return nil
}

// QuantityBalance returns the cumulative quantity across all transactions
func (a *Asset) QuantityBalance() decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range a.Transactions {
		if tx.Action == TransactionActionBuy {
			balance = balance.Add(tx.Quantity)
		} else {
			balance = balance.Sub(tx.Quantity)
		}
	}
	return balance
}

// AvgBuyPrice returns the weighted-average buy price in the asset currency.
// Returns zero when the asset has no buys.
func (a *Asset) AvgBuyPrice() decimal.Decimal {
	total := decimal.Zero
	quantity := decimal.Zero
	for _, tx := range a.Transactions {
		if tx.Action == TransactionActionBuy {
			total = total.Add(tx.Price.Mul(tx.Quantity))
			quantity = quantity.Add(tx.Quantity)
		}
	}
	if quantity.IsZero() {
		return decimal.Zero
	}
	return total.Div(quantity)
}

// ValidateNewTransaction checks the single-currency invariant and the sell
// guard before a transaction is added to the aggregate.
func (a *Asset) ValidateNewTransaction(tx *Transaction, today time.Time) error {
	if tx.Currency != a.Currency {
		return ErrMultipleCurrencies
	}
	if err := tx.Validate(today); err != nil {
		return err
	}
	if tx.Action == TransactionActionSell {
		if tx.Quantity.GreaterThan(a.QuantityBalance()) {
			return ErrNegativeQuantity
		}
	}
	return nil
}

// ValidateUpdatedTransaction checks that swapping previous for updated does
// not drive the cumulative quantity negative at any point.
func (a *Asset) ValidateUpdatedTransaction(updated, previous *Transaction, today time.Time) error {
	if updated.Currency != a.Currency {
		return ErrMultipleCurrencies
	}
	if err := updated.Validate(today); err != nil {
		return err
	}

	balance := decimal.Zero
	for _, tx := range a.Transactions {
		effective := tx
		if tx.ID == previous.ID {
			effective = updated
		}
		if effective.Action == TransactionActionBuy {
			balance = balance.Add(effective.Quantity)
		} else {
			balance = balance.Sub(effective.Quantity)
		}
	}
	if balance.IsNegative() {
		return ErrNegativeQuantity
	}
	return nil
}

// ValidateDeletedTransaction checks that removing the transaction does not
// drive the cumulative quantity negative.
func (a *Asset) ValidateDeletedTransaction(deleted *Transaction) error {
	balance := decimal.Zero
	for _, tx := range a.Transactions {
		if tx.ID == deleted.ID {
			continue
		}
		if tx.Action == TransactionActionBuy {
			balance = balance.Add(tx.Quantity)
		} else {
			balance = balance.Sub(tx.Quantity)
		}
	}
	if balance.IsNegative() {
		return ErrNegativeQuantity
	}
	return nil
}

// ValidateNewPassiveIncome checks that the income type fits the asset type
func (a *Asset) ValidateNewPassiveIncome(income *PassiveIncome) error {
	if err := income.Validate(); err != nil {
		return err
	}
	if !income.Type.ValidForAssetType(a.Type) {
		return NewValidationError("type", "income type not valid for asset type")
	}
	return nil
}
