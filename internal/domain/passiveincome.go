package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PassiveIncomeType represents the kind of passive income
type PassiveIncomeType string

const (
	PassiveIncomeTypeDividend PassiveIncomeType = "DIVIDEND"
	PassiveIncomeTypeJCP      PassiveIncomeType = "JCP"
	PassiveIncomeTypeIncome   PassiveIncomeType = "INCOME"
)

// ValidForAssetType reports whether this income type can be paid by the
// given asset type. FIIs and fixed income pay INCOME, Brazilian stocks pay
// dividends and JCP, US stocks pay dividends only.
func (t PassiveIncomeType) ValidForAssetType(assetType AssetType) bool {
	switch assetType {
	case AssetTypeStock:
		return t == PassiveIncomeTypeDividend || t == PassiveIncomeTypeJCP
	case AssetTypeStockUSA:
		return t == PassiveIncomeTypeDividend
	case AssetTypeFII, AssetTypeFixedBR:
		return t == PassiveIncomeTypeIncome
	}
	return false
}

// PassiveIncomeEventType distinguishes announced from settled incomes.
// Only credited incomes contribute to ROI.
type PassiveIncomeEventType string

const (
	PassiveIncomeEventTypeProvisioned PassiveIncomeEventType = "PROVISIONED"
	PassiveIncomeEventTypeCredited    PassiveIncomeEventType = "CREDITED"
)

// PassiveIncome represents a dividend, JCP or income payment on an asset
type PassiveIncome struct {
	ID                     uuid.UUID
	AssetID                uuid.UUID
	Type                   PassiveIncomeType
	EventType              PassiveIncomeEventType
	Amount                 decimal.Decimal
	OperationDate          time.Time
	CurrencyConversionRate decimal.Decimal
}

// Validate ensures the passive income adheres to domain rules
func (p *PassiveIncome) Validate() error {
	switch p.Type {
	case PassiveIncomeTypeDividend, PassiveIncomeTypeJCP, PassiveIncomeTypeIncome:
	default:
		return NewValidationError("type", "unknown passive income type")
	}
	switch p.EventType {
	case PassiveIncomeEventTypeProvisioned, PassiveIncomeEventTypeCredited:
	default:
		return NewValidationError("event_type", "unknown passive income event type")
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("amount", "amount must be positive")
	}
	if p.CurrencyConversionRate.LessThan(decimal.NewFromInt(1)) {
		return NewValidationError("current_currency_conversion_rate", "conversion rate must be at least 1")
	}
	return nil
}

// IsCredited reports whether the income has settled
func (p *PassiveIncome) IsCredited() bool {
	return p.EventType == PassiveIncomeEventTypeCredited
}
