package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetClosedOperation is the settlement record emitted when an asset's
// cumulative quantity returns to zero. Append-only.
type AssetClosedOperation struct {
	ID                        uuid.UUID
	AssetID                   uuid.UUID
	OperationDatetime         time.Time
	NormalizedTotalBought     decimal.Decimal
	TotalBought               decimal.Decimal
	QuantityBought            decimal.Decimal
	NormalizedTotalSold       decimal.Decimal
	NormalizedCreditedIncomes decimal.Decimal
	CreditedIncomes           decimal.Decimal
}

// AssetReadModel is the denormalized per-asset read row, fully re-derivable
// from the write model. Keyed 1:1 by the write-model primary key.
type AssetReadModel struct {
	WriteModelPK uuid.UUID
	UserID       uuid.UUID
	Code         string
	Type         AssetType
	Currency     Currency
	Objective    string

	QuantityBalance           decimal.Decimal
	AvgPrice                  decimal.Decimal
	NormalizedAvgPrice        decimal.Decimal
	NormalizedTotalBought     decimal.Decimal
	NormalizedTotalSold       decimal.Decimal
	NormalizedClosedROI       decimal.Decimal
	CreditedIncomes           decimal.Decimal
	NormalizedCreditedIncomes decimal.Decimal

	MetadataID *uuid.UUID
}

// AssetMetaData holds pricing metadata. One shared row per (code, type,
// currency) for public assets; one per asset for self-custody holdings.
type AssetMetaData struct {
	ID                    uuid.UUID
	Code                  string
	Type                  AssetType
	Currency              Currency
	Sector                string
	CurrentPrice          decimal.Decimal
	CurrentPriceUpdatedAt *time.Time

	// AssetID is set only for self-custody holdings, which never share
	// metadata with other users
	AssetID *uuid.UUID
}

// ConversionRate is the single live row per currency pair, updated by the
// price oracle refresh task.
type ConversionRate struct {
	FromCurrency Currency
	ToCurrency   Currency
	Value        decimal.Decimal
}
