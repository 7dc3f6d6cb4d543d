package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountSnapshot records a user's total cash at the first day of a month.
// One row per user per month, append-only.
type BankAccountSnapshot struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	OperationDate time.Time
	Total         decimal.Decimal
}

// AssetsTotalInvestedSnapshot records the normalized market value of a user's
// open positions at the first day of a month. One row per user per month.
type AssetsTotalInvestedSnapshot struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	OperationDate time.Time
	Total         decimal.Decimal
}
