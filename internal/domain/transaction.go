package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionAction represents the direction of a transaction
type TransactionAction string

const (
	TransactionActionBuy  TransactionAction = "BUY"
	TransactionActionSell TransactionAction = "SELL"
)

// IsValid reports whether the action is one of the known values
func (a TransactionAction) IsValid() bool {
	return a == TransactionActionBuy || a == TransactionActionSell
}

// Transaction represents a buy or sell of an asset.
// For self-custody fixed income the quantity is implicitly 1 and the price
// represents the invested principal.
type Transaction struct {
	ID       uuid.UUID
	AssetID  uuid.UUID
	Action   TransactionAction
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Currency Currency

	// InitialPrice is the cost basis of a sell. When absent on the DTO it is
	// set to the weighted-average buy price at the moment of creation.
	InitialPrice *decimal.Decimal

	OperationDate time.Time

	// CurrencyConversionRate is the asset-currency to BRL rate at operation
	// time. Always 1 for BRL assets.
	CurrencyConversionRate decimal.Decimal

	// ExternalID links transactions imported from an external feed
	ExternalID *string
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate(today time.Time) error {
	if !t.Action.IsValid() {
		return NewValidationError("action", "action must be BUY or SELL")
	}
	if t.Price.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("price", "price must be positive")
	}
	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("quantity", "quantity must be positive")
	}
	if DateOnly(t.OperationDate).After(DateOnly(today)) {
		return NewValidationError("operation_date", "operation date cannot be in the future")
	}
	one := decimal.NewFromInt(1)
	if t.CurrencyConversionRate.LessThan(one) {
		return NewValidationError("current_currency_conversion_rate", "conversion rate must be at least 1")
	}
	if t.Currency != CurrencyBRL && t.CurrencyConversionRate.Equal(one) {
		return NewValidationError("current_currency_conversion_rate",
			"non-BRL transactions require a conversion rate")
	}
	if t.Currency == CurrencyBRL && !t.CurrencyConversionRate.Equal(one) {
		return NewValidationError("current_currency_conversion_rate",
			"BRL transactions must use a conversion rate of 1")
	}
	return nil
}
