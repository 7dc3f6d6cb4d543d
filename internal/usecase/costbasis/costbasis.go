package costbasis

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// Aggregates holds the running aggregate columns of an asset position.
// All normalized values are in the accounting currency (BRL), converted with
// the transaction-time FX rate.
type Aggregates struct {
	QuantityBought            decimal.Decimal
	QuantityBalance           decimal.Decimal
	TotalBought               decimal.Decimal // asset currency
	AvgPrice                  decimal.Decimal // asset currency
	NormalizedTotalBought     decimal.Decimal
	NormalizedAvgPrice        decimal.Decimal
	NormalizedTotalSold       decimal.Decimal
	CreditedIncomes           decimal.Decimal
	NormalizedCreditedIncomes decimal.Decimal
}

// Compute derives the aggregates from an asset's transactions and passive
// incomes. When since is non-nil only rows strictly after it are considered;
// closed-operation settlement uses this to total the window since the
// previous close.
//
// Logic:
//  1. quantity_bought = sum of buy quantities; balance subtracts sells
//  2. avg_price = total_bought / quantity_bought (weighted average)
//  3. normalized totals multiply each row by its transaction-time FX rate
//  4. sold total accumulates (sell.price - sell.initial_price) * quantity,
//     i.e. the realized result over the cost basis, not gross proceeds
//  5. only credited incomes count; provisioned ones are ignored
func Compute(txs []*domain.Transaction, incomes []*domain.PassiveIncome, since *time.Time) Aggregates {
	agg := Aggregates{
		QuantityBought:            decimal.Zero,
		QuantityBalance:           decimal.Zero,
		TotalBought:               decimal.Zero,
		AvgPrice:                  decimal.Zero,
		NormalizedTotalBought:     decimal.Zero,
		NormalizedAvgPrice:        decimal.Zero,
		NormalizedTotalSold:       decimal.Zero,
		CreditedIncomes:           decimal.Zero,
		NormalizedCreditedIncomes: decimal.Zero,
	}

	for _, tx := range txs {
		if since != nil && !tx.OperationDate.After(*since) {
			continue
		}

		switch tx.Action {
		case domain.TransactionActionBuy:
			raw := tx.Price.Mul(tx.Quantity)
			agg.QuantityBought = agg.QuantityBought.Add(tx.Quantity)
			agg.QuantityBalance = agg.QuantityBalance.Add(tx.Quantity)
			agg.TotalBought = agg.TotalBought.Add(raw)
			agg.NormalizedTotalBought = agg.NormalizedTotalBought.Add(raw.Mul(tx.CurrencyConversionRate))
		case domain.TransactionActionSell:
			agg.QuantityBalance = agg.QuantityBalance.Sub(tx.Quantity)
			initial := decimal.Zero
			if tx.InitialPrice != nil {
				initial = *tx.InitialPrice
			}
			result := tx.Price.Sub(initial).Mul(tx.Quantity)
			agg.NormalizedTotalSold = agg.NormalizedTotalSold.Add(result.Mul(tx.CurrencyConversionRate))
		}
	}

	for _, income := range incomes {
		if !income.IsCredited() {
			continue
		}
		if since != nil && !income.OperationDate.After(*since) {
			continue
		}
		agg.CreditedIncomes = agg.CreditedIncomes.Add(income.Amount)
		agg.NormalizedCreditedIncomes = agg.NormalizedCreditedIncomes.Add(
			income.Amount.Mul(income.CurrencyConversionRate))
	}

	if agg.QuantityBought.IsPositive() {
		agg.AvgPrice = agg.TotalBought.Div(agg.QuantityBought)
		agg.NormalizedAvgPrice = agg.NormalizedTotalBought.Div(agg.QuantityBought)
	}

	return agg
}

// OpenROI returns the normalized ROI of an opened position:
// market value minus the net invested amount.
func OpenROI(agg Aggregates, currentPrice, fxRate decimal.Decimal) decimal.Decimal {
	marketValue := currentPrice.Mul(fxRate).Mul(agg.QuantityBalance)
	netInvested := agg.NormalizedTotalBought.
		Sub(agg.NormalizedCreditedIncomes).
		Sub(agg.NormalizedTotalSold)
	return marketValue.Sub(netInvested)
}

// ClosedROI returns the realized ROI of a settled operation window
func ClosedROI(agg Aggregates) decimal.Decimal {
	return agg.NormalizedTotalSold.Add(agg.NormalizedCreditedIncomes)
}

// ROIPercentage returns the ROI as a percentage of the normalized total
// bought, guarding against division by zero with a floor of 1.
func ROIPercentage(normalizedROI, normalizedTotalBought decimal.Decimal) decimal.Decimal {
	divisor := normalizedTotalBought
	one := decimal.NewFromInt(1)
	if divisor.LessThan(one) {
		divisor = one
	}
	return normalizedROI.Div(divisor).Mul(decimal.NewFromInt(100))
}
