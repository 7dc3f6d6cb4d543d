package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testToday = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func uuidPtr() *uuid.UUID {
	id := uuid.New()
	return &id
}

func validExpense() Expense {
	return Expense{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Value:       decimal.NewFromInt(100),
		Description: "Groceries",
		Category:    "Food",
		Source:      ExpenseSourceDebitCard,
		Date:        testToday,
	}
}

func TestExpense_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "Valid expense should pass",
			mutate: func(e *Expense) {},
		},
		{
			name:    "Zero value should fail",
			mutate:  func(e *Expense) { e.Value = decimal.Zero },
			wantErr: true,
			errMsg:  "value must be positive",
		},
		{
			name:    "Empty description should fail",
			mutate:  func(e *Expense) { e.Description = "" },
			wantErr: true,
			errMsg:  "description cannot be empty",
		},
		{
			name:    "Empty category should fail",
			mutate:  func(e *Expense) { e.Category = "" },
			wantErr: true,
			errMsg:  "category cannot be empty",
		},
		{
			name:    "Unknown source should fail",
			mutate:  func(e *Expense) { e.Source = "PIGGY_BANK" },
			wantErr: true,
			errMsg:  "unknown expense source",
		},
		{
			name: "Partial installment fields should fail",
			mutate: func(e *Expense) {
				e.InstallmentsID = uuidPtr()
			},
			wantErr: true,
			errMsg:  "installment fields must be set together",
		},
		{
			name: "Installment quantity below 2 should fail",
			mutate: func(e *Expense) {
				e.Source = ExpenseSourceCreditCard
				e.InstallmentsID = uuidPtr()
				e.InstallmentNumber = intPtr(1)
				e.InstallmentsQty = intPtr(1)
			},
			wantErr: true,
			errMsg:  "installments quantity must be at least 2",
		},
		{
			name: "Installment number out of range should fail",
			mutate: func(e *Expense) {
				e.Source = ExpenseSourceCreditCard
				e.InstallmentsID = uuidPtr()
				e.InstallmentNumber = intPtr(5)
				e.InstallmentsQty = intPtr(3)
			},
			wantErr: true,
			errMsg:  "installment number out of range",
		},
		{
			name: "Fixed expense with installments should fail",
			mutate: func(e *Expense) {
				e.IsFixed = true
				e.Source = ExpenseSourceCreditCard
				e.InstallmentsID = uuidPtr()
				e.InstallmentNumber = intPtr(1)
				e.InstallmentsQty = intPtr(3)
			},
			wantErr: true,
			errMsg:  "fixed expenses cannot have installments",
		},
		{
			name: "Installments without credit card source should fail",
			mutate: func(e *Expense) {
				e.Source = ExpenseSourceDebitCard
				e.InstallmentsID = uuidPtr()
				e.InstallmentNumber = intPtr(1)
				e.InstallmentsQty = intPtr(3)
			},
			wantErr: true,
			errMsg:  "installments require a credit card source",
		},
		{
			name: "Future debit card expense should fail",
			mutate: func(e *Expense) {
				e.Date = testToday.AddDate(0, 1, 0)
			},
			wantErr: true,
			errMsg:  "future expenses require a credit card source",
		},
		{
			name: "Future credit card expense should pass",
			mutate: func(e *Expense) {
				e.Source = ExpenseSourceCreditCard
				e.Date = testToday.AddDate(0, 1, 0)
			},
		},
		{
			name: "Future fixed expense should pass",
			mutate: func(e *Expense) {
				e.IsFixed = true
				e.Date = testToday.AddDate(0, 1, 0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense := validExpense()
			tt.mutate(&expense)

			err := expense.Validate(testToday)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpense_ValidateUpdate(t *testing.T) {
	t.Run("Second installment changing its date should fail", func(t *testing.T) {
		previous := validExpense()
		previous.Source = ExpenseSourceCreditCard
		previous.InstallmentsID = uuidPtr()
		previous.InstallmentNumber = intPtr(2)
		previous.InstallmentsQty = intPtr(3)

		updated := previous
		updated.Date = previous.Date.AddDate(0, 0, 3)

		err := updated.ValidateUpdate(&previous, testToday)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "only the first installment can change its date")
	})

	t.Run("First installment changing its date should pass", func(t *testing.T) {
		previous := validExpense()
		previous.Source = ExpenseSourceCreditCard
		previous.InstallmentsID = uuidPtr()
		previous.InstallmentNumber = intPtr(1)
		previous.InstallmentsQty = intPtr(3)

		updated := previous
		updated.Date = previous.Date.AddDate(0, 0, 3)

		assert.NoError(t, updated.ValidateUpdate(&previous, testToday))
	})

	t.Run("Past fixed expense moving to another month should fail", func(t *testing.T) {
		previous := validExpense()
		previous.IsFixed = true
		previous.Date = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

		updated := previous
		updated.Date = time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

		err := updated.ValidateUpdate(&previous, testToday)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "past fixed expenses must stay within their month")
	})

	t.Run("Past fixed expense moving within its month should pass", func(t *testing.T) {
		previous := validExpense()
		previous.IsFixed = true
		previous.Date = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

		updated := previous
		updated.Date = time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)

		assert.NoError(t, updated.ValidateUpdate(&previous, testToday))
	})
}
