package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount represents a user's cash account. Amount may go negative.
// The balance is mutated only by event handlers via atomic increments.
type BankAccount struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Amount            decimal.Decimal
	IsDefault         bool
	IsActive          bool
	CreditCardBillDay *int // 1..31, nil when the account has no credit card
}

// Validate ensures the bank account adheres to domain rules
func (b *BankAccount) Validate() error {
	if b.UserID == uuid.Nil {
		return NewValidationError("user_id", "user is required")
	}
	if b.CreditCardBillDay != nil {
		if *b.CreditCardBillDay < 1 || *b.CreditCardBillDay > 31 {
			return NewValidationError("credit_card_bill_day", "bill day must be between 1 and 31")
		}
	}
	return nil
}
