package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const accountColumns = `id, user_id, amount, is_default, is_active, credit_card_bill_day`

// bankAccountRepository implements domain.BankAccountRepository over the unit
// of work's transaction. Increment and Decrement are single arithmetic
// updates so the hottest row's critical section stays minimal.
type bankAccountRepository struct {
	uow *unitOfWork
}

func scanAccount(row interface{ Scan(...interface{}) error }) (*domain.BankAccount, error) {
	var account domain.BankAccount
	var amountStr string
	var billDay sql.NullInt64

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&amountStr,
		&account.IsDefault,
		&account.IsActive,
		&billDay,
	)
	if err != nil {
		return nil, err
	}

	if account.Amount, err = parseDecimal(amountStr, "amount"); err != nil {
		return nil, err
	}
	if billDay.Valid {
		day := int(billDay.Int64)
		account.CreditCardBillDay = &day
	}
	return &account, nil
}

// Get retrieves a bank account by its ID
func (r *bankAccountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE id = $1 AND user_id = $2`

	account, err := scanAccount(r.uow.tx.QueryRowContext(ctx, query, id, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return account, nil
}

// GetDefault retrieves the user's default bank account
func (r *bankAccountRepository) GetDefault(ctx context.Context) (*domain.BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE user_id = $1 AND is_default`

	account, err := scanAccount(r.uow.tx.QueryRowContext(ctx, query, r.uow.userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get default bank account: %w", err)
	}
	return account, nil
}

// List retrieves the user's bank accounts
func (r *bankAccountRepository) List(ctx context.Context) ([]*domain.BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE user_id = $1 ORDER BY id`

	rows, err := r.uow.tx.QueryContext(ctx, query, r.uow.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.BankAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bank accounts: %w", err)
	}
	return accounts, nil
}

// Add creates a new bank account
func (r *bankAccountRepository) Add(ctx context.Context, account *domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		account.ID,
		account.UserID,
		account.Amount.String(),
		account.IsDefault,
		account.IsActive,
		nullableInt(account.CreditCardBillDay),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bank account: %w", err)
	}
	return nil
}

// Update persists a bank account's mutable fields. The amount is excluded:
// balances change only through Increment and Decrement.
func (r *bankAccountRepository) Update(ctx context.Context, account *domain.BankAccount) error {
	query := `
		UPDATE bank_accounts
		SET is_default = $1, is_active = $2, credit_card_bill_day = $3
		WHERE id = $4 AND user_id = $5
	`
	result, err := r.uow.tx.ExecContext(ctx, query,
		account.IsDefault,
		account.IsActive,
		nullableInt(account.CreditCardBillDay),
		account.ID,
		r.uow.userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bank account: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Increment adds amount to the account balance atomically
func (r *bankAccountRepository) Increment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	result, err := r.uow.tx.ExecContext(ctx,
		`UPDATE bank_accounts SET amount = amount + $1 WHERE id = $2 AND user_id = $3`,
		amount.String(), id, r.uow.userID)
	if err != nil {
		return fmt.Errorf("failed to increment bank account: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Decrement subtracts amount from the account balance atomically
func (r *bankAccountRepository) Decrement(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.Increment(ctx, id, amount.Neg())
}
