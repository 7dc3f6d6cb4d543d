package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository over the unit of
// work's transaction. Both tables are append-only; the monthly job inserts
// one row per user per month.
type snapshotRepository struct {
	uow *unitOfWork
}

// AddBankSnapshot appends a monthly bank-account snapshot
func (r *snapshotRepository) AddBankSnapshot(ctx context.Context, snapshot *domain.BankAccountSnapshot) error {
	query := `
		INSERT INTO bank_account_snapshots (id, user_id, operation_date, total)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		snapshot.ID, snapshot.UserID, snapshot.OperationDate, snapshot.Total.String())
	if err != nil {
		return fmt.Errorf("failed to insert bank snapshot: %w", err)
	}
	return nil
}

// AddInvestedSnapshot appends a monthly total-invested snapshot
func (r *snapshotRepository) AddInvestedSnapshot(ctx context.Context, snapshot *domain.AssetsTotalInvestedSnapshot) error {
	query := `
		INSERT INTO assets_total_invested_snapshots (id, user_id, operation_date, total)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.uow.tx.ExecContext(ctx, query,
		snapshot.ID, snapshot.UserID, snapshot.OperationDate, snapshot.Total.String())
	if err != nil {
		return fmt.Errorf("failed to insert invested snapshot: %w", err)
	}
	return nil
}

// LatestBankBefore retrieves the most recent bank snapshot at or before target
func (r *snapshotRepository) LatestBankBefore(ctx context.Context, target time.Time) (*domain.BankAccountSnapshot, error) {
	query := `
		SELECT id, user_id, operation_date, total
		FROM bank_account_snapshots
		WHERE user_id = $1 AND operation_date <= $2
		ORDER BY operation_date DESC
		LIMIT 1
	`
	var snapshot domain.BankAccountSnapshot
	var totalStr string
	err := r.uow.tx.QueryRowContext(ctx, query, r.uow.userID, target).Scan(
		&snapshot.ID, &snapshot.UserID, &snapshot.OperationDate, &totalStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest bank snapshot: %w", err)
	}
	if snapshot.Total, err = parseDecimal(totalStr, "total"); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LatestInvestedBefore retrieves the most recent invested snapshot at or
// before target
func (r *snapshotRepository) LatestInvestedBefore(ctx context.Context, target time.Time) (*domain.AssetsTotalInvestedSnapshot, error) {
	query := `
		SELECT id, user_id, operation_date, total
		FROM assets_total_invested_snapshots
		WHERE user_id = $1 AND operation_date <= $2
		ORDER BY operation_date DESC
		LIMIT 1
	`
	var snapshot domain.AssetsTotalInvestedSnapshot
	var totalStr string
	err := r.uow.tx.QueryRowContext(ctx, query, r.uow.userID, target).Scan(
		&snapshot.ID, &snapshot.UserID, &snapshot.OperationDate, &totalStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest invested snapshot: %w", err)
	}
	if snapshot.Total, err = parseDecimal(totalStr, "total"); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
