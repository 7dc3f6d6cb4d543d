package memory

import (
	"context"
	"time"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository over the store
type snapshotRepository struct {
	uow *unitOfWork
}

// AddBankSnapshot appends a monthly bank-account snapshot
func (r *snapshotRepository) AddBankSnapshot(ctx context.Context, snapshot *domain.BankAccountSnapshot) error {
	c := *snapshot
	r.uow.store.bankSnapshots = append(r.uow.store.bankSnapshots, &c)
	r.uow.addUndo(func() {
		r.uow.store.bankSnapshots = r.uow.store.bankSnapshots[:len(r.uow.store.bankSnapshots)-1]
	})
	return nil
}

// AddInvestedSnapshot appends a monthly total-invested snapshot
func (r *snapshotRepository) AddInvestedSnapshot(ctx context.Context, snapshot *domain.AssetsTotalInvestedSnapshot) error {
	c := *snapshot
	r.uow.store.investedSnapshots = append(r.uow.store.investedSnapshots, &c)
	r.uow.addUndo(func() {
		r.uow.store.investedSnapshots = r.uow.store.investedSnapshots[:len(r.uow.store.investedSnapshots)-1]
	})
	return nil
}

// LatestBankBefore retrieves the most recent bank snapshot at or before target
func (r *snapshotRepository) LatestBankBefore(ctx context.Context, target time.Time) (*domain.BankAccountSnapshot, error) {
	var latest *domain.BankAccountSnapshot
	for _, row := range r.uow.store.bankSnapshots {
		if row.UserID != r.uow.userID || row.OperationDate.After(target) {
			continue
		}
		if latest == nil || row.OperationDate.After(latest.OperationDate) {
			latest = row
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	c := *latest
	return &c, nil
}

// LatestInvestedBefore retrieves the most recent invested snapshot at or
// before target
func (r *snapshotRepository) LatestInvestedBefore(ctx context.Context, target time.Time) (*domain.AssetsTotalInvestedSnapshot, error) {
	var latest *domain.AssetsTotalInvestedSnapshot
	for _, row := range r.uow.store.investedSnapshots {
		if row.UserID != r.uow.userID || row.OperationDate.After(target) {
			continue
		}
		if latest == nil || row.OperationDate.After(latest.OperationDate) {
			latest = row
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	c := *latest
	return &c, nil
}
