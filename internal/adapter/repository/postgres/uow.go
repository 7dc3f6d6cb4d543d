package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// UnitOfWorkFactory acquires postgres-backed units of work bound to one user.
// It tracks the open span per user so a nested New joins the ambient
// transaction instead of opening a second one.
type UnitOfWorkFactory struct {
	db *DB

	mu   sync.Mutex
	open map[uuid.UUID]*unitOfWork
}

// NewUnitOfWorkFactory creates a factory over the given database
func NewUnitOfWorkFactory(db *DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db, open: make(map[uuid.UUID]*unitOfWork)}
}

// New opens a transaction and takes the per-user advisory lock, serializing
// units of work of the same user. The lock is released with the transaction.
// When the user already has an open span, the same unit of work is returned
// with its nesting level raised; the inner Commit and Rollback are then
// no-ops and the outer span controls the actual boundary.
func (f *UnitOfWorkFactory) New(ctx context.Context, userID uuid.UUID) (domain.UnitOfWork, error) {
	f.mu.Lock()
	if ambient, ok := f.open[userID]; ok {
		ambient.nesting++
		f.mu.Unlock()
		return ambient, nil
	}
	f.mu.Unlock()

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to take user lock: %w", err)
	}

	uow := &unitOfWork{tx: tx, factory: f, userID: userID}
	uow.expenses = &expenseRepository{uow: uow}
	uow.revenues = &revenueRepository{uow: uow}
	uow.accounts = &bankAccountRepository{uow: uow}
	uow.assets = &assetRepository{uow: uow}
	uow.transactions = &transactionRepository{uow: uow}
	uow.incomes = &passiveIncomeRepository{uow: uow}
	uow.closedOps = &closedOperationRepository{uow: uow}
	uow.readModels = &readModelRepository{uow: uow}
	uow.metadata = &metadataRepository{uow: uow}
	uow.snapshots = &snapshotRepository{uow: uow}

	f.mu.Lock()
	f.open[userID] = uow
	f.mu.Unlock()
	return uow, nil
}

// unitOfWork implements domain.UnitOfWork over one sql transaction
type unitOfWork struct {
	tx      *sql.Tx
	factory *UnitOfWorkFactory
	userID  uuid.UUID
	nesting int
	done    bool

	seen   []domain.EventSource
	raised []domain.Event

	expenses     *expenseRepository
	revenues     *revenueRepository
	accounts     *bankAccountRepository
	assets       *assetRepository
	transactions *transactionRepository
	incomes      *passiveIncomeRepository
	closedOps    *closedOperationRepository
	readModels   *readModelRepository
	metadata     *metadataRepository
	snapshots    *snapshotRepository
}

func (u *unitOfWork) Expenses() domain.ExpenseRepository             { return u.expenses }
func (u *unitOfWork) Revenues() domain.RevenueRepository             { return u.revenues }
func (u *unitOfWork) BankAccounts() domain.BankAccountRepository     { return u.accounts }
func (u *unitOfWork) Assets() domain.AssetRepository                 { return u.assets }
func (u *unitOfWork) Transactions() domain.TransactionRepository     { return u.transactions }
func (u *unitOfWork) PassiveIncomes() domain.PassiveIncomeRepository { return u.incomes }
func (u *unitOfWork) ClosedOperations() domain.ClosedOperationRepository {
	return u.closedOps
}
func (u *unitOfWork) ReadModels() domain.ReadModelRepository        { return u.readModels }
func (u *unitOfWork) AssetMetaData() domain.AssetMetaDataRepository { return u.metadata }
func (u *unitOfWork) Snapshots() domain.SnapshotRepository          { return u.snapshots }

// Commit commits the transaction, releasing the advisory lock. A nested
// commit only lowers the nesting level; the outermost span performs the real
// commit. Driver-level conflicts surface as domain.ErrConcurrency so the bus
// can retry the unit of work.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.leaveNested() {
		return nil
	}
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.finish()
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapConcurrencyError(err))
	}
	return nil
}

// Rollback aborts the transaction. A nested rollback defers to the outer
// span; a rollback after commit is a no-op, which is what the deferred
// rollback in the bus relies on.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.leaveNested() {
		return nil
	}
	if u.done {
		return nil
	}
	u.finish()
	if err := u.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// leaveNested lowers the nesting level of an ambient span and reports whether
// the call was nested
func (u *unitOfWork) leaveNested() bool {
	u.factory.mu.Lock()
	defer u.factory.mu.Unlock()
	if u.nesting > 0 {
		u.nesting--
		return true
	}
	return false
}

// finish marks the span closed and drops it from the factory's open set
func (u *unitOfWork) finish() {
	u.done = true
	u.factory.mu.Lock()
	delete(u.factory.open, u.userID)
	u.factory.mu.Unlock()
}

// RaiseEvent buffers an event that is not tied to an aggregate
func (u *unitOfWork) RaiseEvent(event domain.Event) {
	u.raised = append(u.raised, event)
}

// CollectNewEvents yields and clears events buffered on each seen aggregate,
// in the order the aggregates were seen, followed by free-standing events
func (u *unitOfWork) CollectNewEvents() []domain.Event {
	var events []domain.Event
	for _, source := range u.seen {
		events = append(events, source.PopEvents()...)
	}
	events = append(events, u.raised...)
	u.raised = nil
	return events
}

// markSeen records an aggregate for event collection. An aggregate already in
// the seen set keeps its original position.
func (u *unitOfWork) markSeen(source domain.EventSource) {
	for _, existing := range u.seen {
		if existing == source {
			return
		}
	}
	u.seen = append(u.seen, source)
}
