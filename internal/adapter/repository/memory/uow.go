package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// UnitOfWorkFactory acquires in-memory units of work bound to one user.
// It tracks the open span per user so a nested New joins the ambient unit of
// work instead of deadlocking on the store mutex.
type UnitOfWorkFactory struct {
	store *Store

	mu   sync.Mutex
	open map[uuid.UUID]*unitOfWork
}

// NewUnitOfWorkFactory creates a factory over the given store
func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store, open: make(map[uuid.UUID]*unitOfWork)}
}

// New returns a unit of work scoped to the user. When the user already has an
// open span, the same unit of work is returned with its nesting level raised;
// the inner Commit and Rollback are then no-ops and the outer span controls
// the actual boundary.
func (f *UnitOfWorkFactory) New(ctx context.Context, userID uuid.UUID) (domain.UnitOfWork, error) {
	f.mu.Lock()
	if ambient, ok := f.open[userID]; ok {
		ambient.nesting++
		f.mu.Unlock()
		return ambient, nil
	}
	f.mu.Unlock()

	f.store.mu.Lock()
	uow := &unitOfWork{store: f.store, factory: f, userID: userID}
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

// unitOfWork implements domain.UnitOfWork over the in-memory store.
// Writes apply immediately; each records an undo closure so Rollback can
// restore the pre-state in reverse order.
type unitOfWork struct {
	store   *Store
	factory *UnitOfWorkFactory
	userID  uuid.UUID
	nesting int
	done    bool

	undo   []func()
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

// Commit discards the undo journal and releases the store. A nested commit
// only lowers the nesting level; the outermost span performs the real commit.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.leaveNested() {
		return nil
	}
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.finish()
	u.undo = nil
	u.store.mu.Unlock()
	return nil
}

// Rollback replays the undo journal in reverse and releases the store.
// A nested rollback defers to the outer span; a rollback after commit is a
// no-op, which is what the deferred rollback in the bus relies on.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.leaveNested() {
		return nil
	}
	if u.done {
		return nil
	}
	u.finish()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.store.mu.Unlock()
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

// addUndo records a closure restoring pre-write state
func (u *unitOfWork) addUndo(fn func()) {
	u.undo = append(u.undo, fn)
}
