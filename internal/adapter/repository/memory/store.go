// Package memory provides in-memory implementations of the repository ports
// and the unit of work. Used by tests and local development; semantics match
// the postgres adapter, including rollback via an undo journal.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// Store holds all collections behind a single mutex. A unit of work locks the
// store at acquisition and releases it on commit or rollback, which
// serializes units of work the way the per-user advisory lock does in
// postgres.
type Store struct {
	mu sync.Mutex

	expenses          map[uuid.UUID]*domain.Expense
	revenues          map[uuid.UUID]*domain.Revenue
	accounts          map[uuid.UUID]*domain.BankAccount
	assets            map[uuid.UUID]*domain.Asset
	transactions      map[uuid.UUID]*domain.Transaction
	incomes           map[uuid.UUID]*domain.PassiveIncome
	closedOps         []*domain.AssetClosedOperation
	readModels        map[uuid.UUID]*domain.AssetReadModel
	metadata          map[uuid.UUID]*domain.AssetMetaData
	bankSnapshots     []*domain.BankAccountSnapshot
	investedSnapshots []*domain.AssetsTotalInvestedSnapshot

	// rates has its own lock: the conversion-rate repository is consulted by
	// the fx cache from inside an open unit of work
	rateMu sync.Mutex
	rates  map[string]*domain.ConversionRate

	kvMu sync.Mutex
	kv   map[string]kvEntry
}

type kvEntry struct {
	value     string
	expiresAt time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		expenses:     make(map[uuid.UUID]*domain.Expense),
		revenues:     make(map[uuid.UUID]*domain.Revenue),
		accounts:     make(map[uuid.UUID]*domain.BankAccount),
		assets:       make(map[uuid.UUID]*domain.Asset),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		incomes:      make(map[uuid.UUID]*domain.PassiveIncome),
		readModels:   make(map[uuid.UUID]*domain.AssetReadModel),
		metadata:     make(map[uuid.UUID]*domain.AssetMetaData),
		rates:        make(map[string]*domain.ConversionRate),
		kv:           make(map[string]kvEntry),
	}
}

// clone helpers keep store rows isolated from caller-held aggregates

func cloneExpense(e *domain.Expense) *domain.Expense {
	c := *e
	c.ResetEvents()
	c.Installments = nil
	return &c
}

func cloneRevenue(r *domain.Revenue) *domain.Revenue {
	c := *r
	c.ResetEvents()
	return &c
}

func cloneAccount(a *domain.BankAccount) *domain.BankAccount {
	c := *a
	return &c
}

func cloneAsset(a *domain.Asset) *domain.Asset {
	c := *a
	c.ResetEvents()
	c.Transactions = nil
	c.PassiveIncomes = nil
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

func cloneIncome(p *domain.PassiveIncome) *domain.PassiveIncome {
	c := *p
	return &c
}

func cloneReadModel(r *domain.AssetReadModel) *domain.AssetReadModel {
	c := *r
	return &c
}

func cloneMetadata(m *domain.AssetMetaData) *domain.AssetMetaData {
	c := *m
	return &c
}
