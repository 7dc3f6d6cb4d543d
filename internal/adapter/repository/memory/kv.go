package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// KeyValueStore implements domain.KeyValueStore in memory with per-key TTL.
// Stands in for the shared cache in tests and local development.
type KeyValueStore struct {
	store *Store
	now   func() time.Time
}

// NewKeyValueStore creates a key-value store over the given memory store
func NewKeyValueStore(store *Store) *KeyValueStore {
	return &KeyValueStore{store: store, now: time.Now}
}

// Get returns the value for key if present and not expired
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.store.kvMu.Lock()
	defer s.store.kvMu.Unlock()

	entry, ok := s.store.kv[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.store.kv, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores the value under key with a TTL; a zero TTL never expires
func (s *KeyValueStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.store.kvMu.Lock()
	defer s.store.kvMu.Unlock()

	entry := kvEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.store.kv[key] = entry
	return nil
}

// ConversionRateRepository implements domain.ConversionRateRepository in
// memory. Unlike the aggregate repositories it is not user scoped.
type ConversionRateRepository struct {
	store *Store
}

// NewConversionRateRepository creates a conversion-rate repository
func NewConversionRateRepository(store *Store) *ConversionRateRepository {
	return &ConversionRateRepository{store: store}
}

func rateKey(from, to domain.Currency) string {
	return string(from) + "/" + string(to)
}

// Get retrieves the live rate for a currency pair
func (r *ConversionRateRepository) Get(ctx context.Context, from, to domain.Currency) (*domain.ConversionRate, error) {
	r.store.rateMu.Lock()
	defer r.store.rateMu.Unlock()

	row, ok := r.store.rates[rateKey(from, to)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *row
	return &c, nil
}

// Upsert replaces the live rate for a currency pair
func (r *ConversionRateRepository) Upsert(ctx context.Context, rate *domain.ConversionRate) error {
	r.store.rateMu.Lock()
	defer r.store.rateMu.Unlock()

	c := *rate
	r.store.rates[rateKey(rate.FromCurrency, rate.ToCurrency)] = &c
	return nil
}

// UserLister implements domain.UserLister over the store: active users are
// those owning an active bank account.
type UserLister struct {
	store *Store
}

// NewUserLister creates a user lister over the given store
func NewUserLister(store *Store) *UserLister {
	return &UserLister{store: store}
}

// ActiveUserIDs returns the distinct users with an active bank account
func (l *UserLister) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	set := make(map[uuid.UUID]bool)
	for _, account := range l.store.accounts {
		if account.IsActive {
			set[account.UserID] = true
		}
	}
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
