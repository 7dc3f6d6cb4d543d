// Package fxcache holds the process-wide dollar to BRL conversion value behind
// a layered cache: local memory with a monotonic expiry, then the shared
// key-value store, then the durable conversion row, then the live oracle, and
// finally a configured default.
package fxcache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// cacheKey is the shared key-value store key for the dollar rate
const cacheKey = "conversion:usd-brl"

// DollarCache resolves the USD to BRL rate. Reads outside the local TTL
// collapse into one lookup via singleflight; writes fan out to the durable
// row, the shared store and local memory.
type DollarCache struct {
	kv     domain.KeyValueStore
	rates  domain.ConversionRateRepository
	oracle domain.PriceOracle
	ttl    time.Duration
	def    decimal.Decimal
	now    func() time.Time
	log    zerolog.Logger

	mu        sync.Mutex
	value     decimal.Decimal
	expiresAt time.Time

	group singleflight.Group
}

// New creates a dollar cache. def is the configured fallback rate used when
// every layer misses.
func New(kv domain.KeyValueStore, rates domain.ConversionRateRepository, oracle domain.PriceOracle, ttl time.Duration, def decimal.Decimal, log zerolog.Logger) *DollarCache {
	return &DollarCache{
		kv:     kv,
		rates:  rates,
		oracle: oracle,
		ttl:    ttl,
		def:    def,
		now:    time.Now,
		log:    log.With().Str("component", "fxcache").Logger(),
	}
}

// Rate returns the current USD to BRL conversion value.
// The local value is served while fresh; concurrent misses share one refresh.
func (c *DollarCache) Rate(ctx context.Context) decimal.Decimal {
	c.mu.Lock()
	if !c.expiresAt.IsZero() && c.now().Before(c.expiresAt) {
		value := c.value
		c.mu.Unlock()
		return value
	}
	c.mu.Unlock()

	result, _, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		return c.refresh(ctx), nil
	})
	return result.(decimal.Decimal)
}

// Refresh fetches the rate from the oracle and fans it out through every
// layer. Called by the scheduled price-refresh task.
func (c *DollarCache) Refresh(ctx context.Context) error {
	rate, err := c.oracle.DollarToBRL(ctx)
	if err != nil {
		return err
	}
	c.store(ctx, rate)
	return nil
}

// refresh walks the fallback chain and memoizes whatever layer answered
func (c *DollarCache) refresh(ctx context.Context) decimal.Decimal {
	if raw, ok, err := c.kv.Get(ctx, cacheKey); err == nil && ok {
		if rate, err := decimal.NewFromString(raw); err == nil {
			c.memoize(rate)
			return rate
		}
	} else if err != nil {
		c.log.Warn().Err(err).Msg("key-value store unavailable")
	}

	if row, err := c.rates.Get(ctx, domain.CurrencyUSD, domain.CurrencyBRL); err == nil {
		c.store(ctx, row.Value)
		return row.Value
	}

	if rate, err := c.oracle.DollarToBRL(ctx); err == nil {
		c.store(ctx, rate)
		return rate
	} else {
		c.log.Warn().Err(err).Msg("dollar rate fetch failed, using default")
	}

	c.memoize(c.def)
	return c.def
}

// store fans the rate out to the durable row, the shared store and local
// memory
func (c *DollarCache) store(ctx context.Context, rate decimal.Decimal) {
	if err := c.rates.Upsert(ctx, &domain.ConversionRate{
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyBRL,
		Value:        rate,
	}); err != nil {
		c.log.Warn().Err(err).Msg("conversion row upsert failed")
	}
	if err := c.kv.Set(ctx, cacheKey, rate.String(), c.ttl); err != nil {
		c.log.Warn().Err(err).Msg("key-value store set failed")
	}
	c.memoize(rate)
}

func (c *DollarCache) memoize(rate decimal.Decimal) {
	c.mu.Lock()
	c.value = rate
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
}
