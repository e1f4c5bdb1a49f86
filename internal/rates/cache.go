// Package rates caches the latest exchange rate per currency code.
package rates

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/powerman/structlog"

	"tradedesk/internal/models"
)

// DefaultSize is the number of currency codes kept when no size is configured.
const DefaultSize = 100

// Fallbacks used when no rate has been recorded for a currency.
var Fallbacks = map[string]float64{
	models.CurrencyKRW: 180.0,
	models.CurrencyUSD: 7.0,
}

// Lookup finds the most recent recorded rate for code. asOf, when not empty,
// limits the search to rates recorded on or before that date (YYYY-MM-DD).
type Lookup interface {
	LatestRate(ctx context.Context, code, asOf string) (rate float64, found bool, err error)
}

// Cache is a bounded LRU of code → latest rate in front of a Lookup.
// It is safe for concurrent use. Entries never expire on their own; callers
// clear them through Invalidate, which the store calls on schema init and on
// every rate write.
type Cache struct {
	lookup   Lookup
	defaults map[string]float64
	log      *structlog.Logger
	items    *lru.Cache[string, float64]

	// mu orders fills against Invalidate; gen changes on every Invalidate.
	mu  sync.Mutex
	gen uint64
}

// New creates a cache holding at most size codes. defaults may be nil.
func New(lookup Lookup, size int, defaults map[string]float64, log *structlog.Logger) *Cache {
	if size < 1 {
		size = DefaultSize
	}
	d := make(map[string]float64, len(Fallbacks)+len(defaults))
	for k, v := range Fallbacks {
		d[k] = v
	}
	for k, v := range defaults {
		d[normalize(k)] = v
	}
	if log == nil {
		log = structlog.New(structlog.KeyUnit, "rates")
	}
	items, _ := lru.New[string, float64](size) // only fails for size <= 0
	return &Cache{
		lookup:   lookup,
		defaults: d,
		log:      log,
		items:    items,
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Rate returns the latest rate for code. It never fails: when nothing is
// recorded, or the lookup errors, the configured default (or 0) is returned.
func (c *Cache) Rate(ctx context.Context, code string) float64 {
	code = normalize(code)

	if rate, ok := c.items.Get(code); ok {
		return rate
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	rate, found, err := c.lookup.LatestRate(ctx, code, "")
	if err != nil {
		c.log.Warn("rate lookup failed, using default", "code", code, "err", err)
		return c.defaults[code]
	}
	if !found {
		rate = c.defaults[code]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Invalidated while we were reading; do not resurrect a stale value.
		return rate
	}
	c.items.Add(code, rate)
	c.log.Debug("rate cached", "code", code, "rate", rate, "recorded", found)
	return rate
}

// Display returns the KRW and USD rates used for display prices.
func (c *Cache) Display(ctx context.Context) (krw, usd float64) {
	return c.Rate(ctx, models.CurrencyKRW), c.Rate(ctx, models.CurrencyUSD)
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.items.Purge()
	c.mu.Unlock()
	c.log.Debug("rate cache invalidated")
}

// Len is the number of cached codes.
func (c *Cache) Len() int {
	return c.items.Len()
}
