package openitems

import (
	"context"
	"maps"
	"sync"

	"github.com/shopspring/decimal"
)

type cacheKey struct {
	company string
	class   string
}

// Cache memoises balances per (company, class). Entries live until
// Invalidate is called for the company, which every transaction write must do.
type Cache struct {
	scan Scanner

	mu      sync.Mutex
	entries map[cacheKey]map[string]decimal.Decimal
	gen     map[string]uint64 // bumped by Invalidate
}

// NewCache creates a cache over src.
func NewCache(src TransactionSource) *Cache {
	return &Cache{
		scan:    Scanner{Source: src},
		entries: make(map[cacheKey]map[string]decimal.Decimal),
		gen:     make(map[string]uint64),
	}
}

// Balances implements Balancer. The returned map is a copy.
func (c *Cache) Balances(ctx context.Context, companyID, class string) (map[string]decimal.Decimal, error) {
	key := cacheKey{companyID, class}

	c.mu.Lock()
	cached, ok := c.entries[key]
	gen := c.gen[companyID]
	c.mu.Unlock()
	if ok {
		return maps.Clone(cached), nil
	}

	balances, err := c.scan.Balances(ctx, companyID, class)
	if err != nil {
		return nil, err
	}

	// A write that landed during the scan may not be in balances.
	c.mu.Lock()
	if c.gen[companyID] == gen {
		c.entries[key] = balances
	}
	c.mu.Unlock()
	return maps.Clone(balances), nil
}

// Invalidate drops every cached class of companyID.
func (c *Cache) Invalidate(companyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[companyID]++
	for k := range c.entries {
		if k.company == companyID {
			delete(c.entries, k)
		}
	}
}
