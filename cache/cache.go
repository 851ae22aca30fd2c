package cache

import (
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
)

// DefaultSize bounds the number of orders tracked by a Cooldown.
const DefaultSize = 4096

// Cooldown remembers recently failed orders so the filler does not retry them
// on every republish. Entries expire after the configured period; the least
// recently used entry is evicted when the cache is full.
type Cooldown struct {
	mu     sync.Mutex
	period time.Duration
	items  *lru.Cache
	now    func() time.Time
	logger zerolog.Logger
}

// NewCooldown creates a cooldown cache.
func NewCooldown(size int, period time.Duration, logger zerolog.Logger) (*Cooldown, error) {
	if size <= 0 {
		size = DefaultSize
	}
	items, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cooldown{
		period: period,
		items:  items,
		now:    time.Now,
		logger: logger.With().Str("component", "cooldown_cache").Logger(),
	}, nil
}

// Mark starts the cooldown of orderID.
func (c *Cooldown) Mark(orderID []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	until := c.now().Add(c.period)
	c.items.Add(hex.EncodeToString(orderID), until)
	c.logger.Debug().Hex("order_id", orderID).Time("until", until).Msg("order in cooldown")
}

// Active reports whether orderID is still cooling down. Expired entries are removed.
func (c *Cooldown) Active(orderID []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hex.EncodeToString(orderID)
	v, ok := c.items.Get(key)
	if !ok {
		return false
	}
	if c.now().Before(v.(time.Time)) {
		return true
	}
	c.items.Remove(key)
	return false
}

// Clear ends the cooldown of orderID.
func (c *Cooldown) Clear(orderID []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(hex.EncodeToString(orderID))
}

// Len returns the number of tracked orders, expired ones included.
func (c *Cooldown) Len() int {
	return c.items.Len()
}
