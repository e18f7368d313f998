package condition

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// exprCache memoizes expression results for a short TTL so repeated
// evaluations within one render pass skip the parse/eval cycle.
// Keys combine the expression text with the serialized context; a
// context that fails to serialize is simply not cached.
type exprCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  bool
	expires time.Time
}

const cachePruneThreshold = 1024

func newExprCache(ttl time.Duration) *exprCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &exprCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *exprCache) key(src string, ctx Context) (string, bool) {
	blob, err := sonic.Marshal(ctx)
	if err != nil {
		return "", false
	}
	return src + "|" + string(blob), true
}

func (c *exprCache) get(key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return false, false
	}
	return entry.result, true
}

func (c *exprCache) put(key string, result bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= cachePruneThreshold {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = cacheEntry{result: result, expires: time.Now().Add(c.ttl)}
}
