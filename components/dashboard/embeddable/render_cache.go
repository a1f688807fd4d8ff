package embeddable

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// RenderCache memoizes rendered panel HTML.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// TTLCache is an in-memory TTL cache for rendered panels.
type TTLCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedPanel
}

type cachedPanel struct {
	html    string
	expires time.Time
}

// NewTTLCache builds a cache with the provided TTL. A non-positive TTL disables caching.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]cachedPanel),
	}
}

// GetOrRender returns a cached entry or renders and stores a new one. Failed
// renders are never cached.
func (c *TTLCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if html, ok := c.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.set(key, html)
	return html, nil
}

// Len reports the number of live entries.
func (c *TTLCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TTLCache) get(key string) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		return "", false
	}
	return entry.html, true
}

func (c *TTLCache) set(key, html string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cachedPanel{
		html:    html,
		expires: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

type noCache struct{}

func (noCache) GetOrRender(_ string, render func() (string, error)) (string, error) {
	return render()
}

// renderKey identifies one render of a child. The reload token is kept out of the
// input hash and appended on its own, so a reload misses the cache even though the
// logical input is unchanged.
func renderKey(input ChildInput) string {
	return input.ID + ":" + inputHash(input) + ":" + strconv.FormatInt(input.LastReloadRequestTime, 10)
}

func inputHash(input ChildInput) string {
	input.LastReloadRequestTime = 0
	b, err := json.Marshal(input)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
