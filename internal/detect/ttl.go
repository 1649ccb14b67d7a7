package detect

import (
	"sync"
	"time"
)

// TTL is a minimal in-process TTL cache. Lazy expiration on Get.
type TTL[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	now  func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func NewTTL[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{data: make(map[K]entry[V]), now: time.Now}
}

// SetClock replaces the time source; tests only.
func (t *TTL[K, V]) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Get returns the value and true if found and not expired; otherwise zero value and false.
func (t *TTL[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	now := t.now()
	t.mu.RUnlock()
	if !ok || now.After(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Remaining returns how long k stays live, or 0 when it is absent or expired.
func (t *TTL[K, V]) Remaining(k K) time.Duration {
	t.mu.RLock()
	e, ok := t.data[k]
	now := t.now()
	t.mu.RUnlock()
	if !ok || !e.exp.After(now) {
		return 0
	}
	return e.exp.Sub(now)
}

func (t *TTL[K, V]) Set(k K, v V, ttl time.Duration) {
	t.mu.Lock()
	t.data[k] = entry[V]{val: v, exp: t.now().Add(ttl)}
	t.mu.Unlock()
}

func (t *TTL[K, V]) Delete(k K) {
	t.mu.Lock()
	delete(t.data, k)
	t.mu.Unlock()
}

// Cooldown disables a trigger for a while after a failure. The zero duration disables nothing.
type Cooldown struct {
	cache *TTL[string, error]
	d     time.Duration
}

const cooldownKey = "detector"

func NewCooldown(d time.Duration) *Cooldown {
	return &Cooldown{cache: NewTTL[string, error](), d: d}
}

// Trip records err as the reason the trigger is disabled.
func (c *Cooldown) Trip(err error) {
	if c.d <= 0 {
		return
	}
	c.cache.Set(cooldownKey, err, c.d)
}

// Active returns the recorded failure while the cooldown lasts.
func (c *Cooldown) Active() (error, bool) {
	return c.cache.Get(cooldownKey)
}

// Remaining is how long the trigger stays disabled.
func (c *Cooldown) Remaining() time.Duration {
	return c.cache.Remaining(cooldownKey)
}

// Reset re-enables the trigger.
func (c *Cooldown) Reset() {
	c.cache.Delete(cooldownKey)
}
