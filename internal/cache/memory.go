package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is a process-local Store used when no redis address is configured.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time

	lastSweep time.Time
}

type entry struct {
	val []byte
	exp time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// a Set may have landed between the two locks
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)
	c.m[key] = entry{val: val, exp: now.Add(c.ttl)}
	return nil
}

func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

// Incr bumps a decimal counter stored under key and refreshes its expiry.
// A missing or expired counter starts from zero.
func (c *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	var n int64
	if e, ok := c.m[key]; ok && !now.After(e.exp) {
		cur, err := strconv.ParseInt(string(e.val), 10, 64)
		if err != nil {
			return 0, err
		}
		n = cur
	}
	n++

	c.m[key] = entry{val: []byte(strconv.FormatInt(n, 10)), exp: now.Add(ttl)}
	return n, nil
}

// sweep drops expired entries at most once per ttl. Caller holds mu.
func (c *Memory) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < c.ttl {
		return
	}
	c.lastSweep = now

	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
		}
	}
}
