package security

import (
	"sync"
	"time"
)

// TestSecret is a fixed HS256 secret for tests.
var TestSecret = []byte("test-secret-key-min-32-bytes-long!!")

// TestClock is a settable clock for tests. The zero value reads as the zero time.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewTestClock returns a clock fixed at t.
func NewTestClock(t time.Time) *TestClock { return &TestClock{now: t} }

// Now returns the current fixed time.
func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *TestClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewTestTokenCodec returns a TokenCodec over TestSecret driven by clk.
func NewTestTokenCodec(clk *TestClock) *TokenCodec {
	c, err := NewTokenCodec(TestSecret, clk)
	if err != nil {
		panic(err)
	}
	return c
}

// NewTestHasher returns a Hasher with light work factors so tests stay fast.
func NewTestHasher() *Hasher {
	return NewHasher(Argon2Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}
