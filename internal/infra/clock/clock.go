// Package clock abstracts time reads so the dispatch pipeline can be
// driven deterministically in tests. Production code injects Real();
// tests inject Fake() and move time forward with Advance.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Fake returns a FakeClock frozen at initial. Time moves only through
// Advance or Set.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

var _ Clock = (*FakeClock)(nil)

// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
