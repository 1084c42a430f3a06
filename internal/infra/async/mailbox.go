package async

import (
	"context"
	"sync/atomic"
	"time"
)

// Mailbox is the bounded hand-off between a producer goroutine that must
// stay responsive and a consumer goroutine that owns everything behind
// it. It is the only structure both sides touch.
//
// When the buffer stays full for longer than the producer is willing to
// wait, the oldest item is discarded to make room: fresh input is worth
// more than stale input.
type Mailbox[T any] struct {
	items    chan T
	posted   atomic.Uint64
	dropped  atomic.Uint64
	capacity int
}

func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mailbox[T]{
		items:    make(chan T, capacity),
		capacity: capacity,
	}
}

// Post enqueues item, waiting at most timeout for room. It returns false
// when the mailbox overflowed; in that case at least one item was lost
// and Dropped reflects it. Post never blocks longer than timeout.
func (m *Mailbox[T]) Post(item T, timeout time.Duration) bool {
	select {
	case m.items <- item:
		m.posted.Add(1)
		return true
	default:
	}

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case m.items <- item:
			m.posted.Add(1)
			return true
		case <-timer.C:
		}
	}

	select {
	case <-m.items:
		m.dropped.Add(1)
	default:
	}

	select {
	case m.items <- item:
		m.posted.Add(1)
	default:
		// the consumer side refilled nothing and another producer won the slot
		m.dropped.Add(1)
	}
	return false
}

// Drain waits up to wait for the first item, then collects whatever else
// is immediately available, up to maxItems. A nil result means the wait
// elapsed (or ctx ended) with nothing to do.
func (m *Mailbox[T]) Drain(ctx context.Context, maxItems int, wait time.Duration) []T {
	if maxItems <= 0 {
		maxItems = m.capacity
	}

	var first T
	select {
	case first = <-m.items:
	default:
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case first = <-m.items:
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}

	out := make([]T, 0, maxItems)
	out = append(out, first)
	for len(out) < maxItems {
		select {
		case item := <-m.items:
			out = append(out, item)
		default:
			return out
		}
	}
	return out
}

func (m *Mailbox[T]) Len() int {
	return len(m.items)
}

func (m *Mailbox[T]) Capacity() int {
	return m.capacity
}

func (m *Mailbox[T]) Posted() uint64 {
	return m.posted.Load()
}

func (m *Mailbox[T]) Dropped() uint64 {
	return m.dropped.Load()
}
