package usecases

import (
	"log/slog"
	"time"

	"lumen-remote/internal/dispatch/domain"
)

const (
	DefaultQueueCapacity = 16
	DefaultMergeWindow   = 200 * time.Millisecond
)

type slot struct {
	cmd        domain.Command
	seq        uint64
	superseded bool
	expired    bool
}

func (s slot) live() bool {
	return !s.superseded && !s.expired
}

// PendingQueue holds commands that have not been dispatched yet, ordered
// by priority with arrival order kept inside each priority. Its backing
// array is allocated once and never grows past capacity.
type PendingQueue struct {
	slots       []slot
	capacity    int
	mergeWindow time.Duration
	seq         uint64

	evicted      uint64
	expired      uint64
	deduplicated uint64
}

func NewPendingQueue(capacity int, mergeWindow time.Duration) *PendingQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if mergeWindow < 0 {
		mergeWindow = DefaultMergeWindow
	}
	return &PendingQueue{
		slots:       make([]slot, 0, capacity),
		capacity:    capacity,
		mergeWindow: mergeWindow,
	}
}

// Insert places cmd after every entry of equal or higher priority. A
// full queue first evicts its oldest entry whatever that entry's
// priority; the evicted command is returned.
func (q *PendingQueue) Insert(cmd domain.Command) (domain.Command, bool) {
	evicted, ok := q.makeRoom()
	at := len(q.slots)
	for i, s := range q.slots {
		if s.cmd.Priority > cmd.Priority {
			at = i
			break
		}
	}
	q.insertAt(at, cmd)
	return evicted, ok
}

// Requeue returns commands that were taken out but never attempted. They
// go to the front of their priority band, keeping their relative order.
func (q *PendingQueue) Requeue(cmds []domain.Command) []domain.Command {
	var evicted []domain.Command
	for i := len(cmds) - 1; i >= 0; i-- {
		cmd := cmds[i]
		if e, ok := q.makeRoom(); ok {
			evicted = append(evicted, e)
		}
		at := len(q.slots)
		for j, s := range q.slots {
			if s.cmd.Priority >= cmd.Priority {
				at = j
				break
			}
		}
		q.insertAt(at, cmd)
	}
	return evicted
}

func (q *PendingQueue) insertAt(at int, cmd domain.Command) {
	q.seq++
	q.slots = append(q.slots, slot{})
	copy(q.slots[at+1:], q.slots[at:])
	q.slots[at] = slot{cmd: cmd, seq: q.seq}
}

func (q *PendingQueue) makeRoom() (domain.Command, bool) {
	if len(q.slots) < q.capacity {
		return domain.Command{}, false
	}
	oldest := 0
	for i, s := range q.slots {
		if q.older(s, q.slots[oldest]) {
			oldest = i
		}
	}
	victim := q.slots[oldest].cmd
	q.slots = append(q.slots[:oldest], q.slots[oldest+1:]...)
	q.evicted++
	slog.Debug("pending queue full, evicted oldest command",
		slog.String("command", victim.String()),
		slog.String("priority", victim.Priority.String()))
	return victim, true
}

func (q *PendingQueue) older(a, b slot) bool {
	if !a.cmd.CreatedAt.Equal(b.cmd.CreatedAt) {
		return a.cmd.CreatedAt.Before(b.cmd.CreatedAt)
	}
	return a.seq < b.seq
}

// Deduplicate collapses live mergeable commands of the same kind created
// within the merge window of each other; the newest survives. It returns
// how many commands were superseded.
func (q *PendingQueue) Deduplicate() int {
	superseded := 0
	for i := range q.slots {
		for j := i + 1; j < len(q.slots); j++ {
			a, b := &q.slots[i], &q.slots[j]
			if !a.live() || !b.live() || !a.cmd.CanMerge() || !b.cmd.CanMerge() || a.cmd.Kind != b.cmd.Kind {
				continue
			}
			if absDuration(a.cmd.CreatedAt.Sub(b.cmd.CreatedAt)) > q.mergeWindow {
				continue
			}
			loser := a
			if q.older(*b, *a) {
				loser = b
			}
			loser.superseded = true
			superseded++
		}
	}
	q.deduplicated += uint64(superseded)
	return superseded
}

// SweepExpired marks every command past its deadline and returns them.
// They are never dispatched.
func (q *PendingQueue) SweepExpired(now time.Time) []domain.Command {
	var expired []domain.Command
	for i := range q.slots {
		s := &q.slots[i]
		if s.live() && s.cmd.Expired(now) {
			s.expired = true
			expired = append(expired, s.cmd)
		}
	}
	q.expired += uint64(len(expired))
	return expired
}

// Compact drops superseded and expired entries, keeping survivors in
// order.
func (q *PendingQueue) Compact() int {
	kept := q.slots[:0]
	for _, s := range q.slots {
		if s.live() {
			kept = append(kept, s)
		}
	}
	removed := len(q.slots) - len(kept)
	clear(q.slots[len(kept):])
	q.slots = kept
	return removed
}

// Live returns the live commands in selection order.
func (q *PendingQueue) Live() []domain.Command {
	out := make([]domain.Command, 0, len(q.slots))
	for _, s := range q.slots {
		if s.live() {
			out = append(out, s.cmd)
		}
	}
	return out
}

// Remove takes the given commands out of the queue.
func (q *PendingQueue) Remove(ids ...domain.ID) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[domain.ID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := q.slots[:0]
	for _, s := range q.slots {
		if _, ok := drop[s.cmd.ID]; !ok {
			kept = append(kept, s)
		}
	}
	removed := len(q.slots) - len(kept)
	clear(q.slots[len(kept):])
	q.slots = kept
	return removed
}

func (q *PendingQueue) Len() int {
	return len(q.slots)
}

func (q *PendingQueue) Capacity() int {
	return q.capacity
}

func (q *PendingQueue) Evicted() uint64 {
	return q.evicted
}

func (q *PendingQueue) Expired() uint64 {
	return q.expired
}

func (q *PendingQueue) Deduplicated() uint64 {
	return q.deduplicated
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
