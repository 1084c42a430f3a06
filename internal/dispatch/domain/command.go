package domain

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindSetPreset          Kind = "set_preset"
	KindSetQuickLoad       Kind = "set_quick_load"
	KindSetBrightness      Kind = "set_brightness"
	KindTogglePower        Kind = "toggle_power"
	KindCyclePreset        Kind = "cycle_preset"
	KindCyclePalette       Kind = "cycle_palette"
	KindSyncState          Kind = "sync_state"
	KindReconnectTransport Kind = "reconnect_transport"
)

// Priority orders commands for selection; lower values go first.
type Priority uint8

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBatchable
)

var priorityNames = [...]string{"critical", "high", "normal", "low", "batchable"}

func (p Priority) String() string {
	if int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return fmt.Sprintf("priority(%d)", p)
}

func ParsePriority(value string) (Priority, error) {
	for i, name := range priorityNames {
		if name == value {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("parsing priority %q: %w", value, ErrInvalidValue)
}

// Demote moves a retried command one step down, never below Low.
// Batchable is already below Low and stays there.
func (p Priority) Demote() Priority {
	if p < PriorityLow {
		return p + 1
	}
	return p
}

type BatchStrategy string

const (
	BatchStrategyNone        BatchStrategy = "none"
	BatchStrategyMerge       BatchStrategy = "merge"
	BatchStrategySequence    BatchStrategy = "sequence"
	BatchStrategyConsolidate BatchStrategy = "consolidate"
)

const (
	DirectionNext     = 1
	DirectionPrevious = -1

	MaxBrightness = 255
	MaxPresetID   = 250
)

// Intent is what the interactive side posts: a kind, its value, and an
// optional priority override.
type Intent struct {
	Kind     Kind
	Value    int
	Priority *Priority
}

type Classification struct {
	Priority Priority
	Strategy BatchStrategy
	Lifetime time.Duration
}

var classificationTable = map[Kind]Classification{
	KindSetPreset:          {Priority: PriorityHigh, Strategy: BatchStrategyMerge, Lifetime: 3 * time.Second},
	KindSetQuickLoad:       {Priority: PriorityHigh, Strategy: BatchStrategyMerge, Lifetime: 3 * time.Second},
	KindSetBrightness:      {Priority: PriorityNormal, Strategy: BatchStrategyMerge, Lifetime: 2 * time.Second},
	KindTogglePower:        {Priority: PriorityCritical, Strategy: BatchStrategyNone, Lifetime: 5 * time.Second},
	KindCyclePreset:        {Priority: PriorityNormal, Strategy: BatchStrategySequence, Lifetime: 3 * time.Second},
	KindCyclePalette:       {Priority: PriorityLow, Strategy: BatchStrategySequence, Lifetime: 3 * time.Second},
	KindSyncState:          {Priority: PriorityBatchable, Strategy: BatchStrategyConsolidate, Lifetime: 10 * time.Second},
	KindReconnectTransport: {Priority: PriorityCritical, Strategy: BatchStrategyNone, Lifetime: 10 * time.Second},
}

// Classify maps an intent to its priority, batching strategy and
// lifetime. It depends on nothing but its input.
func Classify(intent Intent) (Classification, error) {
	c, ok := classificationTable[intent.Kind]
	if !ok {
		return Classification{}, fmt.Errorf("classifying %q: %w", intent.Kind, ErrUnknownKind)
	}
	if intent.Priority != nil {
		c.Priority = *intent.Priority
	}
	return c, nil
}

func (i Intent) Validate() error {
	switch i.Kind {
	case KindSetBrightness:
		if i.Value < 0 || i.Value > MaxBrightness {
			return fmt.Errorf("brightness %d: %w", i.Value, ErrInvalidValue)
		}
	case KindSetPreset, KindSetQuickLoad:
		if i.Value < 1 || i.Value > MaxPresetID {
			return fmt.Errorf("preset %d: %w", i.Value, ErrInvalidValue)
		}
	case KindCyclePreset, KindCyclePalette:
		if i.Value < DirectionPrevious || i.Value > DirectionNext {
			return fmt.Errorf("direction %d: %w", i.Value, ErrInvalidValue)
		}
	}
	if i.Priority != nil && *i.Priority > PriorityBatchable {
		return fmt.Errorf("priority %d: %w", *i.Priority, ErrInvalidValue)
	}
	return nil
}

type Command struct {
	ID          ID
	Kind        Kind
	Value       int
	Priority    Priority
	Strategy    BatchStrategy
	Lifetime    time.Duration
	CreatedAt   time.Time
	Deadline    time.Time
	RetryCount  int
	LastRetryAt time.Time
}

// NewCommand classifies intent and stamps it at now.
func NewCommand(intent Intent, now time.Time) (Command, error) {
	if err := intent.Validate(); err != nil {
		return Command{}, err
	}
	c, err := Classify(intent)
	if err != nil {
		return Command{}, err
	}
	return Command{
		ID:        NewID(),
		Kind:      intent.Kind,
		Value:     intent.Value,
		Priority:  c.Priority,
		Strategy:  c.Strategy,
		Lifetime:  c.Lifetime,
		CreatedAt: now,
		Deadline:  now.Add(c.Lifetime),
	}, nil
}

func (c Command) CanMerge() bool {
	return c.Strategy == BatchStrategyMerge
}

func (c Command) Expired(now time.Time) bool {
	return now.After(c.Deadline)
}

// Retried returns the copy that goes back into the queue after a failed
// attempt: one more retry, demoted priority, and a fresh deadline.
func (c Command) Retried(now time.Time) Command {
	c.RetryCount++
	c.LastRetryAt = now
	c.Priority = c.Priority.Demote()
	lifetime := c.Lifetime
	if lifetime <= 0 {
		lifetime = time.Second
	}
	deadline := now.Add(lifetime)
	if !deadline.After(c.Deadline) {
		deadline = c.Deadline.Add(lifetime)
	}
	c.Deadline = deadline
	return c
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%d)#%s", c.Kind, c.Value, c.ID)
}
