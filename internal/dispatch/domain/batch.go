package domain

import (
	"errors"
	"time"
)

// Batch is the set of commands chosen for one dispatch cycle. It is
// self-contained: its commands are no longer in the pending queue.
type Batch struct {
	ID                ID
	Commands          []Command
	ReadyForExecution bool
	EstimatedDuration time.Duration

	// Exactly one of Payload and ConsolidationErr is set once
	// Consolidate has run.
	Payload          *StatePatch
	ConsolidationErr error
}

func (b Batch) CommandCount() int {
	return len(b.Commands)
}

func (b Batch) Empty() bool {
	return len(b.Commands) == 0
}

// IsReconnect reports whether the batch asks for a transport re-dial
// instead of a device request.
func (b Batch) IsReconnect() bool {
	return len(b.Commands) == 1 && b.Commands[0].Kind == KindReconnectTransport
}

// Consolidate merges every command into one payload. Single-command
// batches always consolidate unless the command has no payload at all.
func (b *Batch) Consolidate() error {
	patch, err := Consolidate(b.Commands)
	if err != nil {
		b.Payload = nil
		b.ConsolidationErr = err
		return err
	}
	b.Payload = &patch
	b.ConsolidationErr = nil
	return nil
}

func (b Batch) ConsolidationFailed() bool {
	return b.ConsolidationErr != nil && !errors.Is(b.ConsolidationErr, ErrNoPayload)
}
