package async

import "context"

// Worker is a long-lived loop owned by its own goroutine. Run blocks
// until ctx is cancelled and calls done on exit so the caller can track
// it with a WaitGroup.
type Worker interface {
	Run(ctx context.Context, done func())
	Shutdown()
}
