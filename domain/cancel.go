package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// CancellationToken is the shared stop flag for one generation task. All
// three stages of a task hold the same token; it is never reused across
// tasks. Cancellation is cooperative: stages observe the token at segment
// boundaries and poll ticks, never mid-write.
type CancellationToken struct {
	once        sync.Once
	done        chan struct{}
	requestedAt atomic.Int64
}

func NewCancellationToken() *CancellationToken {
	return &CancellationToken{done: make(chan struct{})}
}

// Cancel sets the token. Idempotent; only the first call records the
// request time.
func (t *CancellationToken) Cancel() {
	t.once.Do(func() {
		t.requestedAt.Store(time.Now().UnixNano())
		close(t.done)
	})
}

// Cancelled reports whether cancellation has been requested.
func (t *CancellationToken) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when cancellation is requested, for use in
// select loops.
func (t *CancellationToken) Done() <-chan struct{} {
	return t.done
}

// RequestedAt returns when cancellation was first requested, or the zero
// time if it was not.
func (t *CancellationToken) RequestedAt() time.Time {
	ns := t.requestedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
