// Package scriptqueue provides the bounded, blocking channel between script
// generation and synthesis. A full queue suspends the producer; this is the
// pipeline's only intentional backpressure point.
package scriptqueue

import (
	"time"

	"github.com/catsite05/novelvoice/domain"
)

type Queue struct {
	ch          chan domain.ScriptSegment
	pushTimeout time.Duration
}

// New creates a queue holding at most capacity segments. pushTimeout caps
// how long a push may stay blocked on backpressure; zero means no cap.
func New(capacity int, pushTimeout time.Duration) *Queue {
	return &Queue{
		ch:          make(chan domain.ScriptSegment, capacity),
		pushTimeout: pushTimeout,
	}
}

// Push enqueues a segment, blocking while the queue is full. It returns
// domain.ErrCancelled when the token fires first, and
// domain.ErrQueueBackpressureTimeout when the configured cap elapses while
// blocked.
func (q *Queue) Push(token *domain.CancellationToken, seg domain.ScriptSegment) error {
	var timeout <-chan time.Time
	if q.pushTimeout > 0 {
		timer := time.NewTimer(q.pushTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case q.ch <- seg:
		return nil
	case <-token.Done():
		return domain.ErrCancelled
	case <-timeout:
		return domain.ErrQueueBackpressureTimeout
	}
}

// Pop dequeues the next segment in index order. ok is false once the queue
// is closed and drained. Cancellation returns domain.ErrCancelled without
// draining further.
func (q *Queue) Pop(token *domain.CancellationToken) (domain.ScriptSegment, bool, error) {
	select {
	case seg, ok := <-q.ch:
		return seg, ok, nil
	case <-token.Done():
		return domain.ScriptSegment{}, false, domain.ErrCancelled
	}
}

// Close signals that no further segments will be pushed. Must be called by
// the producer exactly once.
func (q *Queue) Close() {
	close(q.ch)
}

// Len reports the number of buffered segments.
func (q *Queue) Len() int {
	return len(q.ch)
}
