package channel_utils

import (
	"github.com/catsite05/novelvoice/application/ports/outbound"
	"sync"
)

// MergeChannels fans several channels into one, closing the merged channel
// once every input is drained. The fan-in goroutines run on the shared
// worker pool; the manager uses this to wait for all three stage goroutines
// of a task.
func MergeChannels[T any](workerPool outbound.TaskDispatcher, channels ...<-chan T) (<-chan T, error) {
	var wg sync.WaitGroup
	merged := make(chan T)

	output := func(c <-chan T) {
		for val := range c {
			merged <- val
		}
		wg.Done()
	}

	wg.Add(len(channels))
	for _, c := range channels {
		ch := c
		err := workerPool.Submit(func() {
			output(ch)
		})
		if err != nil {
			return nil, err
		}
	}

	err := workerPool.Submit(func() {
		wg.Wait()
		close(merged)
	})
	if err != nil {
		return nil, err
	}

	return merged, nil
}
