package pipeline

import (
	"sync"

	"git.home.luguber.info/inful/assetrev/internal/assets"
)

// taskResult pairs one registry key's rewrite outcome with its error. The
// update is merged into the registry only after the whole phase has settled.
type taskResult struct {
	update assets.Update
	err    error
}

// runTasks fans the phase's rewriter out over keys using a fixed pool of
// worker goroutines and returns one result per key, index-aligned with the
// input. The call returns only once every task has settled; a single task's
// failure never affects its siblings.
func runTasks(keys []string, concurrency int, fn func(string) (assets.Update, error)) []taskResult {
	if len(keys) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(keys) {
		concurrency = len(keys)
	}

	results := make([]taskResult, len(keys))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				u, err := fn(keys[i])
				results[i] = taskResult{update: u, err: err}
			}
		}()
	}
	for i := range keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
