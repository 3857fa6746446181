package worker

import (
	"context"

	"github.com/karungo/studentid/internal/types"
	"golang.org/x/sync/errgroup"
)

// Run processes every task with at most engines in flight and waits for all of
// them. Results come back indexed like tasks. onResult, if set, is called from
// a single goroutine as each task finishes (completion order).
func Run(ctx context.Context, w *PhotoWorker, tasks []types.PhotoTask, engines int, onResult func(types.PhotoResult)) []types.PhotoResult {
	if engines < 1 {
		engines = 1
	}

	results := make([]types.PhotoResult, len(tasks))
	resultsChan := make(chan types.PhotoResult, engines*2)

	// Aggregator must run concurrently to prevent deadlock on resultsChan
	aggDone := make(chan struct{})
	go func() {
		for res := range resultsChan {
			results[res.Index] = res
			if onResult != nil {
				onResult(res)
			}
		}
		close(aggDone)
	}()

	g := new(errgroup.Group)
	g.SetLimit(engines)

	for i, task := range tasks {
		task.Index = i
		if err := ctx.Err(); err != nil {
			// Stop dispatching, but still account for the task.
			resultsChan <- types.PhotoResult{Index: i, Admission: task.Admission, SrcPath: task.SrcPath, Err: err}
			continue
		}
		task := task // per-iteration copy (go.mod targets go 1.21 loop semantics)
		g.Go(func() error {
			resultsChan <- w.Process(ctx, task)
			return nil
		})
	}

	g.Wait()
	close(resultsChan)
	<-aggDone

	return results
}

// Summary counts outcomes of a batch.
type Summary struct {
	Processed int
	NoFace    int
	Failed    int
}

func Summarize(results []types.PhotoResult) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.NoFace:
			s.NoFace++
		default:
			s.Processed++
		}
	}
	return s
}
