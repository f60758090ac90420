package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task performs one job. It calls submitted once the service has accepted
// the job and returns the final result.
type Task func(ctx context.Context, source string, submitted func(remoteID string)) (interface{}, error)

// Run starts one job per source, at most limit at a time (0 means no limit),
// and blocks until all of them finish. The returned snapshots are in source
// order. Task failures are recorded on their job; the error reports failures
// to record job state in mgr.
func Run(ctx context.Context, mgr JobManager, jobType Type, sources []string, limit int, task Task) ([]*Job, error) {
	ids := make([]string, len(sources))
	for i, source := range sources {
		job, err := mgr.Create(ctx, jobType, source)
		if err != nil {
			return nil, err
		}
		ids[i] = job.ID
	}

	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	track := func(err error, action, id string) {
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, fmt.Errorf("failed to %s job %s: %w", action, id, err))
	}

	for i, source := range sources {
		wg.Add(1)
		go func(id, source string) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			result, err := task(ctx, source, func(remoteID string) {
				track(mgr.MarkSubmitted(ctx, id, remoteID), "mark submitted", id)
			})
			if err != nil {
				track(mgr.Fail(ctx, id, err), "fail", id)
				return
			}
			track(mgr.Complete(ctx, id, result), "complete", id)
		}(ids[i], source)
	}
	wg.Wait()

	finished := make([]*Job, len(ids))
	for i, id := range ids {
		job, err := mgr.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		finished[i] = job
	}
	return finished, errors.Join(errs...)
}
