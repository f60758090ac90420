// Package jobs tracks the speech jobs a process has started. State lives in
// memory only and is lost when the process exits.
package jobs

import (
	"context"
	"time"
)

// JobManager defines the interface for job tracking operations.
type JobManager interface {
	// Create registers a new pending job and returns a snapshot of it.
	Create(ctx context.Context, jobType Type, source string) (*Job, error)

	// Get retrieves a snapshot of a job by local ID.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns snapshots of all jobs, oldest first.
	List(ctx context.Context) ([]*Job, error)

	// MarkSubmitted records the service-issued job id.
	MarkSubmitted(ctx context.Context, id, remoteID string) error

	// Complete stores the final result.
	Complete(ctx context.Context, id string, result interface{}) error

	// Fail records the error that aborted the job.
	Fail(ctx context.Context, id string, err error) error

	// CleanupOldJobs removes finished jobs older than the specified duration.
	CleanupOldJobs(ctx context.Context, olderThan time.Duration) error
}

// Verify that Manager implements JobManager (compile-time check).
var _ JobManager = (*Manager)(nil)
