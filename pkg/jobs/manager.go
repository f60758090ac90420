package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents job status
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Type is the kind of speech job
type Type string

const (
	TypeRecord   Type = "record"
	TypeSubtitle Type = "subtitle"
)

// Job represents one submit-then-wait sequence
type Job struct {
	ID          string      `json:"id"`
	Type        Type        `json:"type"`
	Source      string      `json:"source"`
	RemoteID    string      `json:"remote_id,omitempty"`
	Status      Status      `json:"status"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Finished reports whether the job reached a terminal status
func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Manager tracks jobs in memory
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create creates a new job
func (m *Manager) Create(ctx context.Context, jobType Type, source string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Source:    source,
		Status:    StatusPending,
		CreatedAt: m.now(),
	}
	m.jobs[job.ID] = job

	return job.snapshot(), nil
}

// Get retrieves a job by ID
func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}

	return job.snapshot(), nil
}

// List returns all jobs ordered by creation time
func (m *Manager) List(ctx context.Context) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	return jobs, nil
}

// MarkSubmitted records the service job id
func (m *Manager) MarkSubmitted(ctx context.Context, id, remoteID string) error {
	return m.update(id, func(job *Job, now time.Time) {
		job.Status = StatusSubmitted
		job.RemoteID = remoteID
		job.SubmittedAt = &now
	})
}

// Complete stores the result and marks the job completed
func (m *Manager) Complete(ctx context.Context, id string, result interface{}) error {
	return m.update(id, func(job *Job, now time.Time) {
		job.Status = StatusCompleted
		job.Result = result
		job.CompletedAt = &now
	})
}

// Fail marks the job failed
func (m *Manager) Fail(ctx context.Context, id string, err error) error {
	return m.update(id, func(job *Job, now time.Time) {
		job.Status = StatusFailed
		if err != nil {
			job.Error = err.Error()
		}
		job.CompletedAt = &now
	})
}

func (m *Manager) update(id string, fn func(job *Job, now time.Time)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.Finished() {
		return fmt.Errorf("job %s already %s", id, job.Status)
	}

	fn(job, m.now())
	return nil
}

// CleanupOldJobs removes finished jobs older than the specified duration
func (m *Manager) CleanupOldJobs(ctx context.Context, olderThan time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-olderThan)

	for id, job := range m.jobs {
		if job.Finished() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}

	return nil
}

// snapshot copies the job so callers never share state with the manager
func (j *Job) snapshot() *Job {
	cp := *j
	if j.SubmittedAt != nil {
		t := *j.SubmittedAt
		cp.SubmittedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
