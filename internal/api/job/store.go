// Package job tracks asynchronous API work such as backtest reviews.
package job

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/backtrack/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Done reports whether the job has finished.
func (s Status) Done() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job represents an async job.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fail marks the job failed with err.
func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	j.Error = err.Error()
	var ce *core.Error
	if errors.As(err, &ce) {
		j.ErrorCode = ce.Code
		j.Error = ce.Message
		if ce.Cause != nil {
			j.Error += ": " + ce.Cause.Error()
		}
	}
}

// Complete marks the job complete with result.
func (j *Job) Complete(result any) {
	j.Status = StatusComplete
	j.Progress = 100
	j.Result = result
}

// Store manages async jobs in memory. Finished jobs older than the TTL are
// dropped by Cleanup; the oldest job is evicted when the store is full.
type Store struct {
	jobs    map[string]*Job
	order   []string // insertion order for eviction
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewStore creates a new job store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock overrides the time source (for testing).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Create creates a pending job and returns a copy of it.
func (s *Store) Create(jobType, subject string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Subject:   subject,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.jobs, oldest)
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return *job
}

// Get retrieves a copy of a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("job %s", id))
	}
	jobCopy := *job
	return &jobCopy, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.WrapError(core.ErrNotFound, fmt.Errorf("job %s", id))
	}
	fn(job)
	job.UpdatedAt = s.now().UTC()
	return nil
}

// List returns all jobs, oldest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		if job, ok := s.jobs[id]; ok {
			result = append(result, *job)
		}
	}
	return result
}

// Active counts unfinished jobs of jobType.
func (s *Store) Active(jobType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, job := range s.jobs {
		if job.Type == jobType && !job.Status.Done() {
			n++
		}
	}
	return n
}

// Cleanup removes finished jobs last updated more than ttl ago and returns
// how many were removed. A non-positive ttl keeps everything.
func (s *Store) Cleanup() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		job := s.jobs[id]
		if job.Status.Done() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
