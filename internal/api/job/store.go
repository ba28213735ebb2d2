// Package job tracks long-running dashboard requests such as report uploads.
package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/sourcegraph/conc"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job represents an async job.
type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    Status      `json:"status"`
	Result    any         `json:"result,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Done reports whether the job reached a final status.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// Store keeps the most recent jobs in memory. Finished jobs older than ttl are
// dropped on access.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	wg      conc.WaitGroup
}

// NewStore creates a job store holding at most maxSize jobs.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*Job),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create creates a pending job and returns a copy of it.
func (s *Store) Create(jobType string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if len(s.order) >= s.maxSize {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return *job
}

// Run creates a job and executes fn in the background. fn's result or error
// becomes the job outcome; a panic fails the job.
func (s *Store) Run(ctx context.Context, jobType string, fn func(ctx context.Context) (any, error)) Job {
	job := s.Create(jobType)
	s.wg.Go(func() {
		s.Update(job.ID, func(j *Job) { j.Status = StatusRunning })

		var (
			result any
			err    error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("job panicked: %v", r)
				}
			}()
			result, err = fn(ctx)
		}()

		s.Update(job.ID, func(j *Job) {
			if err != nil {
				j.Status = StatusFailed
				j.Error = asCoreError(err)
				return
			}
			j.Status = StatusComplete
			j.Result = result
		})
	})
	return job
}

func asCoreError(err error) *core.Error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	return &core.Error{Code: "INTERNAL_ERROR", Message: err.Error()}
}

// Wait blocks until every job started with Run has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Get retrieves a copy of a job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, core.WrapError(core.ErrNotFound, fmt.Errorf("job %q", id))
	}
	return *job, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.WrapError(core.ErrNotFound, fmt.Errorf("job %q", id))
	}
	fn(job)
	job.UpdatedAt = s.now()
	return nil
}

// List returns the jobs, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// expire drops finished jobs past the ttl. Caller holds mu.
func (s *Store) expire() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	kept := s.order[:0]
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Done() && j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
