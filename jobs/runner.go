// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpus/core"
)

const releaseTimeout = 10 * time.Second

var _ Queue = (*Runner)(nil)

// Runner executes jobs in-process on an ants worker pool.
type Runner struct {
	pool     *ants.Pool
	logger   *slog.Logger
	handlers map[string]Handler

	mu     sync.RWMutex
	jobs   map[core.ID]*Job
	closed bool
}

// Option configures a Runner.
type Option func(*Runner) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}

		if r.pool != nil {
			r.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a job runner with an empty handler registry.
func NewRunner(opts ...Option) (*Runner, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		pool:     pool,
		logger:   slog.Default(),
		handlers: make(map[string]Handler),
		jobs:     make(map[core.ID]*Job),
	}

	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.pool.Release()
			return nil, optErr
		}
	}

	return r, nil
}

// Register binds a handler to a job type. Registration happens during wiring,
// before jobs are enqueued.
func (r *Runner) Register(jobType string, handler Handler) error {
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerRegistered, jobType)
	}
	r.handlers[jobType] = handler
	return nil
}

// Enqueue submits a job for asynchronous execution.
func (r *Runner) Enqueue(ctx context.Context, jobType string, documentID core.ID) (core.ID, error) {
	handler, ok := r.handlers[jobType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRunnerClosed
	}
	job := &Job{
		Id:         core.NewID(),
		Type:       jobType,
		DocumentId: documentID,
		Status:     StatusPending,
		EnqueuedAt: time.Now().UTC(),
	}
	r.jobs[job.Id] = job
	r.mu.Unlock()

	// The job outlives the caller's request scope, so it runs detached from
	// the submission context.
	err := r.pool.Submit(func() {
		r.run(job.Id, handler)
	})
	if err != nil {
		r.finish(job.Id, err)
		return "", err
	}

	return job.Id, nil
}

// Status returns a snapshot of the job.
func (r *Runner) Status(jobID core.ID) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return *job, nil
}

// Close stops accepting jobs and waits for in-flight jobs to finish.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	return r.pool.ReleaseTimeout(releaseTimeout)
}

func (r *Runner) run(jobID core.ID, handler Handler) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if !ok {
		r.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	documentID := job.DocumentId
	jobType := job.Type
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.finish(jobID, fmt.Errorf("job panicked: %v", rec))
			r.logger.Error("job panicked", "job", jobID, "type", jobType, "panic", rec)
		}
	}()

	err := handler(context.Background(), documentID)
	r.finish(jobID, err)

	if err != nil {
		r.logger.Error("job failed", "job", jobID, "type", jobType, "document", documentID, "err", err)
	} else {
		r.logger.Debug("job finished", "job", jobID, "type", jobType, "document", documentID)
	}
}

func (r *Runner) finish(jobID core.ID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}
	job.FinishedAt = time.Now().UTC()
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusSuccess
	}
}
