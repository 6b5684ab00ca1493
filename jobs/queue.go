// Package jobs provides asynchronous background job execution for document
// processing. Jobs are dispatched by type to registered handlers and run on a
// shared worker pool with at-least-once semantics; handlers must be
// idempotent.
package jobs

import (
	"context"
	"time"

	"github.com/poiesic/corpus/core"
)

// Status is the lifecycle state of a submitted job.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusFailed
)

// String returns the lowercase wire representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler executes one job against a document. Handlers run concurrently and
// may be invoked more than once for the same document; they must be
// idempotent.
type Handler func(ctx context.Context, documentID core.ID) error

// Job is a point-in-time snapshot of a submitted job.
type Job struct {
	Id         core.ID
	Type       string
	DocumentId core.ID
	Status     Status
	Error      string
	EnqueuedAt time.Time
	FinishedAt time.Time
}

// Queue accepts background jobs and reports their progress.
type Queue interface {
	// Enqueue submits a job of the given type for the document and returns
	// the job id. Returns ErrUnknownJobType when no handler is registered.
	Enqueue(ctx context.Context, jobType string, documentID core.ID) (core.ID, error)

	// Status returns a snapshot of the job.
	// Returns ErrJobNotFound for unknown ids.
	Status(jobID core.ID) (Job, error)

	// Close stops accepting jobs and waits for running jobs to finish.
	Close() error
}
