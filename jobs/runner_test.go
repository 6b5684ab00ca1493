package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
)

const waitFor = 5 * time.Second

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestEnqueueRunsHandler(t *testing.T) {
	r := newTestRunner(t)

	var mu sync.Mutex
	var got []core.ID
	require.NoError(t, r.Register("parse", func(ctx context.Context, documentID core.ID) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, documentID)
		return nil
	}))

	docID := core.NewID()
	jobID, err := r.Enqueue(context.Background(), "parse", docID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := r.Status(jobID)
		return err == nil && job.Status == StatusSuccess
	}, waitFor, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []core.ID{docID}, got)
}

func TestEnqueueUnknownType(t *testing.T) {
	r := newTestRunner(t)

	_, err := r.Enqueue(context.Background(), "nope", core.NewID())
	assert.ErrorIs(t, err, ErrUnknownJobType)
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRunner(t)

	noop := func(ctx context.Context, documentID core.ID) error { return nil }
	require.NoError(t, r.Register("embed", noop))
	assert.ErrorIs(t, r.Register("embed", noop), ErrHandlerRegistered)
}

func TestFailedJobRecordsError(t *testing.T) {
	r := newTestRunner(t)

	require.NoError(t, r.Register("parse", func(ctx context.Context, documentID core.ID) error {
		return errors.New("provider unavailable")
	}))

	jobID, err := r.Enqueue(context.Background(), "parse", core.NewID())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := r.Status(jobID)
		return err == nil && job.Status == StatusFailed
	}, waitFor, 10*time.Millisecond)

	job, err := r.Status(jobID)
	require.NoError(t, err)
	assert.Contains(t, job.Error, "provider unavailable")
	assert.False(t, job.FinishedAt.IsZero())
}

func TestPanickingHandlerMarksFailed(t *testing.T) {
	r := newTestRunner(t)

	require.NoError(t, r.Register("parse", func(ctx context.Context, documentID core.ID) error {
		panic("boom")
	}))

	jobID, err := r.Enqueue(context.Background(), "parse", core.NewID())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := r.Status(jobID)
		return err == nil && job.Status == StatusFailed
	}, waitFor, 10*time.Millisecond)
}

func TestStatusUnknownJob(t *testing.T) {
	r := newTestRunner(t)

	_, err := r.Status(core.NewID())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEnqueueAfterClose(t *testing.T) {
	r, err := NewRunner(WithPoolSize(1))
	require.NoError(t, err)
	require.NoError(t, r.Register("parse", func(ctx context.Context, documentID core.ID) error { return nil }))
	require.NoError(t, r.Close())

	_, err = r.Enqueue(context.Background(), "parse", core.NewID())
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestCloseWaitsForRunningJobs(t *testing.T) {
	r, err := NewRunner(WithPoolSize(1))
	require.NoError(t, err)

	done := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, r.Register("slow", func(ctx context.Context, documentID core.ID) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		close(done)
		return nil
	}))

	_, err = r.Enqueue(context.Background(), "slow", core.NewID())
	require.NoError(t, err)

	<-started
	require.NoError(t, r.Close())

	select {
	case <-done:
	default:
		t.Fatal("Close returned before the running job finished")
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(42).String())
}
