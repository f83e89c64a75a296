package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
)

type staticLister struct {
	tasks []*domain.Task
	err   error
}

func (l staticLister) ListScheduled(context.Context) ([]*domain.Task, error) {
	return l.tasks, l.err
}

type countingRunner struct {
	runs    atomic.Int32
	release chan struct{}
	err     error
}

func (r *countingRunner) Run(ctx context.Context, _ *domain.Task) error {
	r.runs.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.err
}

func TestScheduler_StartLoadsScheduledTasks(t *testing.T) {
	lister := staticLister{tasks: []*domain.Task{
		{ID: "t1", Owner: "alice", Schedule: "*/5 * * * *"},
		{ID: "t2", Owner: "bob", Schedule: "@hourly"},
		{ID: "bad", Owner: "bob", Schedule: "not a cron"},
	}}
	s := NewScheduler(lister, &countingRunner{}, nil, time.Second)

	require.NoError(t, s.Start(t.Context()))
	defer s.Stop()

	assert.Equal(t, 2, s.Len())
	_, ok := s.entry("bad")
	assert.False(t, ok)
}

func TestScheduler_StartFailsWhenStoreFails(t *testing.T) {
	s := NewScheduler(staticLister{err: errors.New("db down")}, &countingRunner{}, nil, time.Second)
	assert.Error(t, s.Start(t.Context()))
}

func TestScheduler_ScheduleRejectsBadSpec(t *testing.T) {
	s := NewScheduler(staticLister{}, &countingRunner{}, nil, time.Second)

	assert.Error(t, s.Schedule(&domain.Task{ID: "t1", Schedule: "every tuesday"}))
	assert.Error(t, s.Schedule(&domain.Task{ID: "t2"}))
	assert.Zero(t, s.Len())
}

func TestScheduler_RescheduleReplaces(t *testing.T) {
	s := NewScheduler(staticLister{}, &countingRunner{}, nil, time.Second)

	require.NoError(t, s.Schedule(&domain.Task{ID: "t1", Schedule: "@hourly"}))
	require.NoError(t, s.Schedule(&domain.Task{ID: "t1", Schedule: "@daily"}))
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_JobRunsTask(t *testing.T) {
	runner := &countingRunner{err: errors.New("llm down")}
	s := NewScheduler(staticLister{}, runner, nil, time.Second)
	require.NoError(t, s.Schedule(&domain.Task{ID: "t1", Schedule: "@hourly"}))

	e, ok := s.entry("t1")
	require.True(t, ok)
	e.WrappedJob.Run()
	e.WrappedJob.Run()

	assert.Equal(t, int32(2), runner.runs.Load())
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	runner := &countingRunner{release: make(chan struct{})}
	s := NewScheduler(staticLister{}, runner, nil, 5*time.Second)
	require.NoError(t, s.Schedule(&domain.Task{ID: "t1", Schedule: "@hourly"}))

	e, ok := s.entry("t1")
	require.True(t, ok)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.WrappedJob.Run()
	}()
	require.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	// still running, so this tick is dropped
	e.WrappedJob.Run()
	assert.Equal(t, int32(1), runner.runs.Load())

	close(runner.release)
	wg.Wait()
}
