package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockTask は実行回数を数えるタスクです。
type mockTask struct {
	runs    atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	err     error
	panics  bool
	delay   time.Duration
}

func (m *mockTask) Name() string { return "mock" }

func (m *mockTask) Run(ctx context.Context) error {
	if m.running.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.running.Add(-1)
	m.runs.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.panics {
		panic("boom")
	}
	return m.err
}

func runFor(s *Scheduler, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	<-done
}

func TestNew_DefaultInterval(t *testing.T) {
	t.Parallel()

	s := New(&mockTask{}, 0)
	assert.Equal(t, time.Minute, s.interval)
	assert.False(t, s.runNow)

	s = New(&mockTask{}, time.Second, WithImmediateRun())
	assert.True(t, s.runNow)
}

func TestScheduler_RunsOnEveryTick(t *testing.T) {
	t.Parallel()

	task := &mockTask{}
	runFor(New(task, 20*time.Millisecond), 110*time.Millisecond)

	assert.GreaterOrEqual(t, task.runs.Load(), int32(3))
}

func TestScheduler_ImmediateRun(t *testing.T) {
	t.Parallel()

	task := &mockTask{}
	runFor(New(task, time.Hour, WithImmediateRun()), 30*time.Millisecond)

	assert.Equal(t, int32(1), task.runs.Load())
}

func TestScheduler_ErrorsAndPanicsDoNotStop(t *testing.T) {
	t.Parallel()

	for _, task := range []*mockTask{{err: errors.New("provider down")}, {panics: true}} {
		runFor(New(task, 10*time.Millisecond), 80*time.Millisecond)
		assert.GreaterOrEqual(t, task.runs.Load(), int32(2))
	}
}

func TestScheduler_NoOverlap(t *testing.T) {
	t.Parallel()

	task := &mockTask{delay: 25 * time.Millisecond}
	runFor(New(task, 5*time.Millisecond), 120*time.Millisecond)

	assert.False(t, task.overlap.Load())
	assert.GreaterOrEqual(t, task.runs.Load(), int32(2))
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	t.Parallel()

	task := &mockTask{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		New(task, time.Millisecond, WithImmediateRun()).Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Equal(t, int32(0), task.runs.Load())
}
