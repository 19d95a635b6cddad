// Package scheduler は登録されたタスクを一定間隔で実行します。
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Task は定期実行されるジョブです。
type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler は1つのタスクを interval ごとに実行します。
// 実行は常に1つのゴルーチンで行われるため、前回の実行が終わるまで次の実行は始まりません。
type Scheduler struct {
	task     Task
	interval time.Duration
	runNow   bool
}

// Option は Scheduler の挙動を変更します。
type Option func(*Scheduler)

// WithImmediateRun は最初のティックを待たずに起動直後に1回実行します。
func WithImmediateRun() Option {
	return func(s *Scheduler) { s.runNow = true }
}

// New は Scheduler を生成します。interval が0以下の場合は1分になります。
func New(task Task, interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Scheduler{task: task, interval: interval}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start は ctx がキャンセルされるまでタスクを実行し続けます。ブロックします。
// タスクのエラーはログに出力し、スケジュールは継続します。
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", "task", s.task.Name(), "interval", s.interval)
	defer slog.Info("scheduler stopped", "task", s.task.Name())

	if s.runNow {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled task panicked", "task", s.task.Name(), "panic", r)
		}
	}()
	if err := s.task.Run(ctx); err != nil {
		slog.Error("scheduled task failed", "task", s.task.Name(), "error", err, "elapsed", time.Since(start))
		return
	}
	slog.Debug("scheduled task finished", "task", s.task.Name(), "elapsed", time.Since(start))
}
