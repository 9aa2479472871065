package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Task purges one kind of stale row. It returns how many rows it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// Observer is told how many rows each task removed. metrics.Collectors
// satisfies it.
type Observer interface {
	Swept(kind string, n int64)
}

// Sweeper periodically runs purge tasks.
type Sweeper struct {
	tasks    []Task
	interval time.Duration
	observer Observer
	now      func() time.Time
}

// New creates a new Sweeper. A nil observer is allowed.
func New(interval time.Duration, observer Observer, tasks ...Task) *Sweeper {
	return &Sweeper{
		tasks:    tasks,
		interval: interval,
		observer: observer,
		now:      time.Now,
	}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("sweeper started", "interval", s.interval.String(), "tasks", len(s.tasks))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs every task once. A failing task is logged and does not stop
// the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		n, err := task.Run(ctx, now)
		if err != nil {
			slog.Error("sweeper: task failed", "task", task.Name, "error", err)
			continue
		}
		if n > 0 {
			slog.Info("sweeper: purged rows", "task", task.Name, "count", n)
		}
		if s.observer != nil {
			s.observer.Swept(task.Name, n)
		}
	}
}

// Purger is the shape shared by session.Store.DeleteExpired and
// workspace.Repository.DeleteExpiredInvites.
type Purger func(ctx context.Context, before time.Time) (int64, error)

// Retain builds a Task that purges rows older than now minus retention.
func Retain(name string, retention time.Duration, purge Purger) Task {
	return Task{
		Name: name,
		Run: func(ctx context.Context, now time.Time) (int64, error) {
			return purge(ctx, now.Add(-retention))
		},
	}
}
