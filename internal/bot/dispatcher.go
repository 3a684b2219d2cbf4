package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jokebot/internal/metrics"
)

// TaskStatus is the lifecycle state of a detached task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskRunning  TaskStatus = "running"
	TaskComplete TaskStatus = "complete"
	TaskFailed   TaskStatus = "failed"
)

// Task is a snapshot of a submitted task.
type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	DoneAt    time.Time  `json:"done_at,omitempty"`
}

// Dispatcher runs fire-and-forget work such as webhook replies. The
// submitter gets an id back and never observes the result; Wait lets
// shutdown drain what is still in flight.
type Dispatcher struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tasks:  make(map[string]*Task),
		logger: logger,
	}
}

// Submit starts fn detached from ctx's cancellation (values are kept) and
// returns the task id.
func (d *Dispatcher) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) string {
	id := uuid.NewString()
	task := &Task{
		ID:        id,
		Name:      name,
		Status:    TaskPending,
		StartedAt: time.Now(),
	}

	d.mu.Lock()
	d.tasks[id] = task
	d.mu.Unlock()

	d.wg.Add(1)
	metrics.DispatchInflight.Inc()
	detached := context.WithoutCancel(ctx)

	go func() {
		defer d.wg.Done()
		defer metrics.DispatchInflight.Dec()

		d.mu.Lock()
		task.Status = TaskRunning
		d.mu.Unlock()

		err := fn(detached)

		d.mu.Lock()
		task.DoneAt = time.Now()
		if err != nil {
			task.Status = TaskFailed
			task.Error = err.Error()
		} else {
			task.Status = TaskComplete
		}
		d.mu.Unlock()

		if err != nil {
			d.logger.Warn("dispatched task failed", "id", id, "name", name, "err", err)
		} else {
			d.logger.Debug("dispatched task done", "id", id, "name", name)
		}
	}()

	return id
}

// Get returns a copy of the task.
func (d *Dispatcher) Get(id string) (Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// List returns copies of all tracked tasks.
func (d *Dispatcher) List() []Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, *t)
	}
	return out
}

// Active counts tasks that have not finished.
func (d *Dispatcher) Active() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, t := range d.tasks {
		if t.Status == TaskPending || t.Status == TaskRunning {
			n++
		}
	}
	return n
}

// Claimed reports whether a task named name is in flight or finished
// without error.
func (d *Dispatcher) Claimed(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.tasks {
		if t.Name == name && t.Status != TaskFailed {
			return true
		}
	}
	return false
}

// Clean forgets finished tasks older than maxAge and returns how many.
func (d *Dispatcher) Clean(maxAge time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, t := range d.tasks {
		if (t.Status == TaskComplete || t.Status == TaskFailed) && t.DoneAt.Before(cutoff) {
			delete(d.tasks, id)
			removed++
		}
	}
	return removed
}

// Wait blocks until every submitted task has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
