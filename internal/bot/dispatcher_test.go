package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitAll(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestDispatcher_Submit(t *testing.T) {
	d := NewDispatcher(testLogger())

	id := d.Submit(context.Background(), "ok task", func(ctx context.Context) error {
		return nil
	})
	if id == "" {
		t.Fatal("expected non-empty task ID")
	}
	waitAll(t, d)

	task, ok := d.Get(id)
	if !ok {
		t.Fatal("task not found")
	}
	if task.Status != TaskComplete {
		t.Errorf("expected complete, got %s", task.Status)
	}
	if task.DoneAt.IsZero() {
		t.Error("expected DoneAt to be set")
	}
}

func TestDispatcher_SubmitFailed(t *testing.T) {
	d := NewDispatcher(testLogger())

	id := d.Submit(context.Background(), "failing task", func(ctx context.Context) error {
		return errors.New("something went wrong")
	})
	waitAll(t, d)

	task, _ := d.Get(id)
	if task.Status != TaskFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
	if task.Error != "something went wrong" {
		t.Errorf("unexpected error text %q", task.Error)
	}
}

func TestDispatcher_DetachedFromCancel(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var sawErr error
	id := d.Submit(ctx, "outlives request", func(ctx context.Context) error {
		<-release
		sawErr = ctx.Err()
		return nil
	})
	cancel()
	close(release)
	waitAll(t, d)

	if sawErr != nil {
		t.Errorf("task context should not be cancelled, got %v", sawErr)
	}
	if task, _ := d.Get(id); task.Status != TaskComplete {
		t.Errorf("expected complete, got %s", task.Status)
	}
}

func TestDispatcher_ListAndActive(t *testing.T) {
	d := NewDispatcher(testLogger())

	block := make(chan struct{})
	d.Submit(context.Background(), "blocked", func(ctx context.Context) error {
		<-block
		return nil
	})
	d.Submit(context.Background(), "quick", func(ctx context.Context) error { return nil })

	if got := len(d.List()); got != 2 {
		t.Errorf("expected 2 tasks, got %d", got)
	}
	if d.Active() < 1 {
		t.Error("expected the blocked task to be active")
	}

	close(block)
	waitAll(t, d)
	if got := d.Active(); got != 0 {
		t.Errorf("expected 0 active after wait, got %d", got)
	}
}

func TestDispatcher_Claimed(t *testing.T) {
	d := NewDispatcher(testLogger())
	release := make(chan struct{})
	d.Submit(context.Background(), "reply:1", func(context.Context) error {
		<-release
		return nil
	})
	d.Submit(context.Background(), "reply:2", func(context.Context) error {
		return errors.New("post failed")
	})

	if !d.Claimed("reply:1") {
		t.Error("in-flight task should be claimed")
	}
	close(release)
	waitAll(t, d)

	if !d.Claimed("reply:1") {
		t.Error("completed task should stay claimed")
	}
	if d.Claimed("reply:2") {
		t.Error("failed task should not be claimed")
	}
	if d.Claimed("reply:3") {
		t.Error("unknown task should not be claimed")
	}
}

func TestDispatcher_Clean(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Submit(context.Background(), "a", func(ctx context.Context) error { return nil })
	d.Submit(context.Background(), "b", func(ctx context.Context) error { return errors.New("x") })
	waitAll(t, d)

	if removed := d.Clean(time.Hour); removed != 0 {
		t.Errorf("fresh tasks should survive, removed %d", removed)
	}
	if removed := d.Clean(0); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if len(d.List()) != 0 {
		t.Error("expected empty list after clean")
	}
}

func TestDispatcher_WaitHonoursContext(t *testing.T) {
	d := NewDispatcher(testLogger())
	block := make(chan struct{})
	defer close(block)
	d.Submit(context.Background(), "stuck", func(ctx context.Context) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
