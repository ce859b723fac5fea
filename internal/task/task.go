// Package task provides cooperatively cancellable units of concurrent work
// and an owned collection of them with a bulk cancel-and-join shutdown.
//
// Every concurrent piece of phantom (socket readers, the router, per-client
// relays) is spawned through this package so that shutdown follows one
// protocol: cancel, then join, top-down.
package task

import (
	"context"
	"sync"
)

// Cancellable is something that can be asked to stop and then waited on.
// Cancel is idempotent and non-blocking; it requests termination but the
// work stops only at its own suspension points. Join blocks the caller
// until the work has fully stopped.
type Cancellable interface {
	Cancel()
	Join()
}

// Task is a goroutine paired with a cancellation context and a join channel.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Spawn starts body on its own goroutine. The context passed to body is
// cancelled when Cancel is called; body must observe ctx.Done at its
// blocking points for cancellation to take effect.
func Spawn(body func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()
		body(ctx)
	}()

	return t
}

// Cancel requests the task to stop. Safe to call multiple times.
func (t *Task) Cancel() {
	t.cancel()
}

// Join blocks until the task's body has returned.
func (t *Task) Join() {
	<-t.done
}

// Manager owns a set of cancellable tasks and shuts them all down together.
// Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	tasks []Cancellable
}

// NewManager creates an empty task manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add registers a task with the manager.
func (m *Manager) Add(t Cancellable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
}

// Len returns the number of registered tasks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Shutdown cancels every registered task and then joins each in turn.
// The task list is swapped out under the lock so the lock is never held
// while joining. Safe to call with no tasks registered, and repeatable:
// a second call finds an empty list and returns immediately.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	for _, t := range tasks {
		t.Join()
	}
}
