package store

import (
	"context"
	"sync"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
)

// State is the lifecycle of one mutation.
type State string

const (
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled-back"
)

// Task tracks one optimistic mutation. The in-memory change is already
// visible when the Task is returned; Wait reports whether the storage
// backend accepted it.
type Task[T any] struct {
	// Record is the record as applied locally. For deletes it is the
	// removed record.
	Record T
	Table  string
	Op     storage.Op

	done  chan struct{}
	mu    sync.Mutex
	state State
	err   error
}

func newTask[T any](table string, op storage.Op, rec T) *Task[T] {
	return &Task[T]{
		Record: rec,
		Table:  table,
		Op:     op,
		done:   make(chan struct{}),
		state:  StatePending,
	}
}

// Done is closed once the Task leaves the pending state.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err is the backend error of a rolled-back Task.
func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the Task settles or ctx is done. Returning early on
// ctx does not cancel the mutation.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Record, t.Err()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (t *Task[T]) finish(state State, err error) {
	t.mu.Lock()
	t.state = state
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
