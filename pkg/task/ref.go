package task

import (
	"context"

	"github.com/google/uuid"
)

// ObjectRef is a handle to the future result of a submitted task. A ref
// resolves exactly once; Get may be called any number of times afterwards.
type ObjectRef[T any] struct {
	id   uuid.UUID
	name string
	done chan struct{}

	// value and err are written once, before done is closed.
	value T
	err   error
}

func newRef[T any](name string) *ObjectRef[T] {
	return &ObjectRef[T]{
		id:   uuid.New(),
		name: name,
		done: make(chan struct{}),
	}
}

// resolve publishes the task outcome. Must be called exactly once.
func (r *ObjectRef[T]) resolve(value T, err error) {
	r.value = value
	r.err = err
	close(r.done)
}

// ID returns the unique id of the underlying task.
func (r *ObjectRef[T]) ID() uuid.UUID {
	return r.id
}

// Done returns a channel closed when the task has finished, successfully
// or not. It can be used in select statements alongside Get.
func (r *ObjectRef[T]) Done() <-chan struct{} {
	return r.done
}

// Err returns the task error. It is nil until the ref resolves, so callers
// should only consult it after Done is closed.
func (r *ObjectRef[T]) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Get blocks until the task finishes and returns its result. A cancelled
// context aborts only the wait, never the task itself, and a later Get
// still observes the result.
func (r *ObjectRef[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.done:
		return r.value, r.err
	}
}

// label names the ref in error messages: the submit name when one was
// given, the task id otherwise.
func (r *ObjectRef[T]) label() string {
	if r.name != "" {
		return r.name
	}
	return r.id.String()
}
