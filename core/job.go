package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// job is a queued unit of work. The body behind run executes at most once even
// if an interceptor calls next repeatedly; finish is invoked exactly once
// afterwards (or instead of run, for a rejected job) and resolves the handle.
type job struct {
	id     JobID
	name   string
	run    func(ctx context.Context) error
	finish func(err error)
}

// JobHandle is the caller-facing receipt for a submitted job.
// Wait may be called at most once; later calls return ErrHandleConsumed.
type JobHandle[T any] struct {
	id     JobID
	done   chan struct{}
	once   sync.Once
	waited atomic.Bool

	value T
	err   error
}

func newJobHandle[T any](id JobID) *JobHandle[T] {
	return &JobHandle[T]{id: id, done: make(chan struct{})}
}

// ID returns the ID of the job behind this handle.
func (h *JobHandle[T]) ID() JobID {
	return h.id
}

// Done is closed once the job's result is available.
func (h *JobHandle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job has finished and returns its result.
// A job that panicked resolves with a *PanicError.
func (h *JobHandle[T]) Wait() (T, error) {
	if !h.waited.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrHandleConsumed
	}
	<-h.done

	value, err := h.value, h.err
	var zero T
	h.value = zero
	return value, err
}

// resolve stores the result exactly once and wakes the waiter.
func (h *JobHandle[T]) resolve(value T, err error) bool {
	resolved := false
	h.once.Do(func() {
		h.value = value
		h.err = err
		close(h.done)
		resolved = true
	})
	return resolved
}

// newJob pairs fn with a fresh handle. run invokes fn only on its first call
// and only before finish; the result state is guarded by mu so an interceptor
// that runs next on another goroutine cannot race finish.
func newJob[T any](name string, fn TaskWithResult[T]) (*job, *JobHandle[T]) {
	id := GenerateJobID()
	handle := newJobHandle[T](id)

	var (
		mu       sync.Mutex
		value    T
		started  bool
		ran      bool
		finished bool
	)
	j := &job{
		id:   id,
		name: name,
		run: func(ctx context.Context) error {
			mu.Lock()
			if started || finished {
				mu.Unlock()
				return ErrJobAlreadyRun
			}
			started = true
			mu.Unlock()

			v, err := fn(ctx)

			mu.Lock()
			if !finished {
				value = v
				ran = true
			}
			mu.Unlock()
			return err
		},
		finish: func(err error) {
			mu.Lock()
			finished = true
			if err == nil && !ran {
				err = ErrJobSkipped
			}
			v := value
			mu.Unlock()
			handle.resolve(v, err)
		},
	}
	return j, handle
}
