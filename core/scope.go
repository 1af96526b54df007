package core

import (
	"errors"
	"sync"
)

// scopedHandle is a JobHandle as seen by the scope that joins it.
type scopedHandle interface {
	join() error
}

// join blocks until the job resolved and reports its error without consuming
// the handle, so a caller may still Wait on it.
func (h *JobHandle[T]) join() error {
	<-h.done
	return h.err
}

// ScopedScheduler is a join barrier over a Scheduler for one call of Scoped.
// Every job posted through it has completed before Scoped returns, so jobs may
// capture variables of the enclosing function and write to them.
//
// A ScopedScheduler must not be used after its Scoped call returned.
type ScopedScheduler[C comparable] struct {
	scheduler *Scheduler[C]

	mu      sync.Mutex
	handles []scopedHandle
	closed  bool
}

// Scoped calls fn with a ScopedScheduler and returns only after every job posted
// through it has finished, including jobs posted by those jobs. The join runs on
// every exit path: if fn panics, outstanding jobs are joined before the panic
// continues.
//
// The returned error joins the failures of all jobs in the scope.
//
// Calling Scoped from a job whose category has no other free worker, and posting
// scoped jobs to that same category, deadlocks the category.
func (s *Scheduler[C]) Scoped(fn func(scope *ScopedScheduler[C])) (err error) {
	scope := &ScopedScheduler[C]{scheduler: s}
	defer func() {
		err = scope.join()
	}()

	fn(scope)
	return nil
}

// Scheduler returns the scheduler the scope posts to.
func (sc *ScopedScheduler[C]) Scheduler() *Scheduler[C] {
	return sc.scheduler
}

// PostTask submits task to category; the enclosing Scoped call waits for it.
func (sc *ScopedScheduler[C]) PostTask(category C, task Task) {
	if task == nil {
		panic("ScopedScheduler: task must not be nil")
	}
	sc.track(func() scopedHandle {
		return sc.scheduler.PostTask(category, task)
	})
}

// ScopedScheduleJob submits fn through scope and returns its handle. The
// enclosing Scoped call waits for the job whether or not the handle is waited on.
func ScopedScheduleJob[C comparable, T any](scope *ScopedScheduler[C], category C, fn TaskWithResult[T]) *JobHandle[T] {
	var handle *JobHandle[T]
	scope.track(func() scopedHandle {
		handle = ScheduleJob(scope.scheduler, category, fn)
		return handle
	})
	return handle
}

// track submits under the scope lock so a submission cannot race the final join.
func (sc *ScopedScheduler[C]) track(submit func() scopedHandle) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		panic("ScopedScheduler: scope used after return")
	}
	sc.handles = append(sc.handles, submit())
}

// Len returns the number of jobs posted through the scope so far.
func (sc *ScopedScheduler[C]) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.handles)
}

// join waits for every tracked handle. Handles added while joining (by jobs of
// this scope) are picked up by the next pass; the scope closes once a pass finds
// nothing new.
func (sc *ScopedScheduler[C]) join() error {
	var errs []error
	joined := 0

	for {
		sc.mu.Lock()
		if joined == len(sc.handles) {
			sc.closed = true
			sc.mu.Unlock()
			return errors.Join(errs...)
		}
		pending := sc.handles[joined:]
		sc.mu.Unlock()

		for _, h := range pending {
			if err := h.join(); err != nil {
				errs = append(errs, err)
			}
			joined++
		}
	}
}
