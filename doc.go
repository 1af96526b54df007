// Package jobscheduler provides a categorized job scheduler with structured concurrency.
//
// Work is partitioned into a fixed set of thread categories. Each category owns a
// FIFO queue and a fixed number of pre-spawned workers, so a slow category never
// delays another. Jobs are submitted without blocking and return a single-use
// handle; a scope joins every job posted through it before returning, which lets
// jobs safely write to variables of the enclosing function.
//
// # Quick Start
//
// Declare the categories once and build a scheduler from them:
//
//	type Category int
//
//	const (
//		Logger Category = iota
//		GameObject
//	)
//
//	scheduler := jobscheduler.NewScheduler(jobscheduler.Descriptors[Category]{
//		{Category: Logger, Threads: 1},
//		{Category: GameObject, Threads: 4},
//	})
//	defer scheduler.Close()
//
// Submit a job and wait for its result:
//
//	handle := jobscheduler.ScheduleJob(scheduler, GameObject, func(ctx context.Context) (int, error) {
//		return 42, nil
//	})
//	value, err := handle.Wait()
//
// Fan out inside a scope; Scoped returns after every job finished:
//
//	results := make([]int, len(inputs))
//	err := scheduler.Scoped(func(s *jobscheduler.ScopedScheduler[Category]) {
//		for i, in := range inputs {
//			s.PostTask(GameObject, func(ctx context.Context) {
//				results[i] = process(in)
//			})
//		}
//	})
//
// # Key Concepts
//
// Thread category: a named partition of the workers with its own queue.
// Declared once; submitting to an undeclared category panics.
//
// JobHandle: the receipt of a submitted job. Wait blocks until the job ran and
// may be called once. A job that panics resolves its handle with a *PanicError
// instead of killing its worker.
//
// ScopedScheduler: a join barrier. The join is unconditional, including when the
// scope function panics.
//
// # Shutdown
//
// Close sets every category's stop flag and waits for all workers. Jobs queued
// before Close still run (drain-before-stop); submissions after Close resolve
// with ErrSchedulerClosed.
package jobscheduler
