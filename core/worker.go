package core

import (
	"context"
	"runtime/debug"
	"time"
)

// workerLoop is the main loop for each worker of a category.
func (s *Scheduler[C]) workerLoop(pool *categoryPool, workerID int) {
	defer s.wg.Done()

	for {
		j, ok := pool.queue.next()
		if !ok {
			// Queue stopped and drained
			s.logger.Debug("worker exited", F("scheduler", s.id), F("category", pool.name), F("worker", workerID))
			return
		}
		s.execute(pool, workerID, j)
	}
}

// execute runs one job inside a fault boundary. The queue lock is never held
// here, and the job's handle is always resolved before execute returns.
// Bookkeeping happens before resolution so a waiter observes it.
func (s *Scheduler[C]) execute(pool *categoryPool, workerID int, j *job) {
	info := JobInfo{
		ID:          j.id,
		Name:        j.name,
		Category:    pool.name,
		WorkerID:    workerID,
		SchedulerID: s.id,
	}
	ctx := withJobInfo(s.baseCtx, info)
	run := chainInterceptors(s.interceptors, info, j.run)

	startedAt := time.Now()
	panicked := false
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				stack := debug.Stack()
				err = &PanicError{Value: r, Stack: stack}
				s.reportPanic(ctx, pool.name, workerID, r, stack)
			}
		}()
		err = run(ctx)
	}()

	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)
	pool.queue.done(err != nil)
	s.metrics.RecordJobDuration(pool.name, duration)
	s.history.Add(JobExecutionRecord{
		JobID:      j.id,
		Name:       j.name,
		Category:   pool.name,
		WorkerID:   workerID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   duration,
		Failed:     err != nil,
		Panicked:   panicked,
	})

	j.finish(err)
}

// reportPanic forwards a recovered panic to the metrics and the panic handler.
// A panicking handler must not take the worker down with it.
func (s *Scheduler[C]) reportPanic(ctx context.Context, category string, workerID int, value any, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handler panicked", F("category", category), F("panic", r))
		}
	}()
	s.metrics.RecordJobPanic(category, value)
	s.panicHandler.HandlePanic(ctx, category, workerID, value, stack)
}
