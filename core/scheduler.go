package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// categoryPool is the queue and worker set of one thread category.
type categoryPool struct {
	name    string
	workers int
	queue   *jobQueue
}

// Scheduler owns a fixed set of thread categories, each with its own FIFO
// queue and pre-spawned workers.
//
// Jobs within one category are dequeued in submission order. Categories are
// independent: a busy category never delays another one.
//
// Close must not be called from a job running on the same Scheduler; the
// calling worker would wait for itself.
type Scheduler[C comparable] struct {
	id      string
	pools   map[C]*categoryPool
	order   []C
	baseCtx context.Context

	wg        sync.WaitGroup
	state     atomic.Int32
	closeOnce sync.Once

	logger             Logger
	panicHandler       PanicHandler
	metrics            Metrics
	rejectedJobHandler RejectedJobHandler
	interceptors       []Interceptor
	history            *executionHistory
}

// NewScheduler creates a Scheduler with default handlers and starts its workers.
// It panics if the descriptor set is malformed (see ValidateDescriptors).
func NewScheduler[C comparable](descriptor PoolDescriptor[C]) *Scheduler[C] {
	return NewSchedulerWithConfig(descriptor, DefaultSchedulerConfig())
}

// NewSchedulerWithConfig creates a Scheduler and starts its workers.
// It panics if the descriptor set is malformed (see ValidateDescriptors).
func NewSchedulerWithConfig[C comparable](descriptor PoolDescriptor[C], config *SchedulerConfig) *Scheduler[C] {
	if descriptor == nil {
		panic("Scheduler: descriptor must not be nil")
	}
	descriptors := descriptor.CategoryDescriptors()
	if err := ValidateDescriptors(descriptors); err != nil {
		panic(fmt.Sprintf("Scheduler: %v", err))
	}

	if config == nil {
		config = DefaultSchedulerConfig()
	}

	s := &Scheduler[C]{
		id:                 config.Name,
		pools:              make(map[C]*categoryPool, len(descriptors)),
		order:              make([]C, 0, len(descriptors)),
		baseCtx:            context.Background(),
		logger:             config.Logger,
		panicHandler:       config.PanicHandler,
		metrics:            config.Metrics,
		rejectedJobHandler: config.RejectedJobHandler,
		interceptors:       append([]Interceptor(nil), config.Interceptors...),
		history:            newExecutionHistory(config.HistoryCapacity),
	}

	// Use defaults if not provided
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = NewNoOpLogger()
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{Logger: s.logger}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.rejectedJobHandler == nil {
		s.rejectedJobHandler = &DefaultRejectedJobHandler{Logger: s.logger}
	}

	s.state.Store(int32(StateRunning))

	for _, d := range descriptors {
		pool := &categoryPool{
			name:    CategoryName(d.Category),
			workers: d.Threads,
			queue:   newJobQueue(),
		}
		s.pools[d.Category] = pool
		s.order = append(s.order, d.Category)

		for i := 0; i < d.Threads; i++ {
			s.wg.Add(1)
			go s.workerLoop(pool, i)
		}
	}

	s.logger.Info("scheduler started",
		F("scheduler", s.id),
		F("categories", len(descriptors)),
		F("workers", s.WorkerCount()))

	return s
}

// ID returns the scheduler's name, or its generated UUID if none was configured.
func (s *Scheduler[C]) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Scheduler[C]) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

// Categories returns the configured categories in declaration order.
func (s *Scheduler[C]) Categories() []C {
	out := make([]C, len(s.order))
	copy(out, s.order)
	return out
}

// WorkerCount returns the total number of workers across all categories.
func (s *Scheduler[C]) WorkerCount() int {
	n := 0
	for _, pool := range s.pools {
		n += pool.workers
	}
	return n
}

// PostTask submits a fire-and-forget task. The returned handle resolves when the
// task has run and may be ignored.
func (s *Scheduler[C]) PostTask(category C, task Task) *JobHandle[struct{}] {
	return s.PostTaskNamed(category, "", task)
}

// PostTaskNamed submits a task with a caller-provided display name.
func (s *Scheduler[C]) PostTaskNamed(category C, name string, task Task) *JobHandle[struct{}] {
	if task == nil {
		panic("Scheduler: task must not be nil")
	}
	return scheduleNamed(s, category, resolveJobName(task, name), func(ctx context.Context) (struct{}, error) {
		task(ctx)
		return struct{}{}, nil
	})
}

// ScheduleJob submits fn to category and returns a handle for its result.
// It never blocks beyond the category queue's lock. Submitting to a category
// that was not configured panics.
func ScheduleJob[C comparable, T any](s *Scheduler[C], category C, fn TaskWithResult[T]) *JobHandle[T] {
	return ScheduleNamedJob(s, category, "", fn)
}

// ScheduleNamedJob is ScheduleJob with a caller-provided display name.
func ScheduleNamedJob[C comparable, T any](s *Scheduler[C], category C, name string, fn TaskWithResult[T]) *JobHandle[T] {
	if fn == nil {
		panic("Scheduler: job must not be nil")
	}
	return scheduleNamed(s, category, resolveJobName(fn, name), fn)
}

func scheduleNamed[C comparable, T any](s *Scheduler[C], category C, name string, fn TaskWithResult[T]) *JobHandle[T] {
	pool := s.pool(category)
	j, handle := newJob(name, fn)
	s.submit(pool, j)
	return handle
}

func (s *Scheduler[C]) pool(category C) *categoryPool {
	pool, ok := s.pools[category]
	if !ok {
		panic(fmt.Sprintf("Scheduler: %v: %q", ErrUnknownCategory, CategoryName(category)))
	}
	return pool
}

func (s *Scheduler[C]) submit(pool *categoryPool, j *job) {
	depth, ok := pool.queue.push(j)
	if !ok {
		j.finish(ErrSchedulerClosed)
		s.rejectedJobHandler.HandleRejectedJob(pool.name, j.id, "shutting down")
		s.metrics.RecordJobRejected(pool.name, "shutting down")
		return
	}
	s.metrics.RecordQueueDepth(pool.name, depth)
}

// Close stops the scheduler: every category's stop flag is set, idle workers are
// woken, and Close blocks until all workers have exited. Jobs queued before Close
// still run. Close is idempotent and safe for concurrent use.
func (s *Scheduler[C]) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateStopSignaled))
		s.logger.Info("scheduler stopping", F("scheduler", s.id))

		for _, category := range s.order {
			s.pools[category].queue.stop()
		}
		s.wg.Wait()

		s.state.Store(int32(StateStopped))
		s.logger.Info("scheduler stopped", F("scheduler", s.id))
	})
}

// Stats returns a snapshot of every category in declaration order.
func (s *Scheduler[C]) Stats() []CategoryStats {
	out := make([]CategoryStats, 0, len(s.order))
	for _, category := range s.order {
		pool := s.pools[category]
		snap := pool.queue.snapshot()
		out = append(out, CategoryStats{
			Category:  pool.name,
			Workers:   pool.workers,
			Queued:    snap.queued,
			Active:    snap.active,
			Completed: snap.completed,
			Failed:    snap.failed,
			Stopped:   snap.stopped,
		})
	}
	return out
}

// RecentJobs returns completed job execution records in newest-first order.
func (s *Scheduler[C]) RecentJobs(limit int) []JobExecutionRecord {
	return s.history.Recent(limit)
}

// LastJob returns the most recently completed job, if any.
func (s *Scheduler[C]) LastJob() (JobExecutionRecord, bool) {
	return s.history.Last()
}
