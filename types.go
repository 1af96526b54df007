package jobscheduler

import "github.com/Swind/go-job-scheduler/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the jobscheduler package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// TaskWithResult is a unit of work that produces a value
type TaskWithResult[T any] = core.TaskWithResult[T]

// Scheduler owns the thread categories and their workers
type Scheduler[C comparable] = core.Scheduler[C]

// ScopedScheduler joins every job posted through it
type ScopedScheduler[C comparable] = core.ScopedScheduler[C]

// JobHandle is the single-use receipt of a submitted job
type JobHandle[T any] = core.JobHandle[T]

// CategoryDescriptor declares the worker count of one category
type CategoryDescriptor[C comparable] = core.CategoryDescriptor[C]

// Descriptors is a literal set of category descriptors
type Descriptors[C comparable] = core.Descriptors[C]

// PoolDescriptor provides the category set a Scheduler is built from
type PoolDescriptor[C comparable] = core.PoolDescriptor[C]

// SchedulerConfig holds optional handlers and settings
type SchedulerConfig = core.SchedulerConfig

// PanicError is delivered for jobs that panicked
type PanicError = core.PanicError

// Errors
var (
	ErrSchedulerClosed   = core.ErrSchedulerClosed
	ErrHandleConsumed    = core.ErrHandleConsumed
	ErrUnknownCategory   = core.ErrUnknownCategory
	ErrInvalidDescriptor = core.ErrInvalidDescriptor
	ErrJobSkipped        = core.ErrJobSkipped
	ErrJobAlreadyRun     = core.ErrJobAlreadyRun
)

// CurrentJob retrieves the executing job's info from a job context
var CurrentJob = core.CurrentJob

// DefaultSchedulerConfig returns a config with default handlers
var DefaultSchedulerConfig = core.DefaultSchedulerConfig

// NewScheduler creates a Scheduler and starts its workers.
func NewScheduler[C comparable](descriptor PoolDescriptor[C]) *Scheduler[C] {
	return core.NewScheduler(descriptor)
}

// NewSchedulerWithConfig creates a Scheduler with custom handlers.
func NewSchedulerWithConfig[C comparable](descriptor PoolDescriptor[C], config *SchedulerConfig) *Scheduler[C] {
	return core.NewSchedulerWithConfig(descriptor, config)
}

// ScheduleJob submits fn and returns a handle for its result.
func ScheduleJob[C comparable, T any](s *Scheduler[C], category C, fn TaskWithResult[T]) *JobHandle[T] {
	return core.ScheduleJob(s, category, fn)
}

// ScheduleNamedJob is ScheduleJob with a display name used in logs and history.
func ScheduleNamedJob[C comparable, T any](s *Scheduler[C], category C, name string, fn TaskWithResult[T]) *JobHandle[T] {
	return core.ScheduleNamedJob(s, category, name, fn)
}

// ScopedScheduleJob submits fn through a scope and returns a handle for its result.
func ScopedScheduleJob[C comparable, T any](scope *ScopedScheduler[C], category C, fn TaskWithResult[T]) *JobHandle[T] {
	return core.ScopedScheduleJob(scope, category, fn)
}
