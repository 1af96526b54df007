package core

import (
	"context"
	"strconv"
	"sync/atomic"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// TaskWithResult is a unit of work that produces a value.
type TaskWithResult[T any] func(ctx context.Context) (T, error)

// =============================================================================
// JobID
// =============================================================================

// JobID identifies a submitted job. IDs increase monotonically per process.
type JobID uint64

var jobIDCounter atomic.Uint64

// GenerateJobID returns the next process-wide job ID.
func GenerateJobID() JobID {
	return JobID(jobIDCounter.Add(1))
}

func (id JobID) String() string {
	return "job-" + strconv.FormatUint(uint64(id), 10)
}

// =============================================================================
// Context Helper
// =============================================================================

// JobInfo describes the job currently executing on a worker.
type JobInfo struct {
	ID          JobID
	Name        string
	Category    string
	WorkerID    int
	SchedulerID string
}

type jobInfoKeyType struct{}

var jobInfoKey jobInfoKeyType

func withJobInfo(ctx context.Context, info JobInfo) context.Context {
	return context.WithValue(ctx, jobInfoKey, info)
}

// CurrentJob retrieves the executing job's info from a job context.
func CurrentJob(ctx context.Context) (JobInfo, bool) {
	info, ok := ctx.Value(jobInfoKey).(JobInfo)
	return info, ok
}
