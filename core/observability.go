package core

import "time"

// JobExecutionRecord captures a completed job execution event.
type JobExecutionRecord struct {
	JobID      JobID
	Name       string
	Category   string
	WorkerID   int
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Failed     bool
	Panicked   bool
}

// CategoryStats represents runtime observability state for one thread category.
type CategoryStats struct {
	Category  string
	Workers   int
	Queued    int
	Active    int
	Completed int64
	Failed    int64
	Stopped   bool
}

// SchedulerState is the lifecycle state of a Scheduler.
type SchedulerState int32

const (
	// StateRunning: workers are polling and executing jobs.
	StateRunning SchedulerState = iota

	// StateStopSignaled: stop flags are set, queued jobs are still draining.
	StateStopSignaled

	// StateStopped: every worker has exited. Terminal.
	StateStopped
)

func (s SchedulerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopSignaled:
		return "stop_signaled"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
