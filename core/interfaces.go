package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling job panics
// =============================================================================

// PanicHandler is called when a job panics during execution.
// The panic has already been converted into a *PanicError delivered through
// the job's handle; the handler exists for logging and alerting.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a job panics.
	//
	// Parameters:
	// - ctx: The job context (see CurrentJob)
	// - category: The thread category the job ran in
	// - workerID: The index of the worker within its category
	// - panicInfo: The panic value recovered from the job
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, category string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics at error level.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, category string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}
	fields := []Field{
		F("category", category),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	}
	if info, ok := CurrentJob(ctx); ok {
		fields = append(fields, F("job", info.ID.String()))
	}
	logger.Error("job panicked", fields...)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting job execution metrics.
// Methods should be non-blocking and fast to avoid impacting job execution.
type Metrics interface {
	// RecordJobDuration records how long a job took to execute.
	RecordJobDuration(category string, duration time.Duration)

	// RecordJobPanic records that a job panicked during execution.
	RecordJobPanic(category string, panicInfo any)

	// RecordQueueDepth records the depth of a category queue after a submission.
	RecordQueueDepth(category string, depth int)

	// RecordJobRejected records that a job was rejected (e.g., during shutdown).
	RecordJobRejected(category string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordJobDuration is a no-op.
func (m *NilMetrics) RecordJobDuration(category string, duration time.Duration) {}

// RecordJobPanic is a no-op.
func (m *NilMetrics) RecordJobPanic(category string, panicInfo any) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(category string, depth int) {}

// RecordJobRejected is a no-op.
func (m *NilMetrics) RecordJobRejected(category string, reason string) {}

// =============================================================================
// RejectedJobHandler: Interface for handling rejected jobs
// =============================================================================

// RejectedJobHandler is called when a submission is rejected because the
// scheduler is shutting down. The job's handle has already been resolved
// with ErrSchedulerClosed.
type RejectedJobHandler interface {
	HandleRejectedJob(category string, id JobID, reason string)
}

// DefaultRejectedJobHandler logs rejected jobs at warn level.
type DefaultRejectedJobHandler struct {
	Logger Logger
}

// HandleRejectedJob logs the rejected job.
func (h *DefaultRejectedJobHandler) HandleRejectedJob(category string, id JobID, reason string) {
	if h.Logger == nil {
		return
	}
	h.Logger.Warn("job rejected", F("category", category), F("job", id.String()), F("reason", reason))
}

// =============================================================================
// Interceptor: wraps job execution
// =============================================================================

// Interceptor wraps the execution of every job. It must call next exactly once
// to run the job; an error it returns without calling next becomes the job's
// failure.
type Interceptor func(ctx context.Context, info JobInfo, next func(ctx context.Context) error) error

func chainInterceptors(interceptors []Interceptor, info JobInfo, run func(ctx context.Context) error) func(ctx context.Context) error {
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := run
		run = func(ctx context.Context) error {
			return interceptor(ctx, info, next)
		}
	}
	return run
}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// SchedulerConfig holds configuration options for Scheduler.
// All fields are optional; defaults are filled in by NewSchedulerWithConfig.
type SchedulerConfig struct {
	// Name identifies the scheduler in logs and metrics. Defaults to a random UUID.
	Name string

	// Logger receives lifecycle logs. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a job panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record job execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedJobHandler is called when a job is rejected. Defaults to DefaultRejectedJobHandler.
	RejectedJobHandler RejectedJobHandler

	// Interceptors wrap every job, outermost first.
	Interceptors []Interceptor

	// HistoryCapacity bounds RecentJobs. Defaults to 100.
	HistoryCapacity int
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	logger := NewNoOpLogger()
	return &SchedulerConfig{
		Logger:             logger,
		PanicHandler:       &DefaultPanicHandler{Logger: logger},
		Metrics:            &NilMetrics{},
		RejectedJobHandler: &DefaultRejectedJobHandler{Logger: logger},
		HistoryCapacity:    defaultJobHistoryCapacity,
	}
}
