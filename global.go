package jobscheduler

import (
	"sync"

	"github.com/Swind/go-job-scheduler/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *Scheduler[string]
	globalMu        sync.Mutex
)

// InitGlobalScheduler builds the process-wide scheduler for string categories.
// Repeated calls are no-ops; it panics if descriptors is malformed.
func InitGlobalScheduler(descriptors Descriptors[string], config *SchedulerConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return // Already initialized
	}

	globalScheduler = core.NewSchedulerWithConfig[string](descriptors, config)
}

// GetGlobalScheduler returns the global scheduler instance.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *Scheduler[string] {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		panic("GlobalScheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalScheduler
}

// ShutdownGlobalScheduler drains and stops the global scheduler.
func ShutdownGlobalScheduler() {
	globalMu.Lock()
	s := globalScheduler
	globalScheduler = nil
	globalMu.Unlock()

	if s != nil {
		s.Close()
	}
}

// Post submits task to category on the global scheduler.
func Post(category string, task Task) *JobHandle[struct{}] {
	return GetGlobalScheduler().PostTask(category, task)
}

// Scoped opens a scope on the global scheduler.
func Scoped(fn func(scope *ScopedScheduler[string])) error {
	return GetGlobalScheduler().Scoped(fn)
}
