// Package engine drives per-tick game-object logic on a categorized scheduler.
//
// Every Update opens one scope and posts one job per game object that has a
// logic component. Update returns only after all of them ran, so a tick is a
// synchronous barrier for the caller's frame loop.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Swind/go-job-scheduler/asynclog"
	"github.com/Swind/go-job-scheduler/core"
)

// Context is what a logic component sees during one tick.
type Context struct {
	Tick  uint64
	Delta time.Duration

	engine *Engine
}

// Scene returns the engine's scene.
func (c *Context) Scene() *Scene { return c.engine.scene }

// Scheduler returns the engine's scheduler.
func (c *Context) Scheduler() *core.Scheduler[Category] { return c.engine.scheduler }

// Log queues a message on the engine's async logger. It is a no-op when the
// engine has no logger.
func (c *Context) Log(severity asynclog.Severity, msg string) {
	c.engine.log(severity, msg)
}

// Engine owns the scene and runs its logic components every tick.
type Engine struct {
	scheduler *core.Scheduler[Category]
	logClient *asynclog.Client
	scene     *Scene
	logger    core.Logger

	tick   atomic.Uint64
	failed atomic.Int64
}

// New creates an engine. logClient may be nil.
func New(scheduler *core.Scheduler[Category], logClient *asynclog.Client, scene *Scene, logger core.Logger) *Engine {
	if scheduler == nil {
		panic("Engine: scheduler must not be nil")
	}
	if scene == nil {
		scene = NewScene()
	}
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &Engine{
		scheduler: scheduler,
		logClient: logClient,
		scene:     scene,
		logger:    logger,
	}
}

// Scene returns the engine's scene.
func (e *Engine) Scene() *Scene { return e.scene }

// Ticks returns the number of completed updates.
func (e *Engine) Ticks() uint64 { return e.tick.Load() }

// FailedJobs returns how many logic jobs failed across all ticks.
func (e *Engine) FailedJobs() int64 { return e.failed.Load() }

// Update runs one tick: every logic component runs once, concurrently across
// game objects, and Update returns when all of them finished. The returned
// error joins the failures of this tick's jobs.
func (e *Engine) Update(delta time.Duration) error {
	frame := &Context{
		Tick:   e.tick.Load() + 1,
		Delta:  delta,
		engine: e,
	}

	err := e.scheduler.Scoped(func(s *core.ScopedScheduler[Category]) {
		for _, obj := range e.scene.GameObjects() {
			logic := obj.Logic()
			if logic == nil {
				continue
			}
			s.PostTask(GameObjectCategory, func(context.Context) {
				obj.runs.Add(1)
				logic(frame, obj)
			})
		}
	})

	e.tick.Add(1)
	if err != nil {
		e.failed.Add(int64(countErrors(err)))
		e.logger.Warn("tick finished with failed jobs", core.F("tick", frame.Tick), core.F("error", err.Error()))
	}
	return err
}

// Run calls Update every interval until ctx is done or maxTicks updates ran
// (maxTicks <= 0 means no limit). Failed jobs are logged, not fatal.
func (e *Engine) Run(ctx context.Context, interval time.Duration, maxTicks int) error {
	if interval <= 0 {
		return fmt.Errorf("engine: tick interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	previous := time.Now()
	for ran := 0; maxTicks <= 0 || ran < maxTicks; ran++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			delta := now.Sub(previous)
			previous = now
			// Update already logged and counted any failed jobs
			_ = e.Update(delta)
		}
	}

	e.logger.Info("engine finished", core.F("ticks", e.Ticks()), core.F("failed_jobs", e.FailedJobs()))
	return nil
}

func (e *Engine) log(severity asynclog.Severity, msg string) {
	if e.logClient == nil {
		return
	}
	if err := e.logClient.Log(severity, msg); err != nil {
		e.logger.Debug("async log dropped", core.F("error", err.Error()))
	}
}

func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
