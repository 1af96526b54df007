package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Swind/go-job-scheduler/asynclog"
	"github.com/Swind/go-job-scheduler/core"
)

func newTestEngine(t *testing.T, gameObjectThreads int) (*Engine, *core.Scheduler[Category]) {
	t.Helper()
	scheduler := core.NewScheduler(core.Descriptors[Category]{
		{Category: Logger, Threads: 1},
		{Category: GameObjectCategory, Threads: gameObjectThreads},
	})
	t.Cleanup(scheduler.Close)
	return New(scheduler, nil, nil, nil), scheduler
}

// TestEngine_UpdateRunsEveryLogicOnce verifies one tick is a barrier over all objects
// Given: A scene with 10 objects, 8 of which have logic
// When: Update is called 3 times
// Then: Each logic object ran exactly 3 times and the others never ran
func TestEngine_UpdateRunsEveryLogicOnce(t *testing.T) {
	// Arrange
	eng, _ := newTestEngine(t, 4)
	var withLogic, without []*GameObject
	for i := range 10 {
		obj := eng.Scene().AddGameObject("obj")
		if i < 8 {
			obj.SetLogic(func(ctx *Context, obj *GameObject) {
				time.Sleep(time.Millisecond)
			})
			withLogic = append(withLogic, obj)
		} else {
			without = append(without, obj)
		}
	}

	// Act
	for range 3 {
		require.NoError(t, eng.Update(16*time.Millisecond))
	}

	// Assert
	for _, obj := range withLogic {
		assert.Equal(t, int64(3), obj.Runs())
	}
	for _, obj := range without {
		assert.Zero(t, obj.Runs())
	}
	assert.Equal(t, uint64(3), eng.Ticks())
}

// TestEngine_UpdateRunsObjectsConcurrently verifies logic runs on the GameObject workers
func TestEngine_UpdateRunsObjectsConcurrently(t *testing.T) {
	eng, _ := newTestEngine(t, 4)

	var barrier sync.WaitGroup
	barrier.Add(4)
	for range 4 {
		eng.Scene().AddGameObject("obj").SetLogic(func(ctx *Context, obj *GameObject) {
			barrier.Done()
			barrier.Wait()
		})
	}

	done := make(chan error, 1)
	go func() { done <- eng.Update(time.Millisecond) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("objects did not run concurrently")
	}
}

func TestEngine_ContextCarriesTick(t *testing.T) {
	eng, scheduler := newTestEngine(t, 2)

	var ticks []uint64
	var mu sync.Mutex
	eng.Scene().AddGameObject("obj").SetLogic(func(ctx *Context, obj *GameObject) {
		mu.Lock()
		ticks = append(ticks, ctx.Tick)
		mu.Unlock()
		assert.Equal(t, 5*time.Millisecond, ctx.Delta)
		assert.Same(t, eng.Scene(), ctx.Scene())
		assert.Same(t, scheduler, ctx.Scheduler())
	})

	for range 3 {
		require.NoError(t, eng.Update(5*time.Millisecond))
	}

	assert.Equal(t, []uint64{1, 2, 3}, ticks)
}

// TestEngine_FailedLogicIsCounted verifies failures do not abort the tick
// Given: Three objects, two of which panic
// When: Update runs
// Then: The error joins two failures, the healthy object still ran, and FailedJobs is 2
func TestEngine_FailedLogicIsCounted(t *testing.T) {
	eng, _ := newTestEngine(t, 2)
	healthy := eng.Scene().AddGameObject("healthy")
	healthy.SetLogic(func(*Context, *GameObject) {})
	for range 2 {
		eng.Scene().AddGameObject("broken").SetLogic(func(*Context, *GameObject) { panic("broken logic") })
	}

	err := eng.Update(time.Millisecond)

	require.Error(t, err)
	var panicErr *core.PanicError
	assert.True(t, errors.As(err, &panicErr))
	assert.Equal(t, int64(2), eng.FailedJobs())
	assert.Equal(t, int64(1), healthy.Runs())
	assert.Equal(t, uint64(1), eng.Ticks())
}

// TestEngine_LogicCanLog verifies logic components reach the async logger
func TestEngine_LogicCanLog(t *testing.T) {
	scheduler := core.NewScheduler(DefaultPoolDescriptor())
	defer scheduler.Close()

	var out bytes.Buffer
	server, client := asynclog.New(4, zapcore.AddSync(&out))
	serverDone := scheduler.PostTask(Logger, server.Work)

	eng := New(scheduler, client, nil, nil)
	eng.Scene().AddGameObject("talker").SetLogic(func(ctx *Context, obj *GameObject) {
		ctx.Log(asynclog.Warning, obj.Name()+" says hi")
	})

	require.NoError(t, eng.Update(time.Millisecond))
	client.Close()
	_, _ = serverDone.Wait()

	assert.Contains(t, out.String(), "Warning: talker says hi")
}

func TestEngine_RunStopsAfterMaxTicks(t *testing.T) {
	eng, _ := newTestEngine(t, 1)
	var runs atomic.Int32
	eng.Scene().AddGameObject("obj").SetLogic(func(*Context, *GameObject) { runs.Add(1) })

	err := eng.Run(context.Background(), time.Millisecond, 5)

	require.NoError(t, err)
	assert.Equal(t, uint64(5), eng.Ticks())
	assert.Equal(t, int32(5), runs.Load())
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	eng, _ := newTestEngine(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := eng.Run(ctx, time.Millisecond, 0)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_RunRejectsBadInterval(t *testing.T) {
	eng, _ := newTestEngine(t, 1)

	assert.Error(t, eng.Run(context.Background(), 0, 1))
}

func TestEngine_NewRequiresScheduler(t *testing.T) {
	assert.Panics(t, func() { New(nil, nil, nil, nil) })
}
