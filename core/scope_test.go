package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScoped_JoinsAllJobs verifies every scoped job finished when Scoped returns
// Given: Scopes posting K slow jobs for K in {1, 5, 100}
// When: Scoped returns
// Then: The observed counter equals K with no extra synchronization
func TestScoped_JoinsAllJobs(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 4}, {catB, 2}})

	for _, k := range []int{1, 5, 100} {
		t.Run(fmt.Sprintf("K=%d", k), func(t *testing.T) {
			// Arrange
			var counter atomic.Int32

			// Act
			err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
				for i := range k {
					category := catA
					if i%2 == 1 {
						category = catB
					}
					scope.PostTask(category, func(ctx context.Context) {
						time.Sleep(time.Millisecond)
						counter.Add(1)
					})
				}
				assert.Equal(t, k, scope.Len())
			})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, int32(k), counter.Load())
		})
	}
}

// TestScoped_JobsWriteScopeLocalData verifies jobs may write enclosing variables
func TestScoped_JobsWriteScopeLocalData(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 4}})

	results := make([]int, 64)
	err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
		for i := range results {
			scope.PostTask(catA, func(ctx context.Context) {
				results[i] = i * i
			})
		}
	})

	require.NoError(t, err)
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

// TestScoped_HandlesRemainWaitable verifies scoped handles keep their values
func TestScoped_HandlesRemainWaitable(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 2}})

	var handles []*JobHandle[string]
	err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
		for i := range 3 {
			handles = append(handles, ScopedScheduleJob(scope, catA, func(ctx context.Context) (string, error) {
				return fmt.Sprintf("r%d", i), nil
			}))
		}
	})
	require.NoError(t, err)

	for i, h := range handles {
		select {
		case <-h.Done():
		default:
			t.Fatalf("handle %d not resolved after Scoped returned", i)
		}
		v, err := h.Wait()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("r%d", i), v)
	}
}

// TestScoped_JoinsOnPanic verifies the join is unconditional
// Given: A scope function that posts slow jobs and then panics
// When: Scoped is called
// Then: The panic propagates only after every posted job finished
func TestScoped_JoinsOnPanic(t *testing.T) {
	// Arrange
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 2}})
	var finished atomic.Int32
	var observed int32 = -1

	// Act
	func() {
		defer func() {
			r := recover()
			require.Equal(t, "scope body failed", r)
			observed = finished.Load()
		}()
		_ = s.Scoped(func(scope *ScopedScheduler[testCategory]) {
			for range 6 {
				scope.PostTask(catA, func(ctx context.Context) {
					time.Sleep(5 * time.Millisecond)
					finished.Add(1)
				})
			}
			panic("scope body failed")
		})
	}()

	// Assert
	assert.Equal(t, int32(6), observed)
}

// TestScoped_JoinsFailures verifies job failures surface as one joined error
// Given: A scope with two panicking jobs, one failing job and two good ones
// When: Scoped returns
// Then: The error wraps all three failures and the good jobs still ran
func TestScoped_JoinsFailures(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 2}})
	sentinel := errors.New("typed failure")
	var good atomic.Int32

	err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
		scope.PostTask(catA, func(ctx context.Context) { panic("one") })
		scope.PostTask(catA, func(ctx context.Context) { good.Add(1) })
		ScopedScheduleJob(scope, catA, func(ctx context.Context) (int, error) { return 0, sentinel })
		scope.PostTask(catA, func(ctx context.Context) { panic("two") })
		scope.PostTask(catA, func(ctx context.Context) { good.Add(1) })
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	var panicErr *PanicError
	assert.ErrorAs(t, err, &panicErr)
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 3)
	assert.Equal(t, int32(2), good.Load())
}

// TestScoped_NestedPostsAreJoined verifies jobs posted by scoped jobs are joined too
// Given: A scoped job that posts further jobs through the same scope
// When: Scoped returns
// Then: The nested jobs have also finished
func TestScoped_NestedPostsAreJoined(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 1}, {catB, 2}})
	var nested atomic.Int32

	err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
		scope.PostTask(catA, func(ctx context.Context) {
			for range 4 {
				scope.PostTask(catB, func(ctx context.Context) {
					time.Sleep(2 * time.Millisecond)
					nested.Add(1)
				})
			}
		})
	})

	require.NoError(t, err)
	assert.Equal(t, int32(4), nested.Load())
}

// TestScoped_InnerScopeInsideJob verifies a job can open its own scope on another category
func TestScoped_InnerScopeInsideJob(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 1}, {catB, 2}})

	h := ScheduleJob(s, catA, func(ctx context.Context) (int, error) {
		parts := make([]int, 8)
		err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
			for i := range parts {
				scope.PostTask(catB, func(ctx context.Context) { parts[i] = i })
			}
		})
		sum := 0
		for _, p := range parts {
			sum += p
		}
		return sum, err
	})

	sum, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, 28, sum)
}

func TestScoped_UseAfterReturnPanics(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 1}})

	var leaked *ScopedScheduler[testCategory]
	require.NoError(t, s.Scoped(func(scope *ScopedScheduler[testCategory]) {
		leaked = scope
	}))

	assert.PanicsWithValue(t, "ScopedScheduler: scope used after return", func() {
		leaked.PostTask(catA, func(ctx context.Context) {})
	})
	assert.Same(t, s, leaked.Scheduler())
}

// TestScoped_UnknownCategoryStillJoins verifies a panicking submission does not skip the join
func TestScoped_UnknownCategoryStillJoins(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 1}})
	var ran atomic.Bool

	assert.Panics(t, func() {
		_ = s.Scoped(func(scope *ScopedScheduler[testCategory]) {
			scope.PostTask(catA, func(ctx context.Context) {
				time.Sleep(5 * time.Millisecond)
				ran.Store(true)
			})
			scope.PostTask(catC, func(ctx context.Context) {})
		})
	})
	assert.True(t, ran.Load())
}

func TestScoped_AfterCloseReportsRejection(t *testing.T) {
	s := NewScheduler(Descriptors[testCategory]{{catA, 1}})
	s.Close()

	err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {
		scope.PostTask(catA, func(ctx context.Context) {})
	})

	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestScoped_Empty(t *testing.T) {
	s := newTestScheduler(t, Descriptors[testCategory]{{catA, 1}})

	err := s.Scoped(func(scope *ScopedScheduler[testCategory]) {})

	assert.NoError(t, err)
}
