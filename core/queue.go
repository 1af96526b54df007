package core

import (
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// jobQueue is the pending work of one thread category.
// All fields are guarded by mu; cond wakes idle workers of the category.
type jobQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []*job
	stopped bool

	// counters, guarded by mu
	active    int
	completed int64
	failed    int64
}

func newJobQueue() *jobQueue {
	q := &jobQueue{
		jobs: make([]*job, 0, defaultQueueCap),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends j and wakes one idle worker, returning the resulting depth.
// It returns false without queuing once the queue has been stopped.
func (q *jobQueue) push(j *job) (int, bool) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return 0, false
	}
	q.jobs = append(q.jobs, j)
	depth := len(q.jobs)
	q.mu.Unlock()

	q.cond.Signal()
	return depth, true
}

// next blocks until a job is available or the queue is stopped and drained.
// Stop is only honored on an empty queue, so every job queued before stop runs.
func (q *jobQueue) next() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.jobs) > 0 {
			j := q.jobs[0]
			// Zero out the element in the underlying array to prevent memory leak
			q.jobs[0] = nil
			q.jobs = q.jobs[1:]
			q.maybeCompactLocked()
			q.active++
			return j, true
		}
		if q.stopped {
			return nil, false
		}
		q.cond.Wait()
	}
}

// done records the end of a job taken with next.
func (q *jobQueue) done(failed bool) {
	q.mu.Lock()
	q.active--
	if failed {
		q.failed++
	} else {
		q.completed++
	}
	q.mu.Unlock()
}

// stop flips the stop flag (once) and wakes every idle worker.
func (q *jobQueue) stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

func (q *jobQueue) maybeCompactLocked() {
	n := len(q.jobs)
	c := cap(q.jobs)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.jobs = make([]*job, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]*job, n, newCap)
	copy(newSlice, q.jobs)
	q.jobs = newSlice
}

type queueSnapshot struct {
	queued    int
	active    int
	completed int64
	failed    int64
	stopped   bool
}

func (q *jobQueue) snapshot() queueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return queueSnapshot{
		queued:    len(q.jobs),
		active:    q.active,
		completed: q.completed,
		failed:    q.failed,
		stopped:   q.stopped,
	}
}
