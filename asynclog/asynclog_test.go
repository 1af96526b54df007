package asynclog_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-job-scheduler/asynclog"
	"github.com/Swind/go-job-scheduler/core"
)

// syncBuffer is a WriteSyncer that counts Sync calls.
type syncBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	syncs int
	fail  error
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return 0, b.fail
	}
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncs++
	return nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) syncCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncs
}

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)

func fixedClock() time.Time { return fixedTime }

// TestServer_WritesLinesInOrder verifies the line format and ordering
// Given: A client logging three messages of different severities
// When: The client is closed and Work drains
// Then: Three formatted lines are written in order and the writer is synced
func TestServer_WritesLinesInOrder(t *testing.T) {
	// Arrange
	out := &syncBuffer{}
	server, client := asynclog.New(8, out, asynclog.WithClock(fixedClock))

	// Act
	require.NoError(t, client.Log(asynclog.Info, "hello"))
	require.NoError(t, client.Log(asynclog.Warning, "careful"))
	require.NoError(t, client.Log(asynclog.Critical, "down"))
	client.Close()
	server.Work(context.Background())

	// Assert
	want := "[2024-01-02 03:04:05.000000006 UTC] Info: hello\n" +
		"[2024-01-02 03:04:05.000000006 UTC] Warning: careful\n" +
		"[2024-01-02 03:04:05.000000006 UTC] Critical: down\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, 3, server.Written())
	assert.GreaterOrEqual(t, out.syncCount(), 1)
	assert.NoError(t, server.Err())
}

func TestClient_LogAfterClose(t *testing.T) {
	_, client := asynclog.New(1, &syncBuffer{})
	client.Close()
	client.Close()

	assert.ErrorIs(t, client.Log(asynclog.Info, "late"), asynclog.ErrClosed)
}

// TestClient_CloseReleasesBlockedLog verifies Close does not depend on a running server
// Given: A full buffer and no server draining it
// When: Log blocks and Close is called
// Then: Close returns and the blocked Log reports ErrClosed
func TestClient_CloseReleasesBlockedLog(t *testing.T) {
	// Arrange
	_, client := asynclog.New(1, &syncBuffer{})
	require.NoError(t, client.Log(asynclog.Info, "fills the buffer"))

	blocked := make(chan error, 1)
	go func() { blocked <- client.Log(asynclog.Info, "waits") }()

	// Act
	closed := make(chan struct{})
	go func() {
		client.Close()
		close(closed)
	}()

	// Assert
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close hung behind a blocked Log")
	}
	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, asynclog.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked Log was not released")
	}
}

// TestServer_SyncsWhenIdle verifies the flush interval
func TestServer_SyncsWhenIdle(t *testing.T) {
	out := &syncBuffer{}
	server, client := asynclog.New(1, out, asynclog.WithFlushInterval(5*time.Millisecond))

	done := make(chan struct{})
	go func() {
		server.Work(context.Background())
		close(done)
	}()

	require.NoError(t, client.Log(asynclog.Debug, "one"))
	assert.Eventually(t, func() bool { return out.syncCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	client.Close()
	<-done
	assert.Contains(t, out.String(), "Debug: one")
}

func TestServer_RecordsWriteError(t *testing.T) {
	broken := errors.New("disk full")
	out := &syncBuffer{fail: broken}
	server, client := asynclog.New(2, out)

	require.NoError(t, client.Log(asynclog.Error, "lost"))
	client.Close()
	server.Work(context.Background())

	assert.ErrorIs(t, server.Err(), broken)
	assert.Zero(t, server.Written())
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "Debug", asynclog.Debug.String())
	assert.Equal(t, "Critical", asynclog.Critical.String())
	assert.Equal(t, "Unknown", asynclog.Severity(42).String())
}

// TestServer_OnDedicatedCategory runs the server as a job on a single-worker category
// Given: A scheduler with a one-worker logger category and a four-worker producer category
// When: 40 producer jobs log concurrently through an unbuffered client
// Then: Every message is written exactly once
func TestServer_OnDedicatedCategory(t *testing.T) {
	// Arrange
	scheduler := core.NewScheduler(core.Descriptors[string]{
		{Category: "logger", Threads: 1},
		{Category: "producer", Threads: 4},
	})
	defer scheduler.Close()

	out := &syncBuffer{}
	server, client := asynclog.New(0, out)
	serverDone := scheduler.PostTask("logger", server.Work)

	// Act
	err := scheduler.Scoped(func(s *core.ScopedScheduler[string]) {
		for i := range 40 {
			s.PostTask("producer", func(ctx context.Context) {
				_ = client.Log(asynclog.Info, fmt.Sprintf("msg-%02d", i))
			})
		}
	})
	require.NoError(t, err)
	client.Close()
	_, workErr := serverDone.Wait()

	// Assert
	require.NoError(t, workErr)
	assert.Equal(t, 40, server.Written())
	lines := out.String()
	assert.Equal(t, 40, strings.Count(lines, "\n"))
	for i := range 40 {
		assert.Contains(t, lines, fmt.Sprintf("Info: msg-%02d\n", i))
	}
}
