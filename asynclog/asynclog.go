// Package asynclog is a buffered logger whose consumer runs as a long job.
//
// Producers call Client.Log, which blocks only when the buffer is full. The
// Server's Work loop drains the buffer and writes one line per message; it is
// meant to be posted once to a dedicated single-worker category:
//
//	server, client := asynclog.New(64, zapcore.AddSync(os.Stdout))
//	scheduler.PostTask(Logger, server.Work)
//	defer client.Close()
package asynclog

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultFlushInterval is how long the server waits idle before syncing its writer.
const DefaultFlushInterval = time.Second

// ErrClosed is returned by Client.Log after Close.
var ErrClosed = errors.New("asynclog: client closed")

// Severity of a log message.
type Severity int8

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "Debug"
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

func (s Severity) level() zapcore.Level {
	switch s {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warning:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.DPanicLevel
	}
}

type message struct {
	severity Severity
	at       time.Time
	text     string
}

// Client is the producer side. It is safe for concurrent use.
type Client struct {
	mu        sync.RWMutex
	tx        chan message
	done      chan struct{}
	closeOnce sync.Once
	closed    bool
	now       func() time.Time
}

// Log queues a message, blocking while the buffer is full. A Log blocked on a
// full buffer returns ErrClosed once Close is called.
func (c *Client) Log(severity Severity, msg string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.tx <- message{severity: severity, at: c.now(), text: msg}:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close stops accepting messages. The server writes what is buffered and returns.
// Close does not wait for the server, so it returns even if Work never ran.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		// wake blocked senders before taking the write lock
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		close(c.tx)
	})
}

// Server is the consumer side.
type Server struct {
	rx            <-chan message
	out           zapcore.WriteSyncer
	encoder       zapcore.Encoder
	flushInterval time.Duration

	mu      sync.Mutex
	written int
	err     error
}

// Option configures New.
type Option func(*options)

type options struct {
	flushInterval time.Duration
	now           func() time.Time
}

// WithFlushInterval overrides DefaultFlushInterval.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushInterval = d
		}
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a connected server and client with a buffer of bufferSize messages.
func New(bufferSize int, out zapcore.WriteSyncer, opts ...Option) (*Server, *Client) {
	o := options{flushInterval: DefaultFlushInterval, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if bufferSize < 0 {
		bufferSize = 0
	}

	ch := make(chan message, bufferSize)
	server := &Server{
		rx:            ch,
		out:           out,
		encoder:       newLineEncoder(),
		flushInterval: o.flushInterval,
	}
	client := &Client{tx: ch, done: make(chan struct{}), now: o.now}
	return server, client
}

// newLineEncoder renders "[timestamp] Severity: message".
func newLineEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.UTC().Format("2006-01-02 15:04:05.000000000 MST") + "]")
		},
		// severity is rendered as part of the message
		EncodeLevel: func(zapcore.Level, zapcore.PrimitiveArrayEncoder) {},
	})
}

// Work consumes messages until the client is closed and the buffer drained.
// The writer is synced whenever no message arrived for the flush interval, and
// once more before Work returns.
func (s *Server) Work(ctx context.Context) {
	timer := time.NewTimer(s.flushInterval)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-s.rx:
			if !ok {
				s.sync()
				return
			}
			s.write(msg)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.flushInterval)
		case <-timer.C:
			s.sync()
			timer.Reset(s.flushInterval)
		}
	}
}

func (s *Server) write(msg message) {
	buf, err := s.encoder.EncodeEntry(zapcore.Entry{
		Level:   msg.severity.level(),
		Time:    msg.at,
		Message: msg.severity.String() + ": " + msg.text,
	}, nil)
	if err != nil {
		s.recordErr(err)
		return
	}
	defer buf.Free()

	if _, err := s.out.Write(buf.Bytes()); err != nil {
		s.recordErr(err)
		return
	}
	s.mu.Lock()
	s.written++
	s.mu.Unlock()
}

func (s *Server) sync() {
	if err := s.out.Sync(); err != nil {
		s.recordErr(err)
	}
}

func (s *Server) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Written returns the number of messages written so far.
func (s *Server) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Err returns the first write or sync error, if any.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
