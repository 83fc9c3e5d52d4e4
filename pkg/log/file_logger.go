package log

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends capture records to a .llog file.
//
// A failed write never reaches the heartbeat loop. The event is counted as
// dropped and the first failure is reported through the error logger, if
// one was given.
type FileLogger struct {
	path    string
	file    *os.File
	encoder *cbor.Encoder
	errLog  *slog.Logger

	mu      sync.Mutex
	closed  bool
	lastErr error
	dropped atomic.Uint64
}

// FileLoggerOption configures a FileLogger.
type FileLoggerOption func(*FileLogger)

// WithErrorLogger reports the first dropped event to logger.
func WithErrorLogger(logger *slog.Logger) FileLoggerOption {
	return func(l *FileLogger) {
		l.errLog = logger
	}
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string, opts ...FileLoggerOption) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l := &FileLogger{
		path:    path,
		file:    f,
		encoder: NewEncoder(f),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the capture file path.
func (l *FileLogger) Path() string {
	return l.path
}

// Log appends one record. Events logged after Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.drop(err)
	}
}

// drop records a failed write. Caller holds mu.
func (l *FileLogger) drop(err error) {
	if l.dropped.Add(1) == 1 && l.errLog != nil {
		l.errLog.Warn("protocol capture write failed", "path", l.path, "error", err)
	}
	l.lastErr = err
}

// Dropped returns the number of events that could not be written.
func (l *FileLogger) Dropped() uint64 {
	return l.dropped.Load()
}

// Err returns the most recent write error, or nil.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Close syncs and closes the file. Repeated calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	// The unit may lose power right after END; flush what we have.
	syncErr := l.file.Sync()
	if err := l.file.Close(); err != nil {
		return err
	}
	return syncErr
}

var _ Logger = (*FileLogger)(nil)
