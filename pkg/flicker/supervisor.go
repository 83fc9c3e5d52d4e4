package flicker

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"vawter.tech/stopper"
)

// Config configures a Supervisor.
type Config struct {
	// Intervals is the blink table in milliseconds. Default: DefaultIntervals.
	Intervals []int

	// Seed seeds the random source. Zero seeds from the clock.
	Seed int64

	// Logger is the optional logger. If nil, logging is disabled.
	Logger *slog.Logger
}

// Supervisor owns the set of running flicker tasks.
type Supervisor struct {
	sctx   *stopper.Context
	writer Writer
	config Config

	mu  sync.Mutex
	rng *rand.Rand

	active   atomic.Int32
	finished atomic.Int32
}

// NewSupervisor creates a supervisor whose tasks write through w.
func NewSupervisor(ctx context.Context, w Writer, config Config) *Supervisor {
	if len(config.Intervals) == 0 {
		config.Intervals = DefaultIntervals
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Supervisor{
		sctx:   stopper.WithContext(ctx),
		writer: w,
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Spawn starts a task for channel. A zero runtime flickers until
// cancelled. Spawn returns false once the supervisor is cancelled.
func (s *Supervisor) Spawn(channel int, runtime time.Duration) bool {
	if s.sctx.IsStopping() {
		return false
	}

	s.mu.Lock()
	rng := rand.New(rand.NewSource(s.rng.Int63()))
	s.mu.Unlock()

	task := NewTask(channel, runtime, s.writer, s.config.Intervals, rng)
	task.logger = s.config.Logger

	s.debugLog("starting flicker", "channel", channel, "runtime", runtime)

	// Counted before the goroutine starts so Active is exact once Spawn returns.
	s.active.Add(1)
	accepted := s.sctx.Go(func(sctx *stopper.Context) error {
		defer s.active.Add(-1)

		expired := task.Run(sctx)
		if expired {
			s.finished.Add(1)
		}
		s.debugLog("flicker finished", "channel", channel, "expired", expired)
		return nil
	})
	if !accepted {
		s.active.Add(-1)
	}
	return accepted
}

// Cancel stops every task and waits for all of them to return. Tasks
// still running after grace have their context cancelled.
func (s *Supervisor) Cancel(grace time.Duration) error {
	s.sctx.Stop(grace)
	return s.sctx.Wait()
}

// Cancelled returns a channel closed once cancellation has begun.
func (s *Supervisor) Cancelled() <-chan struct{} {
	return s.sctx.Stopping()
}

// IsCancelled reports whether cancellation has begun.
func (s *Supervisor) IsCancelled() bool {
	return s.sctx.IsStopping()
}

// Active returns the number of running tasks.
func (s *Supervisor) Active() int {
	return int(s.active.Load())
}

// Expired returns the number of tasks that ended by natural expiry.
func (s *Supervisor) Expired() int {
	return int(s.finished.Load())
}

func (s *Supervisor) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
