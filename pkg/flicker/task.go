package flicker

import (
	"log/slog"
	"math/rand"
	"time"

	"vawter.tech/stopper"
)

// DefaultIntervals is the blink interval table in milliseconds.
var DefaultIntervals = []int{
	10, 20, 20, 240, 20, 40, 20, 100, 20, 20, 20, 260, 80, 20, 240, 60, 160,
	20, 240, 20, 1000, 20, 20, 40, 100, 20, 2740, 340, 860, 20, 1400, 20, 60, 20,
}

// Writer drives one channel; output.Bank satisfies it.
type Writer interface {
	Set(channel int, on bool) error
}

// Task flickers one channel.
type Task struct {
	channel   int
	intervals []int
	cursor    int
	forever   bool
	runtime   time.Duration
	lastOn    bool

	writer Writer
	rng    *rand.Rand
	now    func() time.Time
	logger *slog.Logger
}

// NewTask creates a task for channel. A zero runtime flickers until
// cancelled. The cursor starts at a random table entry.
func NewTask(channel int, runtime time.Duration, w Writer, intervals []int, rng *rand.Rand) *Task {
	if len(intervals) == 0 {
		intervals = DefaultIntervals
	}
	return &Task{
		channel:   channel,
		intervals: intervals,
		cursor:    rng.Intn(len(intervals)),
		forever:   runtime <= 0,
		runtime:   runtime,
		writer:    w,
		rng:       rng,
		now:       time.Now,
	}
}

// Channel returns the animated channel.
func (t *Task) Channel() int {
	return t.channel
}

// Run flickers until the runtime is over or ctx starts stopping.
// It reports whether the task ended by natural expiry.
func (t *Task) Run(ctx *stopper.Context) (expired bool) {
	var expiry time.Time
	if !t.forever {
		expiry = t.now().Add(t.runtime)
	}

	for !ctx.IsStopping() {
		if !t.sleep(ctx, t.nextDelay()) {
			return false
		}

		t.cursor++
		if t.cursor == len(t.intervals) {
			t.cursor = 0
		}

		if !t.forever && t.now().After(expiry) {
			// Always finish lit, whatever the last toggle was
			t.write(true)
			return true
		}

		t.write(!t.lastOn)
	}
	return false
}

// nextDelay is the current table entry with a uniform jitter of up to half
// the entry either way.
func (t *Task) nextDelay() time.Duration {
	half := t.intervals[t.cursor] / 2
	jitter := t.rng.Intn(2*half+1) - half
	return time.Duration(jitter+2*half) * time.Millisecond
}

func (t *Task) sleep(ctx *stopper.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Stopping():
		return false
	case <-timer.C:
		return true
	}
}

func (t *Task) write(on bool) {
	t.lastOn = on
	if err := t.writer.Set(t.channel, on); err != nil && t.logger != nil {
		t.logger.Warn("flicker write failed", "channel", t.channel, "error", err)
	}
}
