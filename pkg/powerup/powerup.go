// Package powerup runs the staged lamp power-up sequence.
//
// A Plan is an ordered list of channel groups. Each group is switched on,
// then the sequencer pauses for the group's delay before the next group.
// Channels marked for animation start a flicker task instead of a plain
// write.
package powerup

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// Default flicker runtime bounds for animated channels.
const (
	DefaultMinRuntime = 5 * time.Second
	DefaultMaxRuntime = 500 * time.Second
)

// ErrEmptyPlan is returned when the plan has no groups.
var ErrEmptyPlan = errors.New("powerup: empty plan")

// Group is one stage of the sequence.
type Group struct {
	Channels []int
	Delay    time.Duration
}

// Plan is the ordered list of groups.
type Plan []Group

// Channels returns every channel in plan order.
func (p Plan) Channels() []int {
	var out []int
	for _, g := range p {
		out = append(out, g.Channels...)
	}
	return out
}

// Writer drives one channel.
type Writer interface {
	Set(channel int, on bool) error
}

// Spawner starts a flicker task; flicker.Supervisor satisfies it.
type Spawner interface {
	Spawn(channel int, runtime time.Duration) bool
}

// Config configures a Sequencer.
type Config struct {
	// Animated lists channels that flicker instead of switching on.
	Animated []int

	// MinRuntime and MaxRuntime bound the random flicker runtime.
	MinRuntime time.Duration
	MaxRuntime time.Duration

	// Seed seeds the runtime draw. Zero seeds from the clock.
	Seed int64

	// Sleep pauses between groups. Default: a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger is the optional logger. If nil, logging is disabled.
	Logger *slog.Logger
}

// Sequencer switches a plan on.
type Sequencer struct {
	plan     Plan
	writer   Writer
	spawner  Spawner
	animated map[int]bool
	config   Config
	rng      *rand.Rand
}

// NewSequencer creates a sequencer. spawner may be nil when no channel is
// animated.
func NewSequencer(plan Plan, w Writer, spawner Spawner, config Config) *Sequencer {
	if config.MinRuntime <= 0 {
		config.MinRuntime = DefaultMinRuntime
	}
	if config.MaxRuntime < config.MinRuntime {
		config.MaxRuntime = DefaultMaxRuntime
		if config.MaxRuntime < config.MinRuntime {
			config.MaxRuntime = config.MinRuntime
		}
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	animated := make(map[int]bool, len(config.Animated))
	for _, ch := range config.Animated {
		animated[ch] = true
	}

	return &Sequencer{
		plan:     plan,
		writer:   w,
		spawner:  spawner,
		animated: animated,
		config:   config,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run executes the plan. A failed write is logged and the sequence goes on;
// Run returns early only when ctx is done.
func (s *Sequencer) Run(ctx context.Context) error {
	if len(s.plan) == 0 {
		return ErrEmptyPlan
	}

	for i, group := range s.plan {
		for _, ch := range group.Channels {
			if s.animated[ch] && s.spawner != nil {
				runtime := s.drawRuntime()
				if s.spawner.Spawn(ch, runtime) {
					s.debugLog("powerup: flicker", "channel", ch, "runtime", runtime)
					continue
				}
			}
			if err := s.writer.Set(ch, true); err != nil && s.config.Logger != nil {
				s.config.Logger.Warn("powerup: write failed", "channel", ch, "error", err)
			}
		}
		s.debugLog("powerup: group on", "group", i, "channels", group.Channels)

		if group.Delay > 0 {
			if err := s.config.Sleep(ctx, group.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// drawRuntime picks a runtime uniformly in whole seconds.
func (s *Sequencer) drawRuntime() time.Duration {
	lo := int64(s.config.MinRuntime / time.Second)
	hi := int64(s.config.MaxRuntime / time.Second)
	if hi <= lo {
		return s.config.MinRuntime
	}
	return time.Duration(lo+s.rng.Int63n(hi-lo+1)) * time.Second
}

func (s *Sequencer) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
