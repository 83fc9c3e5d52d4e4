package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/sigcntrl/lampagent/pkg/board"
	"github.com/sigcntrl/lampagent/pkg/dispatch"
	"github.com/sigcntrl/lampagent/pkg/flicker"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/metrics"
	"github.com/sigcntrl/lampagent/pkg/output"
	"github.com/sigcntrl/lampagent/pkg/persistence"
	"github.com/sigcntrl/lampagent/pkg/powerup"
)

// DefaultCancelGrace bounds the wait for flicker tasks at shutdown.
const DefaultCancelGrace = 2 * time.Second

// Configuration errors.
var (
	ErrNoVariant = errors.New("agent: no board variant")
	ErrNoDriver  = errors.New("agent: no output driver")
	ErrNoConn    = errors.New("agent: no socket")
	ErrRunning   = errors.New("agent: already run")
)

// Config configures an Agent.
type Config struct {
	// Variant is the board wiring. Required.
	Variant *board.Variant

	// Driver drives the output lines. Required.
	Driver output.Driver

	// Conn is the bound heartbeat socket. Required. The agent closes it.
	Conn net.PacketConn

	// Remote is the supervisor address. Required.
	Remote net.Addr

	// Animated overrides the variant's flicker channels when non-nil.
	Animated []int

	// FlickerIntervals is the blink table. Default: flicker.DefaultIntervals.
	FlickerIntervals []int

	// MinRuntime and MaxRuntime bound the flicker runtime.
	// Default: 5 s to 500 s.
	MinRuntime time.Duration
	MaxRuntime time.Duration

	// Seed seeds all random draws. Zero seeds from the clock.
	Seed int64

	// ResendInterval is the heartbeat interval. Default: 1 s.
	ResendInterval time.Duration

	// CancelGrace bounds the wait for flicker tasks. Default: 2 s.
	CancelGrace time.Duration

	// StateStore persists statistics across runs. May be nil.
	StateStore *persistence.StateStore

	// Metrics exports counters. May be nil.
	Metrics *metrics.Collector

	// Logger is the optional logger. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger captures protocol events. May be nil.
	ProtocolLogger log.Logger
}

// Result describes how a run ended.
type Result struct {
	// ShutdownRequested is true when the supervisor sent END.
	ShutdownRequested bool

	// SessionID identifies the heartbeat session.
	SessionID string

	// Stats are the final session counters.
	Stats heartbeat.Stats

	// StartedAt and EndedAt bound the run.
	StartedAt time.Time
	EndedAt   time.Time
}

// Phase is the agent lifecycle phase.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePowerUp
	PhaseRunning
	PhaseStopping
	PhaseStopped
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhasePowerUp:
		return "POWER_UP"
	case PhaseRunning:
		return "RUNNING"
	case PhaseStopping:
		return "STOPPING"
	case PhaseStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Agent is one run of the lamp agent.
type Agent struct {
	config Config

	mu         sync.Mutex
	phase      Phase
	session    *heartbeat.Session
	supervisor *flicker.Supervisor
	bank       *output.Bank
}

// New validates config and creates an agent.
func New(config Config) (*Agent, error) {
	if config.Variant == nil {
		return nil, ErrNoVariant
	}
	if config.Driver == nil {
		return nil, ErrNoDriver
	}
	if config.Conn == nil {
		return nil, ErrNoConn
	}
	if config.Remote == nil {
		return nil, heartbeat.ErrNoRemote
	}
	if config.Animated == nil {
		config.Animated = config.Variant.Flicker
	}
	if config.CancelGrace <= 0 {
		config.CancelGrace = DefaultCancelGrace
	}
	return &Agent{config: config}, nil
}

// Run drives the agent until END or ctx is cancelled. The returned error
// is non-nil only when the outputs could not be initialized.
func (a *Agent) Run(ctx context.Context) (Result, error) {
	a.mu.Lock()
	if a.phase != PhaseIdle {
		a.mu.Unlock()
		return Result{}, ErrRunning
	}
	a.phase = PhasePowerUp
	a.mu.Unlock()
	a.capturePhase(PhaseIdle, PhasePowerUp, "")

	res := Result{StartedAt: time.Now()}
	v := a.config.Variant

	bank := output.NewBank(a.config.Driver, v.Channels, a.config.Logger)
	if err := bank.InitializeAll(); err != nil {
		a.setPhase(PhaseStopped, "output init failed")
		_ = a.config.Conn.Close()
		return res, fmt.Errorf("agent: initializing outputs: %w", err)
	}

	sup := flicker.NewSupervisor(context.WithoutCancel(ctx), bank, flicker.Config{
		Intervals: a.config.FlickerIntervals,
		Seed:      a.config.Seed,
		Logger:    a.config.Logger,
	})

	dcfg := dispatch.Config{
		Outputs:     bank,
		Flicker:     sup,
		Headers:     v,
		CancelGrace: a.config.CancelGrace,
		Logger:      a.config.Logger,
	}
	if a.config.Metrics != nil {
		dcfg.OnCommand = a.config.Metrics.ObserveCommand
	}
	disp := dispatch.New(dcfg)

	session, err := heartbeat.NewSession(a.config.Conn, heartbeat.Config{
		Remote:         a.config.Remote,
		Handler:        func(body string) { disp.Dispatch(body) },
		ResendInterval: a.config.ResendInterval,
		Variant:        v.Name,
		Logger:         a.config.Logger,
		ProtocolLogger: a.config.ProtocolLogger,
	})
	if err != nil {
		_ = bank.Close()
		_ = a.config.Conn.Close()
		a.setPhase(PhaseStopped, "session failed")
		return res, err
	}
	disp.SetProtocolLogger(a.config.ProtocolLogger, session.ID())
	res.SessionID = session.ID()

	a.mu.Lock()
	a.session = session
	a.supervisor = sup
	a.bank = bank
	a.mu.Unlock()

	if a.config.Metrics != nil {
		a.config.Metrics.Bind(metrics.Sources{
			Heartbeat:     session.Stats,
			FlickerActive: sup.Active,
		})
	}

	a.logInfo("agent starting", "variant", v.Name, "channels", len(v.Channels), "remote", a.config.Remote)

	seq := powerup.NewSequencer(v.PowerUpPlan(), bank, sup, powerup.Config{
		Animated:   a.config.Animated,
		MinRuntime: a.config.MinRuntime,
		MaxRuntime: a.config.MaxRuntime,
		Seed:       a.config.Seed,
		Logger:     a.config.Logger,
	})
	if err := seq.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logWarn("power-up sequence failed", "error", err)
	}

	if ctx.Err() == nil {
		a.setPhase(PhaseRunning, "")
		_ = session.SendHeartbeat()
		a.loop(ctx, session, disp)
	}

	res.ShutdownRequested = disp.ShutdownRequested()
	reason := "context cancelled"
	if res.ShutdownRequested {
		reason = "shutdown requested"
	}
	a.setPhase(PhaseStopping, reason)

	// Tasks write nothing once cancelled, so the forced off below is final.
	if err := sup.Cancel(a.config.CancelGrace); err != nil {
		a.logWarn("stopping flicker tasks failed", "error", err)
	}
	if err := bank.Close(); err != nil {
		a.logWarn("releasing outputs failed", "error", err)
	}
	if err := session.Close(); err != nil {
		a.logWarn("closing session failed", "error", err)
	}

	res.Stats = session.Stats()
	res.EndedAt = time.Now()
	a.persist(res, reason)

	a.setPhase(PhaseStopped, reason)
	a.logInfo("agent stopped", "reason", reason)
	return res, nil
}

// loop polls, applies the resend policy and ticks until END or ctx is done.
func (a *Agent) loop(ctx context.Context, session *heartbeat.Session, disp *dispatch.Dispatcher) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		pending := session.Poll()
		sent := false
		if session.Due(time.Now()) {
			_ = session.SendHeartbeat()
			sent = true
		}
		if disp.ShutdownRequested() {
			// END is always acknowledged with its echo before the session closes.
			if !sent {
				_ = session.SendHeartbeat()
			}
			return
		}

		timer.Reset(heartbeat.Tick(pending))
		select {
		case <-ctx.Done():
			return
		case <-disp.Shutdown():
			// The next pass sends the echo and returns.
		case <-timer.C:
		}
	}
}

func (a *Agent) persist(res Result, reason string) {
	if a.config.StateStore == nil {
		return
	}
	_, err := a.config.StateStore.Update(func(s *persistence.AgentState) {
		s.Variant = a.config.Variant.Name
		s.Record(persistence.SessionRecord{
			ID:        res.SessionID,
			Remote:    a.config.Remote.String(),
			StartedAt: res.StartedAt,
			EndedAt:   res.EndedAt,
			Reason:    reason,
			Stats:     res.Stats,
		}, res.ShutdownRequested)
	})
	if err != nil {
		a.logWarn("persisting statistics failed", "path", a.config.StateStore.Path(), "error", err)
	}
}

// Phase returns the current lifecycle phase.
func (a *Agent) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Stats returns the live session counters, zero before the session opens.
func (a *Agent) Stats() heartbeat.Stats {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return heartbeat.Stats{}
	}
	return s.Stats()
}

// SessionID returns the session identifier, empty before the session opens.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.ID()
}

// LastMessage returns the body the next heartbeat will echo.
func (a *Agent) LastMessage() string {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return ""
	}
	return s.LastMessage()
}

// FlickerActive returns the number of running flicker tasks.
func (a *Agent) FlickerActive() int {
	a.mu.Lock()
	s := a.supervisor
	a.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.Active()
}

// LocalAddr returns the heartbeat socket address.
func (a *Agent) LocalAddr() net.Addr {
	return a.config.Conn.LocalAddr()
}

// Variant returns the board variant.
func (a *Agent) Variant() *board.Variant {
	return a.config.Variant
}

func (a *Agent) setPhase(p Phase, reason string) {
	a.mu.Lock()
	old := a.phase
	a.phase = p
	a.mu.Unlock()
	if old != p {
		a.capturePhase(old, p, reason)
	}
}

func (a *Agent) capturePhase(old, p Phase, reason string) {
	if a.config.ProtocolLogger == nil {
		return
	}
	a.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: a.SessionID(),
		Layer:     log.LayerControl,
		Category:  log.CategoryState,
		Variant:   a.config.Variant.Name,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAgent,
			OldState: old.String(),
			NewState: p.String(),
			Reason:   reason,
		},
	})
}

func (a *Agent) logInfo(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Info(msg, args...)
	}
}

func (a *Agent) logWarn(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Warn(msg, args...)
	}
}
