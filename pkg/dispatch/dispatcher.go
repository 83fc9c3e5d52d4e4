// Package dispatch applies heartbeat command bodies to the lamp outputs.
package dispatch

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

// DefaultCancelGrace bounds how long ALL_ON, ALL_OFF and END wait for the
// flicker tasks to leave before their context is cancelled.
const DefaultCancelGrace = 2 * time.Second

// ErrUnknownChannel is reported when a command names an unwired channel.
var ErrUnknownChannel = errors.New("dispatch: channel not configured")

// Outputs is the lamp bank; output.Bank satisfies it.
type Outputs interface {
	Has(channel int) bool
	Set(channel int, on bool) error
	AllOn() error
	AllOff() error
}

// Flicker is the running flicker set; flicker.Supervisor satisfies it.
type Flicker interface {
	Active() int
	Cancel(grace time.Duration) error
}

// HeaderMap translates header/pin pairs; board.Variant satisfies it.
type HeaderMap interface {
	HeaderChannel(header, pin int) (int, error)
}

// Config configures a Dispatcher.
type Config struct {
	Outputs Outputs

	// Flicker is the flicker set to stop on ALL_ON, ALL_OFF and END.
	// May be nil.
	Flicker Flicker

	// Headers translates header commands. If nil, header commands are
	// rejected.
	Headers HeaderMap

	// CancelGrace is passed to Flicker.Cancel. Default: DefaultCancelGrace.
	CancelGrace time.Duration

	// OnCommand is called after every dispatch with the command and the
	// error, if any, that kept it from taking effect.
	OnCommand func(cmd wire.Command, err error)

	// Logger is the optional logger. If nil, logging is disabled.
	Logger *slog.Logger
}

// Dispatcher turns inbound bodies into output effects.
type Dispatcher struct {
	config Config

	mu             sync.Mutex
	protocolLogger log.Logger
	sessionID      string

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New creates a dispatcher.
func New(config Config) *Dispatcher {
	if config.CancelGrace <= 0 {
		config.CancelGrace = DefaultCancelGrace
	}
	return &Dispatcher{
		config:   config,
		shutdown: make(chan struct{}),
	}
}

// SetProtocolLogger sets the protocol logger and session ID.
// Events logged will include the sessionID for correlation.
func (d *Dispatcher) SetProtocolLogger(logger log.Logger, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protocolLogger = logger
	d.sessionID = sessionID
}

// Dispatch parses body and applies its effect. Malformed and unknown
// bodies are ignored.
func (d *Dispatcher) Dispatch(body string) wire.Command {
	cmd, err := wire.ParseCommand(body)
	if err != nil {
		d.logWarn("ignoring malformed command", "body", body, "error", err)
		d.finish(cmd, body, nil, 0, err)
		return cmd
	}

	var (
		channels  []int
		cancelled int
	)

	switch cmd.Kind {
	case wire.KindIgnored, wire.KindResendRequest:
		// Echo and resend are the session's business.

	case wire.KindAllOn, wire.KindAllOff:
		cancelled = d.stopFlicker()
		if cmd.Kind == wire.KindAllOn {
			err = d.config.Outputs.AllOn()
		} else {
			err = d.config.Outputs.AllOff()
		}
		if err != nil {
			d.logWarn("switching all channels failed", "command", cmd, "error", err)
		}

	case wire.KindShutdown:
		cancelled = d.stopFlicker()
		d.shutdownOnce.Do(func() { close(d.shutdown) })
		if d.config.Logger != nil {
			d.config.Logger.Info("shutdown requested")
		}

	case wire.KindChannelOn, wire.KindChannelOff:
		err = d.setChannel(cmd.Channel, cmd.On())
		if err == nil {
			channels = []int{cmd.Channel}
		} else {
			d.logWarn("channel command failed", "command", cmd, "error", err)
		}

	case wire.KindHeaderOn, wire.KindHeaderOff:
		var ch int
		if d.config.Headers == nil {
			err = ErrUnknownChannel
		} else {
			ch, err = d.config.Headers.HeaderChannel(cmd.Header, cmd.Pin)
		}
		if err == nil {
			err = d.setChannel(ch, cmd.On())
		}
		if err == nil {
			channels = []int{ch}
		} else {
			d.logWarn("header command failed", "command", cmd, "error", err)
		}
	}

	d.finish(cmd, body, channels, cancelled, err)
	return cmd
}

// ShutdownRequested reports whether END has been received.
func (d *Dispatcher) ShutdownRequested() bool {
	select {
	case <-d.shutdown:
		return true
	default:
		return false
	}
}

// Shutdown returns a channel closed when END is received.
func (d *Dispatcher) Shutdown() <-chan struct{} {
	return d.shutdown
}

func (d *Dispatcher) setChannel(ch int, on bool) error {
	if !d.config.Outputs.Has(ch) {
		return ErrUnknownChannel
	}
	return d.config.Outputs.Set(ch, on)
}

// stopFlicker cancels the flicker set and waits for it. Tasks write
// nothing once cancelled, so the caller's write is the last one.
func (d *Dispatcher) stopFlicker() int {
	if d.config.Flicker == nil {
		return 0
	}
	n := d.config.Flicker.Active()
	if err := d.config.Flicker.Cancel(d.config.CancelGrace); err != nil {
		d.logWarn("stopping flicker tasks failed", "error", err)
	}
	return n
}

func (d *Dispatcher) finish(cmd wire.Command, body string, channels []int, cancelled int, err error) {
	if d.config.Logger != nil {
		d.config.Logger.Debug("dispatched", "body", body, "command", cmd, "channels", channels)
	}
	if d.config.OnCommand != nil {
		d.config.OnCommand(cmd, err)
	}

	d.mu.Lock()
	pl, sid := d.protocolLogger, d.sessionID
	d.mu.Unlock()
	if pl == nil {
		return
	}

	ev := &log.CommandEvent{
		Kind:      cmd.Kind,
		Body:      body,
		Channels:  channels,
		Cancelled: cancelled,
	}
	if cmd.Kind == wire.KindHeaderOn || cmd.Kind == wire.KindHeaderOff {
		h, p := cmd.Header, cmd.Pin
		ev.Header, ev.Pin = &h, &p
	}
	pl.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sid,
		Direction: log.DirectionIn,
		Layer:     log.LayerControl,
		Category:  log.CategoryCommand,
		Command:   ev,
	})
	if err != nil {
		pl.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: sid,
			Direction: log.DirectionIn,
			Layer:     log.LayerControl,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerControl,
				Message: err.Error(),
				Context: body,
			},
		})
	}
}

func (d *Dispatcher) logWarn(msg string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Warn(msg, args...)
	}
}
