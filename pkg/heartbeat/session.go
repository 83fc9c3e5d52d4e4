package heartbeat

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/version"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

// Resend policy constants.
const (
	// ResendInterval is the longest gap between two heartbeats.
	ResendInterval = 1000 * time.Millisecond

	// PendingTick is the loop tick while a resend request is pending.
	PendingTick = 50 * time.Millisecond

	// SteadyTick is the loop tick otherwise.
	SteadyTick = 100 * time.Millisecond

	// DefaultPollWindow bounds how long a Poll read waits for a datagram
	// that is not yet queued.
	DefaultPollWindow = time.Millisecond
)

// Session errors.
var (
	// ErrNoRemote is returned when no supervisor address is configured.
	ErrNoRemote = errors.New("heartbeat: no remote address")

	// ErrSessionClosed is returned when sending on a closed session.
	ErrSessionClosed = errors.New("heartbeat: session closed")
)

// Handler receives every inbound body, framed or not.
type Handler func(body string)

// Config configures a Session.
type Config struct {
	// Remote is the supervisor address heartbeats are sent to.
	Remote net.Addr

	// Greeting is the body sent until the first inbound body arrives.
	// Default: version.Greeting().
	Greeting string

	// Handler receives inbound bodies. May be nil.
	Handler Handler

	// PollWindow is the read deadline used by Poll. Default: DefaultPollWindow.
	PollWindow time.Duration

	// ResendInterval is the longest gap between heartbeats.
	// Default: ResendInterval.
	ResendInterval time.Duration

	// Variant is recorded in protocol capture events.
	Variant string

	// Logger is the optional logger. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger captures datagrams. If nil, capture is disabled.
	ProtocolLogger log.Logger
}

// Stats holds the session counters.
type Stats struct {
	Sent           uint64 `json:"sent"`
	SendFailures   uint64 `json:"send_failures"`
	Received       uint64 `json:"received"`
	InOrder        uint64 `json:"in_order"`
	Lost           uint64 `json:"lost"`
	Restarts       uint64 `json:"restarts"`
	ResendRequests uint64 `json:"resend_requests"`
	FramingErrors  uint64 `json:"framing_errors"`
}

// Add returns the sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Sent:           s.Sent + o.Sent,
		SendFailures:   s.SendFailures + o.SendFailures,
		Received:       s.Received + o.Received,
		InOrder:        s.InOrder + o.InOrder,
		Lost:           s.Lost + o.Lost,
		Restarts:       s.Restarts + o.Restarts,
		ResendRequests: s.ResendRequests + o.ResendRequests,
		FramingErrors:  s.FramingErrors + o.FramingErrors,
	}
}

// Session is the agent end of one heartbeat exchange.
// All methods are safe for concurrent use; Poll and SendHeartbeat are
// meant to be driven by a single control goroutine.
type Session struct {
	id     string
	conn   net.PacketConn
	remote net.Addr
	config Config

	mu          sync.Mutex
	seq         uint64
	lastMessage string
	pending     bool
	prevIndex   uint64
	hasPrev     bool
	lastSend    time.Time
	stats       Stats
	closed      bool

	buf []byte
}

// NewSession creates a session over conn. The session owns conn and
// closes it on Close.
func NewSession(conn net.PacketConn, config Config) (*Session, error) {
	if config.Remote == nil {
		return nil, ErrNoRemote
	}
	if config.Greeting == "" {
		config.Greeting = version.Greeting()
	}
	if config.PollWindow <= 0 {
		config.PollWindow = DefaultPollWindow
	}
	if config.ResendInterval <= 0 {
		config.ResendInterval = ResendInterval
	}

	s := &Session{
		id:          uuid.New().String(),
		conn:        conn,
		remote:      config.Remote,
		config:      config,
		lastMessage: config.Greeting,
		buf:         make([]byte, wire.MaxDatagramSize),
	}

	s.debugLog("heartbeat session opened",
		"session", s.id,
		"local", conn.LocalAddr(),
		"remote", s.remote)
	s.capture(log.Event{
		Layer:    log.LayerControl,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			NewState: "OPEN",
		},
	})
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Remote returns the supervisor address.
func (s *Session) Remote() net.Addr {
	return s.remote
}

// LocalAddr returns the bound socket address.
func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// SendHeartbeat sends the stored body with the next sequence number.
// The sequence number is consumed even if the transmission fails. The
// returned error is informational; the session stays usable.
func (s *Session) SendHeartbeat() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	seq := s.seq
	body := s.lastMessage
	s.seq++
	s.pending = false
	s.lastSend = time.Now()
	s.mu.Unlock()

	data := wire.Encode(body, seq)
	_, err := s.conn.WriteTo(data, s.remote)

	s.mu.Lock()
	if err != nil {
		s.stats.SendFailures++
	} else {
		s.stats.Sent++
	}
	s.mu.Unlock()

	if err != nil {
		s.logWarn("heartbeat send failed", "seq", seq, "error", err)
		s.captureError(log.LayerTransport, err, "sending heartbeat")
		return fmt.Errorf("heartbeat: send seq %d: %w", seq, err)
	}

	s.capture(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Datagram:  log.NewDatagramEvent(data, body, &seq),
	})
	return nil
}

// Poll drains every datagram queued on the socket without blocking and
// reports whether a resend request is pending.
func (s *Session) Poll() bool {
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.PollWindow)); err != nil {
			s.logWarn("heartbeat set deadline failed", "error", err)
			break
		}
		n, _, err := s.conn.ReadFrom(s.buf)
		if err != nil {
			if !isTimeout(err) && !errors.Is(err, net.ErrClosed) {
				s.logWarn("heartbeat receive failed", "error", err)
				s.captureError(log.LayerTransport, err, "receiving datagram")
			}
			break
		}
		s.receive(s.buf[:n])
	}
	return s.Pending()
}

// receive applies one datagram and hands its body to the handler.
func (s *Session) receive(data []byte) {
	pkt, err := wire.Decode(data)

	if err != nil {
		s.mu.Lock()
		s.stats.FramingErrors++
		// A bare REQ still asks for a resend; sequence state is left alone.
		if pkt.Body == wire.BodyResendRequest {
			s.requestResend()
		}
		s.mu.Unlock()

		s.logWarn("heartbeat framing error", "payload", pkt.Body, "error", err)
		s.capture(log.Event{
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Datagram:  log.NewDatagramEvent(data, pkt.Body, nil),
		})
		s.captureError(log.LayerWire, err, "decoding datagram")
	} else {
		s.mu.Lock()
		s.account(pkt)
		s.mu.Unlock()

		seq := pkt.Seq
		s.capture(log.Event{
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Datagram:  log.NewDatagramEvent(data, pkt.Body, &seq),
		})
	}

	if s.config.Handler != nil {
		s.config.Handler(pkt.Body)
	}
}

// account updates the counters for a well-framed packet. Caller holds mu.
func (s *Session) account(pkt wire.Packet) {
	s.stats.Received++

	if pkt.Body == wire.BodyResendRequest {
		s.requestResend()
	} else {
		s.lastMessage = pkt.Body
	}

	switch {
	case !s.hasPrev:
		s.stats.InOrder++
	case pkt.Seq == s.prevIndex+1:
		s.stats.InOrder++
	case pkt.Seq > s.prevIndex+1:
		s.stats.Lost += pkt.Seq - s.prevIndex - 1
	default:
		s.stats.Restarts++
		s.debugLog("heartbeat peer restart", "previous", s.prevIndex, "seq", pkt.Seq)
	}
	s.prevIndex = pkt.Seq
	s.hasPrev = true
}

// requestResend marks a resend as pending. Caller holds mu.
func (s *Session) requestResend() {
	s.pending = true
	s.stats.ResendRequests++
}

// Pending reports whether a resend request is waiting.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastMessage returns the body the next heartbeat will carry.
func (s *Session) LastMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessage
}

// LastSend returns the time of the last heartbeat, zero before the first.
func (s *Session) LastSend() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSend
}

// NextSeq returns the sequence number of the next heartbeat.
func (s *Session) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Due reports whether a heartbeat should be sent at now: immediately when
// a resend is pending, otherwise once the resend interval has passed.
func (s *Session) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending || now.Sub(s.lastSend) > s.config.ResendInterval
}

// Tick returns the control loop tick after a poll that saw a resend
// request (pending) or not.
func Tick(pending bool) time.Duration {
	if pending {
		return PendingTick
	}
	return SteadyTick
}

// Close logs the final counters and releases the socket.
// It is safe to call Close multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	st := s.stats
	s.mu.Unlock()

	if s.config.Logger != nil {
		s.config.Logger.Info("heartbeat session closed",
			"session", s.id,
			"sent", st.Sent,
			"received", st.Received,
			"in_order", st.InOrder,
			"resend_requests", st.ResendRequests,
			"lost", st.Lost,
			"restarts", st.Restarts,
			"framing_errors", st.FramingErrors,
			"send_failures", st.SendFailures)
	}
	s.capture(log.Event{
		Layer:    log.LayerControl,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: "OPEN",
			NewState: "CLOSED",
		},
	})

	return s.conn.Close()
}

func (s *Session) capture(ev log.Event) {
	if s.config.ProtocolLogger == nil {
		return
	}
	ev.Timestamp = time.Now()
	ev.SessionID = s.id
	ev.RemoteAddr = s.remote.String()
	ev.Variant = s.config.Variant
	s.config.ProtocolLogger.Log(ev)
}

func (s *Session) captureError(layer log.Layer, err error, context string) {
	s.capture(log.Event{
		Layer:    layer,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (s *Session) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, append(args, "session", s.id)...)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
