package agent

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sigcntrl/lampagent/pkg/board"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/output"
	"github.com/sigcntrl/lampagent/pkg/persistence"
	"github.com/sigcntrl/lampagent/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBoard = `
name: bench
channels: [4, 5, 6, 7]
headers:
  - {name: J1, start: 0, pins: 4}
power_up:
  - {channels: [4, 5], delay_ms: 0}
  - {channels: [6, 7], delay_ms: 0}
flicker: [7]
`

type recorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recorder) Log(ev log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}

type result struct {
	res Result
	err error
}

type rig struct {
	agent *Agent
	drv   *output.SimDriver
	peer  net.PacketConn
	store *persistence.StateStore
	done  chan result
}

func startRig(t *testing.T, ctx context.Context, mutate func(*Config)) *rig {
	t.Helper()
	variant, err := board.Parse([]byte(testBoard))
	require.NoError(t, err)

	conn, err := heartbeat.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	peer, err := heartbeat.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })

	r := &rig{
		drv:   output.NewSimDriver(),
		peer:  peer,
		store: persistence.NewStateStore(filepath.Join(t.TempDir(), "state.json")),
		done:  make(chan result, 1),
	}
	cfg := Config{
		Variant:          variant,
		Driver:           r.drv,
		Conn:             conn,
		Remote:           peer.LocalAddr(),
		FlickerIntervals: []int{4},
		MinRuntime:       500 * time.Second,
		MaxRuntime:       500 * time.Second,
		Seed:             7,
		ResendInterval:   200 * time.Millisecond,
		StateStore:       r.store,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r.agent, err = New(cfg)
	require.NoError(t, err)

	go func() {
		res, err := r.agent.Run(ctx)
		r.done <- result{res, err}
	}()
	return r
}

// next reads one heartbeat and returns its body and sequence text.
func (r *rig) next(t *testing.T) (string, string) {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, r.peer.SetReadDeadline(time.Now().Add(3*time.Second)))
	n, _, err := r.peer.ReadFrom(buf)
	require.NoError(t, err)
	msg := string(buf[:n])
	i := strings.LastIndex(msg, ">>>")
	require.GreaterOrEqual(t, i, 0, "datagram %q has no delimiter", msg)
	return msg[:i], msg[i+3:]
}

// await reads heartbeats until one carries body.
func (r *rig) await(t *testing.T, body string) {
	t.Helper()
	for range 20 {
		got, _ := r.next(t)
		if got == body {
			return
		}
	}
	t.Fatalf("no heartbeat echoed %q", body)
}

func (r *rig) send(t *testing.T, msg string) {
	t.Helper()
	_, err := r.peer.WriteTo([]byte(msg), r.agent.LocalAddr())
	require.NoError(t, err)
}

func (r *rig) wait(t *testing.T) result {
	t.Helper()
	select {
	case out := <-r.done:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
		return result{}
	}
}

func TestNewValidatesConfig(t *testing.T) {
	variant, err := board.Parse([]byte(testBoard))
	require.NoError(t, err)
	remote := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: heartbeat.DefaultPort}
	conn, err := heartbeat.Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	drv := output.NewSimDriver()

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no variant", Config{Driver: drv, Conn: conn, Remote: remote}, ErrNoVariant},
		{"no driver", Config{Variant: variant, Conn: conn, Remote: remote}, ErrNoDriver},
		{"no conn", Config{Variant: variant, Driver: drv, Remote: remote}, ErrNoConn},
		{"no remote", Config{Variant: variant, Driver: drv, Conn: conn}, heartbeat.ErrNoRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	a, err := New(Config{Variant: variant, Driver: drv, Conn: conn, Remote: remote})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, a.config.Animated)
	assert.Equal(t, DefaultCancelGrace, a.config.CancelGrace)
	assert.Equal(t, PhaseIdle, a.Phase())
}

func TestRunEndToEnd(t *testing.T) {
	r := startRig(t, context.Background(), nil)

	body, seq := r.next(t)
	assert.Equal(t, version.Greeting(), body)
	assert.Equal(t, "0", seq)

	require.Eventually(t, func() bool { return r.agent.Phase() == PhaseRunning }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, r.agent.FlickerActive())
	assert.True(t, r.drv.State(4))
	assert.True(t, r.drv.State(6))

	r.send(t, "ILED_OFF4>>>0")
	r.await(t, "ILED_OFF4")
	assert.False(t, r.drv.State(4))
	assert.Equal(t, "ILED_OFF4", r.agent.LastMessage())

	r.send(t, "REQ>>>1")
	r.await(t, "ILED_OFF4")

	r.send(t, "END>>>2")
	out := r.wait(t)
	require.NoError(t, out.err)

	assert.True(t, out.res.ShutdownRequested)
	assert.Equal(t, r.agent.SessionID(), out.res.SessionID)
	assert.EqualValues(t, 3, out.res.Stats.Received)
	assert.EqualValues(t, 3, out.res.Stats.InOrder)
	assert.EqualValues(t, 1, out.res.Stats.ResendRequests)
	assert.Equal(t, PhaseStopped, r.agent.Phase())
	assert.Equal(t, 0, r.agent.FlickerActive())

	for ch, on := range r.drv.States() {
		assert.False(t, on, "channel %d left on", ch)
	}
	assert.True(t, r.drv.Closed())

	state, err := r.store.Load()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "bench", state.Variant)
	assert.EqualValues(t, 1, state.Runs)
	assert.EqualValues(t, 1, state.Shutdowns)
	require.NotNil(t, state.LastSession)
	assert.Equal(t, out.res.SessionID, state.LastSession.ID)
	assert.Equal(t, "shutdown requested", state.LastSession.Reason)
}

func TestRunEchoesEndBeforeStopping(t *testing.T) {
	// No resend falls due on its own during the test.
	r := startRig(t, context.Background(), func(c *Config) { c.ResendInterval = time.Hour })

	_, seq := r.next(t)
	require.Equal(t, "0", seq)

	r.send(t, "END>>>0")
	body, seq := r.next(t)
	assert.Equal(t, "END", body)
	assert.Equal(t, "1", seq)

	out := r.wait(t)
	require.NoError(t, out.err)
	assert.True(t, out.res.ShutdownRequested)
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := startRig(t, ctx, nil)

	r.next(t)
	cancel()
	out := r.wait(t)
	require.NoError(t, out.err)

	assert.False(t, out.res.ShutdownRequested)
	assert.True(t, r.drv.Closed())

	state, err := r.store.Load()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.EqualValues(t, 0, state.Shutdowns)
	require.NotNil(t, state.LastSession)
	assert.Equal(t, "context cancelled", state.LastSession.Reason)
}

func TestRunResendsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startRig(t, ctx, func(c *Config) { c.ResendInterval = 50 * time.Millisecond })

	seqs := make([]string, 0, 4)
	for range 4 {
		_, seq := r.next(t)
		seqs = append(seqs, seq)
	}
	assert.Equal(t, []string{"0", "1", "2", "3"}, seqs)

	cancel()
	r.wait(t)
}

func TestRunTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := startRig(t, ctx, nil)
	r.next(t)
	cancel()
	r.wait(t)

	_, err := r.agent.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunning)
}

func TestRunCapturesPhases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	r := startRig(t, ctx, func(c *Config) { c.ProtocolLogger = rec })

	r.next(t)
	cancel()
	r.wait(t)

	var phases []string
	for _, ev := range rec.snapshot() {
		if ev.StateChange != nil && ev.StateChange.Entity == log.StateEntityAgent {
			phases = append(phases, ev.StateChange.NewState)
		}
	}
	assert.Equal(t, []string{"POWER_UP", "RUNNING", "STOPPING", "STOPPED"}, phases)
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "IDLE"},
		{PhasePowerUp, "POWER_UP"},
		{PhaseRunning, "RUNNING"},
		{PhaseStopping, "STOPPING"},
		{PhaseStopped, "STOPPED"},
		{Phase(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
