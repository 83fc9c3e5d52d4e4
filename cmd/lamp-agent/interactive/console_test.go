package interactive

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/sigcntrl/lampagent/pkg/agent"
	"github.com/sigcntrl/lampagent/pkg/board"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	variant *board.Variant
	addr    net.Addr
}

func (f *fakeAgent) Phase() agent.Phase      { return agent.PhaseRunning }
func (f *fakeAgent) SessionID() string       { return "session-1" }
func (f *fakeAgent) LastMessage() string     { return "ILED_ON7" }
func (f *fakeAgent) FlickerActive() int      { return 1 }
func (f *fakeAgent) LocalAddr() net.Addr     { return f.addr }
func (f *fakeAgent) Variant() *board.Variant { return f.variant }
func (f *fakeAgent) Stats() heartbeat.Stats {
	return heartbeat.Stats{Sent: 12, Received: 10, InOrder: 9, Lost: 2, Restarts: 1}
}

type fakeOutputs map[int]bool

func (f fakeOutputs) States() map[int]bool { return f }

func newTestConsole(t *testing.T, addr net.Addr) (*Console, *bytes.Buffer) {
	t.Helper()
	v, err := board.Load("nth")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	c := newConsole(out)
	c.Attach(&fakeAgent{variant: v, addr: addr}, fakeOutputs{25: true, 7: true})
	t.Cleanup(c.closeConn)
	return c, out
}

func TestExecuteCommands(t *testing.T) {
	tests := []struct {
		line string
		want []string
		more bool
	}{
		{"status", []string{"RUNNING", "nth (21 channels)", "session-1", `"ILED_ON7"`}, true},
		{"stats", []string{"Sent:            12 (0 failed)", "Lost:            2", "Restarts:        1"}, true},
		{"outputs", []string{"J1  (header 1): # . . . # . . .", "On: [7 25]"}, true},
		{"bogus", []string{"Unknown command: bogus"}, true},
		{"inject", []string{"Usage: inject"}, true},
		{"inject ON x", []string{"Invalid sequence: x"}, true},
		{"", nil, true},
		{"quit", []string{"Exiting..."}, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, out := newTestConsole(t, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1})
			assert.Equal(t, tt.more, c.Execute(tt.line))
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestInjectSendsToAgent(t *testing.T) {
	listener, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	c, out := newTestConsole(t, listener.LocalAddr())
	require.True(t, c.Execute("inject ILED_ON7"))
	require.True(t, c.Execute("inject REQ 9"))
	require.True(t, c.Execute("inject OFF"))
	assert.Contains(t, out.String(), "Sent ILED_ON7>>>0")

	buf := make([]byte, 64)
	var got []string
	for range 3 {
		require.NoError(t, listener.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := listener.ReadFrom(buf)
		require.NoError(t, err)
		got = append(got, string(buf[:n]))
	}
	assert.Equal(t, []string{"ILED_ON7>>>0", "REQ>>>9", "OFF>>>10"}, got)
}

func TestLoopbackTarget(t *testing.T) {
	got, err := loopbackTarget(&net.UDPAddr{IP: net.IPv4zero, Port: 65433})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:65433", got.String())

	got, err = loopbackTarget(&net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 5})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:5", got.String())

	_, err = loopbackTarget(&net.TCPAddr{})
	assert.Error(t, err)
}
