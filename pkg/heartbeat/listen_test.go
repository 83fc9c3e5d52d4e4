package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenLoopback(t *testing.T) {
	ctx := context.Background()

	agentConn, err := Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	peerConn, err := Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer peerConn.Close()

	var bodies []string
	s, err := NewSession(agentConn, Config{
		Remote:     peerConn.LocalAddr(),
		Handler:    func(body string) { bodies = append(bodies, body) },
		PollWindow: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = peerConn.WriteTo([]byte("ILED_ON4>>>0"), agentConn.LocalAddr())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s.Poll()
		return len(bodies) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ILED_ON4", s.LastMessage())

	require.NoError(t, s.SendHeartbeat())

	buf := make([]byte, 1024)
	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := peerConn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "ILED_ON4>>>0", string(buf[:n]))
}

func TestResolveRemote(t *testing.T) {
	addr, err := ResolveRemote("127.0.0.1", DefaultPort)
	require.NoError(t, err)
	assert.Equal(t, 65433, addr.Port)
}
