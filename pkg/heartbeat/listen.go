package heartbeat

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// DefaultPort is used both for the local socket and the supervisor.
const DefaultPort = 65433

// Listen binds a UDP socket on addr with address reuse enabled, so a
// restarted agent can rebind its port at once.
func Listen(ctx context.Context, addr string) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: listen %s: %w", addr, err)
	}
	return conn, nil
}

// ResolveRemote resolves the supervisor address.
func ResolveRemote(host string, port int) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("heartbeat: resolve %s: %w", host, err)
	}
	return addr, nil
}
