package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// DefaultBrowseTimeout bounds a supervisor lookup.
const DefaultBrowseTimeout = 10 * time.Second

// Browser finds supervisors on the local network.
type Browser interface {
	// BrowseSupervisors emits supervisors until ctx is done.
	BrowseSupervisors(ctx context.Context) (<-chan *SupervisorService, error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// BrowseSupervisors searches for supervisors. Each instance is emitted
// once, the first time it resolves with an address.
func (b *MDNSBrowser) BrowseSupervisors(ctx context.Context) (<-chan *SupervisorService, error) {
	out := make(chan *SupervisorService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]bool)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToSupervisor(entry)
				if svc == nil || seen[svc.InstanceName] {
					continue
				}
				seen[svc.InstanceName] = true
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if ok {
					delete(seen, entry.Instance)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceTypeSupervisor, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToSupervisor converts a zeroconf entry. Entries without an
// address are skipped.
func entryToSupervisor(entry *zeroconf.ServiceEntry) *SupervisorService {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	if len(addrs) == 0 {
		return nil
	}

	port := entry.Port
	if port <= 0 || port > 65535 {
		port = DefaultPort
	}
	return &SupervisorService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(port),
		Addresses:    addrs,
	}
}

// Addr returns the heartbeat address of the service, preferring IPv4.
func (s *SupervisorService) Addr() string {
	return net.JoinHostPort(s.Addresses[0], strconv.Itoa(int(s.Port)))
}

// LocateSupervisor returns the first supervisor b finds within timeout.
func LocateSupervisor(ctx context.Context, b Browser, timeout time.Duration) (*SupervisorService, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	services, err := b.BrowseSupervisors(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case svc, ok := <-services:
		if ok && svc != nil {
			return svc, nil
		}
		return nil, fmt.Errorf("%s: %w", ServiceTypeSupervisor, ErrNotFound)
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", ServiceTypeSupervisor, ErrNotFound)
	}
}

// Compile-time interface satisfaction check.
var _ Browser = (*MDNSBrowser)(nil)
