package discovery

import (
	"errors"
	"time"
)

// Service types and domain.
const (
	ServiceTypeAgent      = "_lampagent._udp"
	ServiceTypeSupervisor = "_sigcntrl._udp"
	Domain                = "local."

	// DefaultPort is the heartbeat port advertised when none is set.
	DefaultPort = 65433

	// DefaultTTL is the advertised record TTL.
	DefaultTTL = 120 * time.Second

	// MaxInstanceNameLen is the DNS-SD instance label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyVersion  = "v"
	TXTKeyVariant  = "var"
	TXTKeyChannels = "ch"
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("discovery: missing required TXT record")
	ErrInvalidTXTRecord    = errors.New("discovery: invalid TXT record")
	ErrInstanceNameTooLong = errors.New("discovery: invalid instance name")
	ErrNotFound            = errors.New("discovery: service not found")
)

// AgentInfo is what an agent advertises about itself.
type AgentInfo struct {
	// Instance is the instance name, usually the hostname.
	Instance string

	// Port is the heartbeat port.
	Port uint16

	// Version is the protocol version, e.g. "3.90".
	Version string

	// Variant is the board variant name.
	Variant string

	// Channels is the number of wired output channels.
	Channels int
}

// SupervisorService is a supervisor found on the network.
type SupervisorService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
}
