// Package discovery implements mDNS/DNS-SD discovery for lamp agents.
//
// Two service types are used:
//
// # Agent (_lampagent._udp)
//
// Every agent advertises itself with its heartbeat port. The instance name
// is the unit hostname. TXT records include: v (protocol version), var
// (board variant) and ch (number of wired channels).
//
// # Supervisor (_sigcntrl._udp)
//
// The supervisor advertises the port it expects heartbeats on. An agent
// started without a fixed supervisor host browses for this service and
// uses the first instance it sees.
package discovery
