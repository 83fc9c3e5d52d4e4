// Package heartbeat implements the agent side of the lamp heartbeat
// protocol.
//
// The agent and its supervisor exchange UDP datagrams of the form
// body>>>seq. Each direction numbers its own datagrams from zero. The agent
// echoes the body of the last well-framed inbound datagram back in every
// heartbeat, so the supervisor can confirm that a command arrived. The body
// REQ asks the agent to send a heartbeat at once.
//
// There is no handshake and no retransmission. A Session only counts what it
// sees: datagrams received in order, datagrams missing from a gap, and
// sequence regressions, which are read as a peer restart.
package heartbeat
