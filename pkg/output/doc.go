// Package output drives the bank of lamp channels.
//
// A Driver is the hardware capability: configure channels as outputs, drive
// one channel, release the hardware. RPiDriver talks to the Raspberry Pi
// GPIO block through go-rpio; SimDriver keeps the channel states in memory
// for development machines and tests. The driver is chosen explicitly at
// startup.
//
// Bank wraps a Driver with the single shared output lock. Every writer (the
// power-up sequencer, flicker tasks, the command dispatcher) goes through
// Bank, which holds the lock for exactly one channel write and never across
// a sleep.
package output
