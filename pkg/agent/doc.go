// Package agent runs the lamp agent main loop.
//
// An Agent owns the output bank, the flicker supervisor, the command
// dispatcher and the heartbeat session for one run. Run drives the unit
// through its whole life:
//
//	initialize outputs off
//	power-up sequence
//	first heartbeat
//	loop: poll, resend policy, tick
//	stop flicker tasks and wait for them
//	outputs off, driver released
//	close the session, persist statistics
//
// The loop ends when the supervisor sends END or the context is cancelled.
// Run reports which of the two happened; acting on END (powering the unit
// down) is left to the caller.
package agent
