// Package flicker animates lamp channels with a fluorescent-tube start-up
// flicker.
//
// Each animated channel runs as its own Task goroutine. A task sleeps for a
// randomized interval drawn around an entry of a fixed interval table,
// toggles its channel, and moves to the next entry. A bounded task forces
// its channel on when its runtime is over; an unbounded task flickers until
// cancelled.
//
// Tasks run under a Supervisor backed by a stopper context. The stopping
// channel is the cancellation token every task selects on while it sleeps,
// so a cancelled task wakes at once and exits without writing. Cancel stops
// the whole set and waits until every task has returned; the caller owns the
// final channel state after that.
package flicker
