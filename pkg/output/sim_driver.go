package output

import (
	"maps"
	"slices"
	"sync"
)

// Write is one recorded channel write.
type Write struct {
	Channel int
	On      bool
}

// historyCapacity bounds the recorded write history.
const historyCapacity = 4096

// SimDriver implements Driver in memory for development hosts and tests.
type SimDriver struct {
	mu       sync.Mutex
	states   map[int]bool
	history  []Write
	setups   int
	closed   bool
	onChange func(channel int, on bool)
}

// NewSimDriver creates an empty simulated driver.
func NewSimDriver() *SimDriver {
	return &SimDriver{states: make(map[int]bool)}
}

// OnChange registers a callback invoked after every write.
// The callback runs with the bank lock held and must not write outputs.
func (d *SimDriver) OnChange(fn func(channel int, on bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

func (d *SimDriver) Setup(channels []int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.setups++
	d.closed = false
	for _, ch := range channels {
		d.states[ch] = false
	}
	return nil
}

func (d *SimDriver) Set(channel int, on bool) error {
	d.mu.Lock()
	d.states[channel] = on
	if len(d.history) == historyCapacity {
		// Keep memory bounded on long runs
		d.history = slices.Delete(d.history, 0, historyCapacity/2)
	}
	d.history = append(d.history, Write{Channel: channel, On: on})
	fn := d.onChange
	d.mu.Unlock()

	if fn != nil {
		fn(channel, on)
	}
	return nil
}

func (d *SimDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// State returns the last written state of channel.
func (d *SimDriver) State(channel int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[channel]
}

// States returns a copy of all channel states.
func (d *SimDriver) States() map[int]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.states)
}

// Writes returns a copy of the recorded write history.
func (d *SimDriver) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.history)
}

// WritesTo returns the recorded writes to one channel.
func (d *SimDriver) WritesTo(channel int) []Write {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Write
	for _, w := range d.history {
		if w.Channel == channel {
			out = append(out, w)
		}
	}
	return out
}

// Setups returns how many times Setup was called.
func (d *SimDriver) Setups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setups
}

// Closed reports whether Close was called since the last Setup.
func (d *SimDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Compile-time interface satisfaction check.
var _ Driver = (*SimDriver)(nil)
