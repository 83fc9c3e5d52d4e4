//go:build linux

package output

import (
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver drives Raspberry Pi GPIO lines by BCM number.
type RPiDriver struct {
	mu     sync.Mutex
	opened bool
}

// NewRPiDriver creates a driver; the GPIO memory is mapped on Setup.
func NewRPiDriver() *RPiDriver {
	return &RPiDriver{}
}

func (d *RPiDriver) Setup(channels []int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		if err := rpio.Open(); err != nil {
			return err
		}
		d.opened = true
	}
	for _, ch := range channels {
		pin := rpio.Pin(ch)
		pin.Output()
		pin.Low()
	}
	return nil
}

func (d *RPiDriver) Set(channel int, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return ErrClosed
	}
	if on {
		rpio.Pin(channel).High()
	} else {
		rpio.Pin(channel).Low()
	}
	return nil
}

func (d *RPiDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return nil
	}
	d.opened = false
	return rpio.Close()
}

// Compile-time interface satisfaction check.
var _ Driver = (*RPiDriver)(nil)
