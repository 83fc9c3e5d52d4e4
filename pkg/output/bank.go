package output

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Bank serializes every channel write through one lock.
type Bank struct {
	mu sync.Mutex // the shared output lock; held for one write only

	drv      Driver
	channels []int
	wired    map[int]struct{}
	closed   bool
	logger   *slog.Logger
}

// NewBank creates a bank over the given wired channels.
// logger may be nil.
func NewBank(drv Driver, channels []int, logger *slog.Logger) *Bank {
	wired := make(map[int]struct{}, len(channels))
	for _, ch := range channels {
		wired[ch] = struct{}{}
	}
	return &Bank{
		drv:      drv,
		channels: slices.Clone(channels),
		wired:    wired,
		logger:   logger,
	}
}

// Channels returns the wired channels in wiring order.
func (b *Bank) Channels() []int {
	return slices.Clone(b.channels)
}

// Has reports whether ch is wired.
func (b *Bank) Has(ch int) bool {
	_, ok := b.wired[ch]
	return ok
}

// InitializeAll configures every channel as an output, all off.
func (b *Bank) InitializeAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.debugLog("initialising outputs", "channels", len(b.channels))
	return b.drv.Setup(b.channels)
}

// Set drives one channel.
func (b *Bank) Set(ch int, on bool) error {
	if !b.Has(ch) {
		return fmt.Errorf("channel %d: %w", ch, ErrUnknownChannel)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	return b.drv.Set(ch, on)
}

// AllOn drives every channel high, one locked write per channel.
func (b *Bank) AllOn() error {
	return b.setAll(true)
}

// AllOff drives every channel low, one locked write per channel.
func (b *Bank) AllOff() error {
	return b.setAll(false)
}

func (b *Bank) setAll(on bool) error {
	var firstErr error
	for _, ch := range b.channels {
		if err := b.Set(ch, on); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close drives every channel low and releases the driver.
// It is safe to call Close multiple times.
func (b *Bank) Close() error {
	offErr := b.AllOff()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.debugLog("releasing outputs")

	if err := b.drv.Close(); err != nil {
		return err
	}
	if offErr == ErrClosed {
		return nil
	}
	return offErr
}

func (b *Bank) debugLog(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
