package output

import (
	"errors"
	"fmt"
	"strings"
)

// Output errors.
var (
	// ErrUnknownChannel indicates a write to a channel that is not wired.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrClosed indicates use of a bank after Close.
	ErrClosed = errors.New("output bank closed")

	// ErrUnsupported indicates the driver cannot run on this platform.
	ErrUnsupported = errors.New("driver not supported on this platform")
)

// Driver is the hardware capability behind a Bank.
type Driver interface {
	// Setup configures every channel as an output and drives it low.
	Setup(channels []int) error

	// Set drives one channel high (on) or low.
	Set(channel int, on bool) error

	// Close releases the hardware.
	Close() error
}

// DriverKind selects a Driver implementation.
type DriverKind string

const (
	DriverRPi DriverKind = "rpio"
	DriverSim DriverKind = "sim"
)

// ParseDriverKind parses a driver name (case-insensitive).
func ParseDriverKind(s string) (DriverKind, error) {
	switch DriverKind(strings.ToLower(s)) {
	case DriverRPi:
		return DriverRPi, nil
	case DriverSim:
		return DriverSim, nil
	default:
		return "", fmt.Errorf("invalid driver: %s (must be rpio or sim)", s)
	}
}

// NewDriver creates the driver for kind.
func NewDriver(kind DriverKind) (Driver, error) {
	switch kind {
	case DriverRPi:
		return NewRPiDriver(), nil
	case DriverSim:
		return NewSimDriver(), nil
	default:
		return nil, fmt.Errorf("invalid driver: %s", kind)
	}
}
