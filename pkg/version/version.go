// Package version provides the agent's protocol version and the greeting
// carried by heartbeats until the supervisor sends its first command.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this agent.
const Current = "3.90"

// GreetingPrefix starts the heartbeat body sent before any command arrives.
const GreetingPrefix = "Hello client "

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor" with a two digit minor,
// matching the form the supervisor displays.
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%02d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Greeting returns the initial heartbeat body. The version is written the
// way deployed supervisors expect it: as a decimal with trailing zeros
// trimmed, so 3.90 goes out as "3.9".
func Greeting() string {
	return GreetingPrefix + decimalForm(Current)
}

// FromGreeting extracts the version from a greeting body.
func FromGreeting(body string) (ProtocolVersion, error) {
	if !strings.HasPrefix(body, GreetingPrefix) {
		return ProtocolVersion{}, fmt.Errorf("not a greeting: %q", body)
	}
	s := strings.TrimPrefix(body, GreetingPrefix)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 == 1 {
		s += "0"
	}
	return Parse(s)
}

func decimalForm(v string) string {
	major, minor, ok := strings.Cut(v, ".")
	if !ok {
		return v
	}
	minor = strings.TrimRight(minor, "0")
	if minor == "" {
		minor = "0"
	}
	return major + "." + minor
}
