package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reserved bodies.
const (
	BodyResendRequest = "REQ"
	BodyAllOn         = "ON"
	BodyAllOff        = "OFF"
	BodyShutdown      = "END"

	prefixChannelOn  = "ILED_ON"
	prefixChannelOff = "ILED_OFF"
	prefixHeaderOn   = "HLED_ON"
	prefixHeaderOff  = "HLED_OFF"

	// maxChannelDigits bounds the numeric suffix of ILED commands.
	maxChannelDigits = 2
)

// Parse errors.
var (
	// ErrBadLength indicates a command keyword with a suffix of the wrong length.
	ErrBadLength = errors.New("command suffix has wrong length")

	// ErrBadNumber indicates a command suffix that is not a decimal number.
	ErrBadNumber = errors.New("command suffix is not a number")
)

// Kind identifies a parsed command.
type Kind uint8

const (
	KindIgnored Kind = iota
	KindResendRequest
	KindAllOn
	KindAllOff
	KindShutdown
	KindChannelOn
	KindChannelOff
	KindHeaderOn
	KindHeaderOff
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "IGNORED"
	case KindResendRequest:
		return "RESEND_REQUEST"
	case KindAllOn:
		return "ALL_ON"
	case KindAllOff:
		return "ALL_OFF"
	case KindShutdown:
		return "SHUTDOWN"
	case KindChannelOn:
		return "CHANNEL_ON"
	case KindChannelOff:
		return "CHANNEL_OFF"
	case KindHeaderOn:
		return "HEADER_ON"
	case KindHeaderOff:
		return "HEADER_OFF"
	default:
		return "UNKNOWN"
	}
}

// Command is a parsed inbound body.
type Command struct {
	Kind Kind

	// Channel is set for KindChannelOn and KindChannelOff.
	Channel int

	// Header and Pin are set for KindHeaderOn and KindHeaderOff.
	Header int
	Pin    int
}

// On reports whether the command drives its target high.
func (c Command) On() bool {
	switch c.Kind {
	case KindAllOn, KindChannelOn, KindHeaderOn:
		return true
	default:
		return false
	}
}

// String returns a compact form of the command for logs.
func (c Command) String() string {
	switch c.Kind {
	case KindChannelOn, KindChannelOff:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Channel)
	case KindHeaderOn, KindHeaderOff:
		return fmt.Sprintf("%s(%d,%d)", c.Kind, c.Header, c.Pin)
	default:
		return c.Kind.String()
	}
}

// ParseCommand parses body into a Command.
//
// Unknown bodies return KindIgnored with a nil error. A known keyword whose
// suffix is malformed returns KindIgnored with ErrBadLength or ErrBadNumber.
// Keywords are tried longest first so "ILED_OFF5" is never read as an
// ILED_ON variant.
func ParseCommand(body string) (Command, error) {
	switch body {
	case BodyResendRequest:
		return Command{Kind: KindResendRequest}, nil
	case BodyAllOn:
		return Command{Kind: KindAllOn}, nil
	case BodyAllOff:
		return Command{Kind: KindAllOff}, nil
	case BodyShutdown:
		return Command{Kind: KindShutdown}, nil
	}

	switch {
	case strings.HasPrefix(body, prefixChannelOff):
		return parseChannel(KindChannelOff, body[len(prefixChannelOff):])
	case strings.HasPrefix(body, prefixChannelOn):
		return parseChannel(KindChannelOn, body[len(prefixChannelOn):])
	case strings.HasPrefix(body, prefixHeaderOff):
		return parseHeader(KindHeaderOff, body[len(prefixHeaderOff):])
	case strings.HasPrefix(body, prefixHeaderOn):
		return parseHeader(KindHeaderOn, body[len(prefixHeaderOn):])
	}

	return Command{Kind: KindIgnored}, nil
}

func parseChannel(kind Kind, suffix string) (Command, error) {
	if len(suffix) < 1 || len(suffix) > maxChannelDigits {
		return Command{Kind: KindIgnored}, fmt.Errorf("%s %q: %w", kind, suffix, ErrBadLength)
	}
	if !isDigits(suffix) {
		return Command{Kind: KindIgnored}, fmt.Errorf("%s %q: %w", kind, suffix, ErrBadNumber)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return Command{Kind: KindIgnored}, fmt.Errorf("%s %q: %w", kind, suffix, ErrBadNumber)
	}
	return Command{Kind: kind, Channel: n}, nil
}

func parseHeader(kind Kind, suffix string) (Command, error) {
	if len(suffix) != 2 {
		return Command{Kind: KindIgnored}, fmt.Errorf("%s %q: %w", kind, suffix, ErrBadLength)
	}
	if !isDigits(suffix) {
		return Command{Kind: KindIgnored}, fmt.Errorf("%s %q: %w", kind, suffix, ErrBadNumber)
	}
	return Command{
		Kind:   kind,
		Header: int(suffix[0] - '0'),
		Pin:    int(suffix[1] - '0'),
	}, nil
}
