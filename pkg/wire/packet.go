package wire

import (
	"errors"
	"strconv"
	"strings"
)

// Framing constants.
const (
	// Delimiter separates the body from the sequence index.
	Delimiter = ">>>"

	// MaxDatagramSize is the largest datagram read from the socket.
	MaxDatagramSize = 1024
)

// Framing errors.
var (
	// ErrNoDelimiter indicates the datagram carries no ">>>" tail.
	ErrNoDelimiter = errors.New("no packet count on incoming packet")

	// ErrBadSequence indicates the tail after the delimiter is not a
	// decimal sequence index.
	ErrBadSequence = errors.New("malformed sequence index")
)

// Packet is one datagram split into its body and sequence index.
type Packet struct {
	Body string
	Seq  uint64
}

// Encode builds the datagram for body and seq.
func Encode(body string, seq uint64) []byte {
	b := make([]byte, 0, len(body)+len(Delimiter)+20)
	b = append(b, body...)
	b = append(b, Delimiter...)
	b = strconv.AppendUint(b, seq, 10)
	return b
}

// Decode splits a datagram at the rightmost delimiter.
//
// On a framing error the returned Packet still carries the whole payload as
// its Body so the caller can act on it best-effort; its Seq is meaningless.
func Decode(data []byte) (Packet, error) {
	s := string(data)

	pos := strings.LastIndex(s, Delimiter)
	if pos < 0 {
		return Packet{Body: s}, ErrNoDelimiter
	}

	tail := s[pos+len(Delimiter):]
	if !isDigits(tail) {
		return Packet{Body: s}, ErrBadSequence
	}
	seq, err := strconv.ParseUint(tail, 10, 64)
	if err != nil {
		return Packet{Body: s}, ErrBadSequence
	}

	return Packet{Body: s[:pos], Seq: seq}, nil
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
