package log

// MaxCapturedBytes bounds the raw payload kept in a DatagramEvent.
const MaxCapturedBytes = 256

// NewDatagramEvent builds a DatagramEvent for a payload. seq is nil for
// unframed datagrams.
func NewDatagramEvent(data []byte, body string, seq *uint64) *DatagramEvent {
	ev := &DatagramEvent{
		Size: len(data),
		Body: body,
		Seq:  seq,
	}
	if len(data) > MaxCapturedBytes {
		ev.Data = append([]byte(nil), data[:MaxCapturedBytes]...)
		ev.Truncated = true
	} else {
		ev.Data = append([]byte(nil), data...)
	}
	return ev
}
