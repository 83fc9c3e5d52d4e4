package log

import (
	"time"

	"github.com/sigcntrl/lampagent/pkg/wire"
)

// Event represents a protocol event captured by the agent.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the heartbeat session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the supervisor address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Variant is the board variant name.
	Variant string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Datagram    *DatagramEvent    `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Control layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session/agent state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is the datagram layer.
	LayerTransport Layer = 0
	// LayerWire is the framing layer (body and sequence).
	LayerWire Layer = 1
	// LayerControl is the command and output layer.
	LayerControl Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerControl:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a heartbeat datagram.
	CategoryMessage Category = 0
	// CategoryCommand indicates a dispatched command.
	CategoryCommand Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DatagramEvent captures one heartbeat datagram.
type DatagramEvent struct {
	// Size is the datagram size in bytes.
	Size int `cbor:"1,keyasint"`

	// Body is the decoded body, or the whole payload when unframed.
	Body string `cbor:"2,keyasint"`

	// Seq is the sequence index; nil when the datagram was unframed.
	Seq *uint64 `cbor:"3,keyasint,omitempty"`

	// Data is the raw payload (may be truncated for large datagrams).
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"5,keyasint,omitempty"`
}

// CommandEvent captures a dispatched command and its effect.
type CommandEvent struct {
	// Kind is the parsed command kind.
	Kind wire.Kind `cbor:"1,keyasint"`

	// Body is the inbound body the command was parsed from.
	Body string `cbor:"2,keyasint,omitempty"`

	// Channels lists the channels written by the command.
	Channels []int `cbor:"3,keyasint,omitempty"`

	// Header and Pin are set for header commands.
	Header *int `cbor:"4,keyasint,omitempty"`
	Pin    *int `cbor:"5,keyasint,omitempty"`

	// Cancelled is the number of flicker tasks stopped by the command.
	Cancelled int `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures session and agent lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a heartbeat session state change.
	StateEntitySession StateEntity = 0
	// StateEntityAgent indicates an agent lifecycle change.
	StateEntityAgent StateEntity = 1
	// StateEntityFlicker indicates a flicker set change.
	StateEntityFlicker StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityAgent:
		return "AGENT"
	case StateEntityFlicker:
		return "FLICKER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
