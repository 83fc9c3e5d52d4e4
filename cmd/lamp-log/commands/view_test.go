package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

func TestFormatDatagramEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp:  ts,
		SessionID:  "abc12345-6789-0123-4567-890abcdef012",
		Direction:  log.DirectionOut,
		Layer:      log.LayerTransport,
		Category:   log.CategoryMessage,
		RemoteAddr: "10.0.0.1:65433",
		Datagram:   log.NewDatagramEvent([]byte("ILED_ON7>>>12"), "ILED_ON7", seq(12)),
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[session:abc12345]",
		"OUT",
		"TRANSPORT",
		"Datagram",
		"Size: 13 bytes",
		`Body: "ILED_ON7"`,
		"Seq: 12",
		"Remote: 10.0.0.1:65433",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatUnframedDatagram(t *testing.T) {
	event := log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Datagram:  log.NewDatagramEvent([]byte("ON"), "ON", nil),
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	if !strings.Contains(buf.String(), "Seq: (unframed)") {
		t.Errorf("expected unframed marker, got:\n%s", buf.String())
	}
}

func TestFormatCommandEvent(t *testing.T) {
	h, p := 3, 2
	event := log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerControl,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			Kind:      wire.KindHeaderOn,
			Body:      "HLED_ON32",
			Header:    &h,
			Pin:       &p,
			Channels:  []int{11},
			Cancelled: 1,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"CONTROL HEADER_ON", `Body: "HLED_ON32"`, "Header: 3  Pin: 2", "Channels: 11", "Flicker cancelled: 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Layer:    log.LayerControl,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAgent,
			OldState: "RUNNING",
			NewState: "STOPPING",
			Reason:   "shutdown requested",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"State", "Entity: AGENT", "RUNNING -> STOPPING", "Reason: shutdown requested"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatErrorEvent(t *testing.T) {
	event := log.Event{
		Layer:    log.LayerWire,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: "no delimiter",
			Context: "decode",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"Error", "Layer: WIRE", "Message: no delimiter", "Context: decode"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestShortenID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc12345-6789", "abc12345"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortenID(tt.in); got != tt.want {
			t.Errorf("shortenID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRunViewWithFilter(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sessionEvents(ts))

	filter, err := BuildFilter(FilterOptions{Category: "command"})
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "Datagram") {
		t.Errorf("expected no datagram events, got:\n%s", output)
	}
	if !strings.Contains(output, "ALL_ON") || !strings.Contains(output, "SHUTDOWN") {
		t.Errorf("expected both commands, got:\n%s", output)
	}
}
