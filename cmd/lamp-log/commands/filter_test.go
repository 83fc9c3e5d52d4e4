package commands

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sigcntrl/lampagent/pkg/log"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()

	var events []log.Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		events = append(events, e)
	}
}

func TestRunFilter(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := sessionEvents(ts)
	other := events[1]
	other.SessionID = "aaaaaaaa-other"
	events = append(events, other)
	path := createTestLogFile(t, events)

	tests := []struct {
		name string
		opts FilterOptions
		want int
	}{
		{"no criteria", FilterOptions{}, 6},
		{"session", FilterOptions{SessionID: "aaaaaaaa-other"}, 1},
		{"direction out", FilterOptions{Direction: "out"}, 1},
		{"layer control", FilterOptions{Layer: "control"}, 2},
		{"category message", FilterOptions{Category: "message"}, 4},
		{"kind shutdown", FilterOptions{Kind: "shutdown"}, 1},
		{"time window", FilterOptions{TimeStart: "2026-01-28T10:00:01Z", TimeEnd: "2026-01-28T10:00:03Z"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Output = filepath.Join(t.TempDir(), "out.llog")
			n, err := RunFilter(path, tt.opts)
			if err != nil {
				t.Fatalf("RunFilter failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("RunFilter returned %d, want %d", n, tt.want)
			}
			if got := len(readAll(t, tt.opts.Output)); got != tt.want {
				t.Errorf("output has %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildFilterErrors(t *testing.T) {
	tests := []FilterOptions{
		{Layer: "service"},
		{Direction: "sideways"},
		{Category: "snapshot"},
		{Kind: "blink"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	}
	for _, opts := range tests {
		if _, err := BuildFilter(opts); err == nil {
			t.Errorf("BuildFilter(%+v) expected error", opts)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want wire.Kind
	}{
		{"channel_on", wire.KindChannelOn},
		{"HEADER_OFF", wire.KindHeaderOff},
		{"resend_request", wire.KindResendRequest},
		{"ignored", wire.KindIgnored},
	}
	for _, tt := range tests {
		got, err := parseKind(tt.in)
		if err != nil {
			t.Errorf("parseKind(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
