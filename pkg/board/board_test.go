package board

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	names, err := Available()
	require.NoError(t, err)
	assert.Equal(t, []string{"nth", "sth"}, names)
}

func TestEmbeddedVariantsValidate(t *testing.T) {
	for _, name := range []string{"nth", "sth"} {
		t.Run(name, func(t *testing.T) {
			v, err := Load(name)
			require.NoError(t, err)
			assert.NoError(t, v.Validate())
			assert.Len(t, v.Channels, 21)
			assert.Equal(t, []int{17}, v.Flicker)
		})
	}
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("east")
	assert.True(t, errors.Is(err, ErrUnknownVariant), "got %v", err)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		hostname string
		want     string
		wantErr  bool
	}{
		{"pizero-nth", "nth", false},
		{"pizero-sth", "sth", false},
		{"CougarUb", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			v, err := Resolve(tt.hostname)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownVariant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Name)
		})
	}
}

func TestHeaderChannel(t *testing.T) {
	nth, err := Load("nth")
	require.NoError(t, err)
	sth, err := Load("sth")
	require.NoError(t, err)

	tests := []struct {
		name    string
		v       *Variant
		header  int
		pin     int
		want    int
		wantErr bool
	}{
		{"nth J1 pin 1", nth, 1, 1, 25, false},
		{"nth J2 duplicates J1", nth, 2, 1, 25, false},
		{"nth J3 pin 1", nth, 3, 1, 10, false},
		{"nth J4 pin 5", nth, 4, 5, 22, false},
		{"nth J4 pin 6", nth, 4, 6, 0, true},
		{"sth J1 pin 1", sth, 1, 1, 2, false},
		{"sth J4 pin 1", sth, 4, 1, 17, false},
		{"header 0", nth, 0, 1, 0, true},
		{"header 5", nth, 5, 1, 0, true},
		{"pin 0", nth, 1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.HeaderChannel(tt.header, tt.pin)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoSuchPin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPowerUpPlan(t *testing.T) {
	v, err := Load("nth")
	require.NoError(t, err)

	plan := v.PowerUpPlan()
	require.Len(t, plan, 4)
	assert.Equal(t, []int{25, 26}, plan[0].Channels)
	assert.Equal(t, time.Second, plan[0].Delay)

	// The plan is a copy; the cached variant stays untouched.
	plan[0].Channels[0] = 99
	assert.Equal(t, 25, v.PowerUp[0].Channels[0])
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "channels: [1]"},
		{"no channels", "name: x"},
		{"duplicate channel", "name: x\nchannels: [1, 1]"},
		{"header overflow", "name: x\nchannels: [1, 2]\nheaders:\n  - {start: 1, pins: 2}"},
		{"unwired power-up", "name: x\nchannels: [1]\npower_up:\n  - {channels: [2], delay_ms: 10}"},
		{"negative delay", "name: x\nchannels: [1]\npower_up:\n  - {channels: [1], delay_ms: -1}"},
		{"unwired flicker", "name: x\nchannels: [1]\nflicker: [3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidVariant)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	data := "name: bench\nchannels: [5, 6]\nheaders:\n  - {name: J1, start: 0, pins: 2}\nflicker: [6]\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	v, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bench", v.Name)
	assert.True(t, v.HasChannel(6))
	assert.False(t, v.HasChannel(7))

	ch, err := v.HeaderChannel(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, ch)
}
