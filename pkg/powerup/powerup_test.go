package powerup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind    string
	channel int
	delay   time.Duration
	runtime time.Duration
}

type script struct {
	events []event
	failOn int
}

func (s *script) Set(channel int, on bool) error {
	s.events = append(s.events, event{kind: "set", channel: channel})
	if channel == s.failOn {
		return errors.New("boom")
	}
	return nil
}

func (s *script) Spawn(channel int, runtime time.Duration) bool {
	s.events = append(s.events, event{kind: "spawn", channel: channel, runtime: runtime})
	return true
}

func (s *script) sleep(_ context.Context, d time.Duration) error {
	s.events = append(s.events, event{kind: "sleep", delay: d})
	return nil
}

func TestSequencerGroupOrder(t *testing.T) {
	rec := &script{failOn: -1}
	plan := Plan{
		{Channels: []int{1, 2}, Delay: 100 * time.Millisecond},
		{Channels: []int{3}, Delay: 50 * time.Millisecond},
	}
	seq := NewSequencer(plan, rec, nil, Config{Sleep: rec.sleep})

	require.NoError(t, seq.Run(context.Background()))

	assert.Equal(t, []event{
		{kind: "set", channel: 1},
		{kind: "set", channel: 2},
		{kind: "sleep", delay: 100 * time.Millisecond},
		{kind: "set", channel: 3},
		{kind: "sleep", delay: 50 * time.Millisecond},
	}, rec.events)
}

func TestSequencerAnimatedChannelSpawns(t *testing.T) {
	rec := &script{failOn: -1}
	plan := Plan{{Channels: []int{16, 17, 18}, Delay: time.Second}}
	seq := NewSequencer(plan, rec, rec, Config{Animated: []int{17}, Sleep: rec.sleep, Seed: 5})

	require.NoError(t, seq.Run(context.Background()))

	require.Len(t, rec.events, 4)
	assert.Equal(t, "set", rec.events[0].kind)
	assert.Equal(t, "spawn", rec.events[1].kind)
	assert.Equal(t, 17, rec.events[1].channel)
	assert.GreaterOrEqual(t, rec.events[1].runtime, DefaultMinRuntime)
	assert.LessOrEqual(t, rec.events[1].runtime, DefaultMaxRuntime)
	assert.Zero(t, rec.events[1].runtime%time.Second)
	assert.Equal(t, "set", rec.events[2].kind)
}

func TestSequencerContinuesAfterWriteError(t *testing.T) {
	rec := &script{failOn: 1}
	plan := Plan{{Channels: []int{1, 2}}}
	seq := NewSequencer(plan, rec, nil, Config{Sleep: rec.sleep})

	require.NoError(t, seq.Run(context.Background()))
	assert.Len(t, rec.events, 2)
}

func TestSequencerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &script{failOn: -1}
	plan := Plan{
		{Channels: []int{1}, Delay: time.Hour},
		{Channels: []int{2}},
	}
	seq := NewSequencer(plan, rec, nil, Config{})

	err := seq.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []event{{kind: "set", channel: 1}}, rec.events)
}

func TestSequencerEmptyPlan(t *testing.T) {
	seq := NewSequencer(nil, &script{}, nil, Config{})
	assert.ErrorIs(t, seq.Run(context.Background()), ErrEmptyPlan)
}

func TestDrawRuntimeBounds(t *testing.T) {
	seq := NewSequencer(Plan{{}}, &script{}, nil, Config{MinRuntime: 2 * time.Second, MaxRuntime: 4 * time.Second, Seed: 3})
	seen := map[time.Duration]bool{}
	for i := 0; i < 200; i++ {
		seen[seq.drawRuntime()] = true
	}
	assert.Equal(t, map[time.Duration]bool{2 * time.Second: true, 3 * time.Second: true, 4 * time.Second: true}, seen)
}

func TestPlanChannels(t *testing.T) {
	plan := Plan{{Channels: []int{25, 26}}, {Channels: []int{17}}}
	assert.Equal(t, []int{25, 26, 17}, plan.Channels())
}
