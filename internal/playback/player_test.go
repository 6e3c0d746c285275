package playback

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox/internal/testutil"
	"github.com/agentbox/agentbox/internal/timeline"
	"github.com/agentbox/agentbox/internal/trace"
)

// longSession covers [0ms, 5000ms] with three spaced spans, which
// selects normal pacing and interval correlation.
func longSession() *trace.Session {
	return &trace.Session{
		ID:    "sess-long",
		Start: 0,
		End:   timePtr(5000),
		Events: []trace.Event{
			{ID: "a", Name: "plan", Start: 0, End: timePtr(1000)},
			{ID: "b", Name: "call", Start: 2000, End: timePtr(3000)},
			{ID: "c", Name: "tool", Start: 4000, End: timePtr(4500)},
		},
	}
}

// microSession covers [0ms, 5ms], which selects the fixed-window
// micro pacing and index correlation.
func microSession() *trace.Session {
	return &trace.Session{
		ID:    "sess-micro",
		Start: 0,
		End:   timePtr(5),
		Events: []trace.Event{
			{ID: "m0", Start: 0, End: timePtr(2)},
			{ID: "m1", Start: 3, End: timePtr(5)},
		},
	}
}

func load(t *testing.T, s *trace.Session) *timeline.Timeline {
	t.Helper()
	return timeline.Build(s, trace.BuildTree(s))
}

// newManualPlayer wires a player to a frozen clock and a hand-fired
// ticker so every wall-time delta in a test is exact.
func newManualPlayer(t *testing.T, s *trace.Session) (*Player, *testutil.FakeClock, *testutil.ManualTicker) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	tick := testutil.NewManualTicker()
	p := New(
		WithWallClock(clock),
		WithTickerFactory(func(time.Duration) Ticker { return tick }),
	)
	t.Cleanup(p.Pause)
	if s != nil {
		p.Load(load(t, s))
	}
	return p, clock, tick
}

func waitVirtualPast(t *testing.T, p *Player, v float64) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.Status().Virtual > v
	}, 2*time.Second, time.Millisecond)
	return p.Status()
}

func waitPaused(t *testing.T, p *Player) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		return !p.Status().Playing
	}, 2*time.Second, time.Millisecond)
	return p.Status()
}

func TestPlayer_Load_InitialPosition(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	st := p.Status()
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, st.Virtual, "position starts at the first event")
	assert.Equal(t, "a", st.SelectedID)
	assert.Equal(t, 1.0, st.Speed)
}

func TestPlayer_Play_NoSessionIsNoop(t *testing.T) {
	p, _, _ := newManualPlayer(t, nil)
	p.Play()
	assert.False(t, p.Status().Playing)
}

func TestPlayer_Play_EmptySequenceIsNoop(t *testing.T) {
	p, _, _ := newManualPlayer(t, &trace.Session{ID: "empty", Start: 0})
	p.Play()
	assert.False(t, p.Status().Playing)
}

func TestPlayer_Tick_AdvancesByElapsedWallTime(t *testing.T) {
	p, clock, tick := newManualPlayer(t, longSession())

	// Replay window is max(2000, 5000*10)/speed = 50000ms, so one
	// wall second moves virtual time 100ms.
	p.Play()
	clock.Advance(time.Second)
	tick.Fire()

	st := waitVirtualPast(t, p, 0)
	assert.InDelta(t, 100.0, st.Virtual, 1e-9)
	assert.True(t, st.Playing)
	assert.Equal(t, "a", st.SelectedID, "100ms sits inside span a")
}

func TestPlayer_Tick_SpeedTakesEffectNextTick(t *testing.T) {
	p, clock, tick := newManualPlayer(t, longSession())

	p.Play()
	require.NoError(t, p.SetSpeed(2))
	clock.Advance(time.Second)
	tick.Fire()

	st := waitVirtualPast(t, p, 0)
	assert.InDelta(t, 200.0, st.Virtual, 1e-9, "doubling speed halves the window")
	assert.Equal(t, 2.0, st.Speed)
}

func TestPlayer_Autostop_PinsExactEnd(t *testing.T) {
	p, clock, tick := newManualPlayer(t, longSession())

	p.Play()
	clock.Advance(time.Minute)
	tick.Fire()

	st := waitPaused(t, p)
	assert.Equal(t, 5000.0, st.Virtual, "autostop pins exactly to the session end")
	assert.Equal(t, 100.0, st.Progress)
	assert.False(t, st.Playing)
}

func TestPlayer_Pause_FreezesPosition(t *testing.T) {
	p, clock, tick := newManualPlayer(t, longSession())

	p.Play()
	clock.Advance(time.Second)
	tick.Fire()
	waitVirtualPast(t, p, 0)

	p.Pause()
	st := p.Status()
	require.False(t, st.Playing)
	frozen := st.Virtual

	// Wall time marching on must not move a paused player.
	clock.Advance(time.Hour)
	assert.Equal(t, frozen, p.Status().Virtual)
	assert.Equal(t, "a", p.Status().SelectedID)
}

func TestPlayer_Micro_FixedWindowProgress(t *testing.T) {
	p, clock, tick := newManualPlayer(t, microSession())

	// Micro replays spread 100% of progress over 2000ms of wall time.
	p.Play()
	clock.Advance(500 * time.Millisecond)
	tick.Fire()

	st := waitVirtualPast(t, p, 0)
	assert.InDelta(t, 25.0, st.Progress, 1e-9)
	assert.InDelta(t, 1.25, st.Virtual, 1e-9)

	clock.Advance(1600 * time.Millisecond)
	tick.Fire()

	st = waitPaused(t, p)
	assert.Equal(t, 100.0, st.Progress)
	assert.Equal(t, 5.0, st.Virtual)
	assert.Equal(t, "m1", st.SelectedID, "finishing lands on the last event")
}

func TestPlayer_SeekToProgress(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	p.Play()
	p.SeekToProgress(50)

	st := p.Status()
	assert.False(t, st.Playing, "seek forces a pause")
	assert.Equal(t, 2500.0, st.Virtual, "50% of a 5000ms session")
	assert.Equal(t, "b", st.SelectedID, "2500 sits inside span b")
}

func TestPlayer_SeekToProgress_Clamps(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	p.SeekToProgress(150)
	st := p.Status()
	assert.Equal(t, 5000.0, st.Virtual)
	assert.Equal(t, "a", st.SelectedID, "no interval contains the end, selection sticks")

	p.SeekToProgress(-20)
	assert.Equal(t, 0.0, p.Status().Virtual)
}

func TestPlayer_Reset(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	p.SeekToProgress(80)
	require.Equal(t, 4000.0, p.Status().Virtual)

	p.Reset()
	st := p.Status()
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, st.Virtual)
	assert.Equal(t, "a", st.SelectedID)
}

func TestPlayer_StepForward_WalksSequence(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	p.StepForward()
	st := p.Status()
	assert.Equal(t, "b", st.SelectedID)
	assert.Equal(t, 2000.0, st.Virtual, "step lands on the target's start")

	p.StepForward()
	st = p.Status()
	assert.Equal(t, "c", st.SelectedID)
	assert.Equal(t, 4000.0, st.Virtual)

	p.StepForward()
	st = p.Status()
	assert.Equal(t, "c", st.SelectedID, "forward clamps at the last event")
	assert.Equal(t, 4500.0, st.Virtual, "clamped step parks at the last event's end")
}

func TestPlayer_StepBackward_WalksSequence(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	p.StepForward()
	p.StepForward()
	require.Equal(t, "c", p.Status().SelectedID)

	p.StepBackward()
	st := p.Status()
	assert.Equal(t, "b", st.SelectedID)
	assert.Equal(t, 2000.0, st.Virtual)

	p.StepBackward()
	p.StepBackward()
	assert.Equal(t, "a", p.Status().SelectedID, "backward clamps at the first event")
}

func TestPlayer_Step_PausesPlayback(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	p.Play()
	require.True(t, p.Status().Playing)

	p.StepForward()
	assert.False(t, p.Status().Playing)
}

func TestPlayer_SetSpeed_RejectsInvalid(t *testing.T) {
	p, _, _ := newManualPlayer(t, longSession())

	assert.Error(t, p.SetSpeed(0))
	assert.Error(t, p.SetSpeed(-1))
	assert.Error(t, p.SetSpeed(math.NaN()))
	assert.Error(t, p.SetSpeed(math.Inf(1)))
	assert.Equal(t, 1.0, p.Status().Speed, "rejected speeds leave the old value")
}

func TestPlayer_Load_SwitchesSessionWholesale(t *testing.T) {
	p, clock, tick := newManualPlayer(t, longSession())

	p.Play()
	clock.Advance(time.Second)
	tick.Fire()
	waitVirtualPast(t, p, 0)

	p.Load(load(t, microSession()))

	st := p.Status()
	assert.False(t, st.Playing, "loading cancels the old schedule")
	assert.Equal(t, 0.0, st.Virtual)
	assert.Equal(t, "m0", st.SelectedID)
}

func TestPlayer_StaleTick_DoesNotMutate(t *testing.T) {
	p, clock, _ := newManualPlayer(t, longSession())

	p.Play()
	p.mu.Lock()
	staleGen := p.gen
	p.mu.Unlock()

	p.Pause()
	before := p.Status()

	// A callback from the canceled schedule arrives late.
	clock.Advance(time.Minute)
	assert.False(t, p.tick(staleGen, false))
	assert.Equal(t, before, p.Status(), "stale generations are fenced off")
}

func TestPlayer_PausedTick_DoesNotMutate(t *testing.T) {
	p, clock, _ := newManualPlayer(t, longSession())

	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	before := p.Status()
	clock.Advance(time.Minute)
	assert.False(t, p.tick(gen, false))
	assert.Equal(t, before, p.Status())
}

