package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentbox/agentbox/internal/timeline"
)

// Pacing constants, all wall-clock milliseconds unless noted.
const (
	// microSessionMS: sessions shorter than this (timeline ms) replay
	// over a fixed wall-clock window instead of per-tick time math.
	microSessionMS = 10
	// microWindowMS is the wall-clock length of a micro replay at 1x.
	microWindowMS = 2000
	// minWindowMS floors the wall-clock length of a normal replay.
	minWindowMS = 2000
	// slowdown stretches one timeline millisecond to this many
	// wall-clock milliseconds at 1x speed.
	slowdown = 10
)

// Tick intervals. Sessions under one second tick fast so short
// replays still land on several distinct positions.
const (
	fastTickInterval = 16 * time.Millisecond
	slowTickInterval = 100 * time.Millisecond
)

// Status is a read-consistent snapshot of the player.
type Status struct {
	Playing    bool
	Virtual    float64 // timeline position, epoch ms
	Progress   float64 // percent of session, 0..100
	Speed      float64
	SelectedID string
}

// Player drives virtual time through one session's timeline.
//
// Thread-safety: all exported methods are safe for concurrent use. A
// single mutex guards the whole playback state. Tick callbacks take
// the same mutex and carry a generation token; a callback whose
// generation is stale returns without touching state, so ticks from a
// superseded schedule or a previous session are harmless.
type Player struct {
	mu        sync.Mutex
	wall      WallClock
	newTicker TickerFactory
	logger    *slog.Logger

	tl   *timeline.Timeline
	clk  Clock
	corr *Correlator

	playing  bool
	virtual  float64
	speed    float64
	selected string

	// gen fences tick callbacks; bumped on every cancellation.
	gen      uint64
	stop     chan struct{}
	lastTick time.Time
}

// New builds an idle player with no session loaded.
func New(opts ...Option) *Player {
	p := &Player{
		wall:      SystemClock{},
		newTicker: NewSystemTicker,
		logger:    slog.Default(),
		speed:     1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the player's session wholesale. Any running schedule
// is canceled first, so a tick from the previous session can never
// leak into the new one. Position and selection are rebuilt exactly
// as Reset leaves them; speed carries over.
func (p *Player) Load(tl *timeline.Timeline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.tl = tl
	p.clk = Clock{Start: tl.Start(), Duration: tl.Duration()}
	p.corr = NewCorrelator(tl, p.clk)
	p.resetLocked()
}

// Play starts (or restarts) a tick schedule. It is a no-op when no
// session is loaded or the sequence is empty. The pacing mode and
// tick interval are chosen once per call from the session's resolved
// duration.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tl == nil || p.tl.Len() == 0 || p.clk.Duration <= 0 {
		p.logger.Debug("play ignored, no replayable session")
		return
	}
	p.cancelLocked()

	micro := p.clk.Duration < microSessionMS
	interval := slowTickInterval
	if p.clk.Duration < shortSessionMS {
		interval = fastTickInterval
	}

	p.playing = true
	p.lastTick = p.wall.Now()
	gen := p.gen
	stop := make(chan struct{})
	p.stop = stop

	t := p.newTicker(interval)
	go p.run(t, stop, gen, micro)
}

// Pause cancels the schedule and freezes virtual time and selection
// exactly where they are.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

// SeekToProgress forces a pause, clamps pct into [0, 100], and jumps
// virtual time to the matching position. Selection is re-derived
// before returning.
func (p *Player) SeekToProgress(pct float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tl == nil {
		return
	}
	p.cancelLocked()
	p.virtual = p.clk.TimeAt(clampPct(pct))
	p.correlateLocked()
}

// Reset pauses and rewinds: virtual time returns to the first event's
// start (the session start when the sequence is empty) and the first
// event becomes selected.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tl == nil {
		return
	}
	p.cancelLocked()
	p.resetLocked()
}

// StepForward pauses and moves the selection one sequence position
// later, clamping at the final event. Virtual time follows the target
// event's start.
func (p *Player) StepForward() { p.step(1) }

// StepBackward pauses and moves the selection one sequence position
// earlier, clamping at the first event.
func (p *Player) StepBackward() { p.step(-1) }

// SetSpeed changes the playback rate multiplier. The new speed takes
// effect on the next tick without restarting the schedule. Speeds
// that are not positive finite numbers are rejected.
func (p *Player) SetSpeed(speed float64) error {
	if !isFinite(speed) || speed <= 0 {
		return fmt.Errorf("playback speed must be a positive finite number, got %v", speed)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = speed
	return nil
}

// Status returns a consistent snapshot of the playback state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Playing:    p.playing,
		Virtual:    p.virtual,
		Progress:   p.clk.Progress(p.virtual),
		Speed:      p.speed,
		SelectedID: p.selected,
	}
}

// step implements StepForward/StepBackward. A missing selection is
// treated as position -1, so stepping in either direction from
// nothing lands on the first event.
func (p *Player) step(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tl == nil || p.tl.Len() == 0 {
		return
	}
	p.cancelLocked()

	idx := -1
	if i, ok := p.tl.Index(p.selected); ok {
		idx = i
	}
	idx += delta
	atEnd := false
	if idx < 0 {
		idx = 0
	}
	if idx >= p.tl.Len() {
		idx = p.tl.Len() - 1
		atEnd = true
	}

	ev := p.tl.At(idx)
	p.selected = ev.ID
	target := float64(ev.Start)
	if atEnd {
		// Stepping forward past the final event parks the clock at
		// that event's end rather than rewinding to its start.
		target = float64(ev.EndOrStart())
	}
	if isFinite(target) {
		p.virtual = target
	} else {
		// Stepping onto an event with an unparsable start rests the
		// clock at the session start instead of poisoning it with NaN.
		p.virtual = p.clk.Start
	}
	p.correlateLocked()
}

// run is the tick loop. It lives on its own goroutine, one per Play
// call, and exits when its stop channel closes or its generation goes
// stale.
func (p *Player) run(t Ticker, stop <-chan struct{}, gen uint64, micro bool) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if !p.tick(gen, micro) {
				return
			}
		}
	}
}

// tick advances virtual time by one beat. Reports false once this
// schedule is finished or superseded.
func (p *Player) tick(gen uint64, micro bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || !p.playing {
		return false
	}

	now := p.wall.Now()
	elapsed := float64(now.Sub(p.lastTick)) / float64(time.Millisecond)
	p.lastTick = now
	if elapsed < 0 {
		elapsed = 0
	}

	if micro {
		window := microWindowMS / p.speed
		progress := p.clk.Progress(p.virtual) + elapsed/window*100
		if progress >= 100 {
			p.finishLocked()
			return false
		}
		p.virtual = p.clk.TimeAt(progress)
	} else {
		window := p.clk.Duration * slowdown
		if window < minWindowMS {
			window = minWindowMS
		}
		window /= p.speed
		p.virtual += elapsed * (p.clk.Duration / window)
		if p.virtual >= p.rangeEnd() {
			p.finishLocked()
			return false
		}
	}
	p.correlateLocked()
	return true
}

// finishLocked is the autostop path: pin virtual time exactly to the
// end of the playback range, stop the schedule, land on Paused.
func (p *Player) finishLocked() {
	p.virtual = p.rangeEnd()
	p.cancelLocked()
	p.correlateLocked()
}

// rangeEnd is where playback pins on autostop. It equals the resolved
// session end except for degenerate sessions whose duration was
// floored, where it is the end of the floored range so progress still
// reaches exactly 100.
func (p *Player) rangeEnd() float64 {
	return p.clk.Start + p.clk.Duration
}

// cancelLocked stops any current schedule and lands on Paused. The
// generation bump fences callbacks already in flight.
func (p *Player) cancelLocked() {
	p.gen++
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.playing = false
}

// resetLocked rewinds position and selection for the loaded timeline.
func (p *Player) resetLocked() {
	if p.tl.Len() > 0 {
		first := p.tl.At(0)
		if start := float64(first.Start); isFinite(start) {
			p.virtual = start
		} else {
			p.virtual = p.clk.Start
		}
		p.selected = first.ID
	} else {
		p.virtual = p.clk.Start
		p.selected = ""
	}
	p.correlateLocked()
}

// correlateLocked re-derives the active event for the current virtual
// time. Called synchronously by every operation that moves the clock,
// so observers never see a stale (time, selection) pair.
func (p *Player) correlateLocked() {
	if p.corr == nil {
		return
	}
	if next := p.corr.Active(p.virtual, p.selected); next != p.selected {
		p.selected = next
	}
}

func clampPct(pct float64) float64 {
	switch {
	case !isFinite(pct), pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
