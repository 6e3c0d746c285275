package playback

import (
	"log/slog"
	"time"
)

// WallClock abstracts the real-time source behind playback pacing.
// Tests substitute a fake to advance wall time deterministically.
type WallClock interface {
	Now() time.Time
}

// SystemClock reads the process wall clock.
//
// Thread-safety: stateless, safe for concurrent use.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Ticker is the periodic beat driving one play schedule.
type Ticker interface {
	// C delivers the beats.
	C() <-chan time.Time
	// Stop releases the ticker. No beats are delivered afterwards.
	Stop()
}

// TickerFactory builds the Ticker for one Play call. The interval is
// advisory pacing; tick math is driven by measured elapsed time, so a
// Ticker that beats irregularly still replays correctly.
type TickerFactory func(interval time.Duration) Ticker

// NewSystemTicker wraps time.Ticker as a playback Ticker.
func NewSystemTicker(interval time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(interval)}
}

type systemTicker struct{ t *time.Ticker }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// Option configures a Player at construction time.
type Option func(*Player)

// WithWallClock replaces the time source used for tick pacing.
func WithWallClock(c WallClock) Option {
	return func(p *Player) { p.wall = c }
}

// WithTickerFactory replaces the tick signal source.
func WithTickerFactory(f TickerFactory) Option {
	return func(p *Player) { p.newTicker = f }
}

// WithLogger sets the structured logger for playback anomalies.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.logger = l }
}
