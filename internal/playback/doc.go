// Package playback implements the agentbox replay engine.
//
// The player drives a virtual "now" across one recorded session's
// timeline, keeping the active event selection consistent with that
// position at all times. It is the core the CLI and the HTTP API build
// on.
//
// ARCHITECTURE:
//
// Single Mutex, Fenced Ticks:
// All playback state (virtual time, speed, selection, lifecycle) lives
// behind one mutex inside Player. At most one tick schedule exists at
// any moment; every state change that invalidates pacing cancels the
// schedule before touching state. A generation counter fences late
// tick callbacks: a callback holding a stale generation returns
// without mutating anything, so switching sessions mid-flight can
// never corrupt the new session's state.
//
// Two Pacing Modes, Chosen Per Play Call:
//  1. Micro sessions (shorter than 10 timeline ms) advance normalized
//     progress over a fixed wall-clock window, because per-tick time
//     deltas would round to nothing.
//  2. All other sessions advance virtual time by measured wall-clock
//     elapsed scaled to the session's replay window, so a stalled
//     scheduler catches up instead of drifting.
//
// Correlation Is Synchronous:
// Every operation that moves virtual time re-derives the active event
// before returning. Observers always see a (time, selection) pair that
// agrees with the correlation policy; there is no window where the
// selection lags the clock.
//
// The engine is designed for correctness and determinism, not
// throughput. Sequences are scanned linearly; sessions are bounded by
// what fits in one recorded trace.
package playback
