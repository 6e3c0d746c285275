// Package trace defines the canonical data model for recorded agent
// sessions: events, snapshots, and the timeline positions they carry.
//
// This package contains type definitions and tree assembly only. All
// other internal packages import trace; trace imports nothing internal.
// This keeps trace the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Timeline positions are float64 milliseconds (Time), never
//     time.Time, so sub-millisecond traces keep exact arithmetic
//   - Unparsable timestamps decode to NaN and are carried, not dropped;
//     downstream ingest decides where they land
//   - All JSON tags use snake_case to match the archive format
//   - Event and session names are normalized to Unicode NFC at the edges
package trace
