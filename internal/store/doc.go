// Package store provides SQLite-backed durable storage for recorded
// agent sessions.
//
// Sessions are replaceable documents: a session row plus its event
// log and state snapshots. The event body JSON is the source of
// truth; typed columns exist for ordering, indexing, and counting.
//
// # Critical Patterns
//
// Replace-On-Import:
//   - SaveSession swaps a session's events and snapshots wholesale
//     inside one transaction
//   - Re-importing an archive can never interleave two versions
//
// Document Order:
//   - Events keep their import position in the seq column
//   - Reads return ORDER BY seq, so equal-timestamp tie-breaking
//     during ingest stays deterministic across restarts
//
// NULL Timeline Positions:
//   - Unparsable timestamps persist as NULL, never as zero
//   - They surface as NaN on read and sink to the sequence tail at
//     ingest
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: cascade deletes from sessions to children
package store
