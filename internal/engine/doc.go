// Package engine implements the fractional-key ordering engine.
//
// Every item carries a decimal key; a list is read in (key desc, created_at
// desc, id desc) order. Placing an item between two neighbors takes the
// midpoint of their keys, so a single move or insert writes one row and
// never renumbers the rest of the list.
//
// OPERATIONS:
//
// Create: explicit key, or bottom of the list (bottom key - step).
// Move: between two items, directly below/above one item, or to an edge.
// Delete: soft delete; the id stays reserved.
// Rebalance: rewrite all keys as N*step ... step in one transaction.
// Begin / Session / Finalize: the binary-insertion dialogue.
//
// DENSITY:
//
// Midpoints halve the gap each time. Once two neighbors are closer than
// epsilon, placements between them fail with ErrCodePrecisionExhausted
// until the list is rebalanced. With Config.AutoRebalance the engine
// rebalances right after a placement that leaves such a gap, before the
// next writer runs into it.
//
// STALENESS:
//
// A ranking session compares against a snapshot taken in Begin and does no
// I/O while the user answers. Finalize re-reads the list inside the insert
// transaction and compares fingerprints; a mismatch is reported as an
// OutcomeConflict carrying the fresh snapshot, never as an error. Nothing is
// locked between Begin and Finalize.
//
// CONCURRENCY:
//
// Each write is one store transaction, retried with Fibonacci backoff when
// the store reports a transient failure (SQLite busy, Postgres
// serialization failure). Rebalances of one list are serialized through a
// Locker: in-process by default, Redis-backed across processes.
package engine
