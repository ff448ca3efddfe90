// Package store is a SQLite archive of AnyValue snapshots.
//
// Each Put appends a snapshot under a key. A snapshot row holds the plain
// binary encoding of the value and references its type by fingerprint; the
// type itself is stored once, as canonical type JSON, in the types table.
//
// # Ordering
//
// Snapshots of a key are numbered by seq, starting at 1. History returns
// them ORDER BY seq ASC, id ASC COLLATE BINARY so results are identical
// across runs. Wall-clock time is never recorded.
//
// # Integrity
//
// Every snapshot carries the value digest (bincodec.Digest). Reads decode
// the payload against the stored type and recompute the digest; a mismatch
// fails with ErrDigestMismatch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
