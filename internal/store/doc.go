// Package store provides SQLite-backed storage for accounts and the
// transition log.
//
// # Tables
//
//   - accounts: one row per account buffer (key, owner, data, metadata)
//   - transitions: every invocation, committed or rejected, with its status
//   - account_writes: before/after images for each buffer a transition changed
//
// # Invariants
//
//   - Logical time only: transitions are ordered by seq, never timestamps
//   - Queries order by seq ASC, id ASC COLLATE BINARY for deterministic output
//   - ApplyTransition writes the log row and every account update in one SQL
//     transaction; a failed commit leaves no partial state
//   - Account names are NFC-normalized before storage and lookup
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
