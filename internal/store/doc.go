// Package store keeps a SQLite log of compiled model specs.
//
// Every successful compilation written through WriteRecord becomes one
// immutable record: the model name, the config it came from, the formula,
// the canonical ModelSpec JSON and its spec hash. Records get a UUIDv7 id
// and a per-store logical sequence number.
//
// # Ordering
//
// All multi-row queries order by seq ASC, id ASC COLLATE BINARY, so the
// same database always lists records identically.
//
// # Integrity
//
// Reads decode the stored JSON through ir.UnmarshalModelSpec and recompute
// the spec hash; a mismatch is reported as ErrCorruptRecord.
//
// # Database Configuration
//
// Settings travel in the go-sqlite3 DSN and are read back on Open:
// journal_mode=WAL, synchronous=NORMAL, busy_timeout=5000 and IMMEDIATE
// transactions. Schema changes are numbered migrations tracked in
// user_version; from v2 on, triggers reject UPDATE and DELETE on records.
package store
