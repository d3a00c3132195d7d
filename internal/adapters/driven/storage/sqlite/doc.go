// Package sqlite provides a SQLite-backed implementation of the record store
// ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Every registry kind shares one database: records are kept
// as JSON bodies keyed by (kind, id) and ordered by their registry position.
//
//   - RecordStore: driven.RecordStore for any record kind
//   - RecordStore also implements driven.Archiver, keeping per-record history
//     rows for backups and archived records
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.biographical/data/registry.db
//
// # Thread Safety
//
// All operations are thread-safe. Save replaces a collection inside one
// transaction, so readers never see half a collection.
package sqlite
