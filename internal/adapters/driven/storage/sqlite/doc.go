// Package sqlite provides a SQLite implementation of driven.Store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The database is opened in memory on a single connection,
// so nothing outlives the process.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files. Goal, resource and step structures are stored as JSON documents;
// the intent → flow index is its own table ordered by insertion.
//
// # Thread Safety
//
// All operations are thread-safe. Each method runs as one statement or one
// transaction on the single pooled connection.
package sqlite
