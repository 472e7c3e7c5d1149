// Package specimen persists laboratory specimen records in SQLite and exposes
// the registry and store operations the reconciliation engine depends on.
//
// The Store manages database connections, schema initialization, and the two
// boundary contracts: ListByProject supplies the candidate snapshot in a stable
// registry order, and UpdateMetadata performs the read-merge-write of a
// metadata patch onto a single specimen. UpdateMetadata is safe to call
// concurrently for distinct specimen ids; SQLITE_BUSY contention is absorbed by
// a bounded retry.
//
// Treat this package as the single source of truth for specimen persistence;
// schema changes bump schemaVersion in store.go and adjust schema.sql.
package specimen
