// Package postgres is the durable store adapter for bankAuth, built on sqlx
// and lib/pq.
//
// Every update is guarded by the row's version column. An update that
// matches no row at the expected version returns bankAuth.ErrVersionConflict;
// a unique violation (SQLSTATE 23505) returns bankAuth.ErrDuplicate.
//
// EnsureSchema creates the tables for development; production deployments
// are expected to apply the same DDL through their migration tooling.
package postgres
