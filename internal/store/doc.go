// Package store provides the SQLite-backed version store used by the
// dataset package.
//
// The store is an append-only table of record versions keyed by
// (type, id), with a covering index on (type, key, dataset, id) for the
// one query the resolution engine issues per dataset: the highest id of a
// key in a dataset at or before a cutoff.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Record bodies are stored as binary documents produced by bsontree; the
// store never decodes them.
package store
