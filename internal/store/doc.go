// Package store persists QC run results to a SQLite audit database.
//
// The store is an optional sink: the engine never reads from it and a
// run's outcome is identical with or without one attached. Its purpose
// is longitudinal audit, e.g. tracking how often an annotator batch
// fails laterality checks across deliveries.
package store
