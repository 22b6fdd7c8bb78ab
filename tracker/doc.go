// Package tracker records per-node outcomes, timings and the terminal
// status of workflow runs.
//
// The tracker is a required collaborator but never a control-flow
// dependency: the engine behaves identically with the no-op
// implementation, and tracker write failures are logged, not propagated
// into run control flow. Histories are append-only; a sealed run is
// immutable.
//
// Backends: in-memory (default), GORM-backed SQL (sqlite, postgres,
// mysql) and MongoDB for deployments that keep durable, queryable run
// history.
package tracker
