// Package graph compiles a parsed workflow definition into a validated,
// query-optimized directed graph.
//
// Validation rejects duplicate node names, dangling success/failure
// references, unreachable nodes and ambiguous entry points. Cycles are
// permitted, since feedback loops (validate, retry) are a supported
// pattern, but cycles with no conditional exit are flagged with a
// warning: a run entering one can never terminate.
//
// A built Graph is immutable and safe to share read-only across
// concurrent runs.
package graph
