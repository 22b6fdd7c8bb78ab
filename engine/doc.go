// Package engine runs validated workflow graphs node by node. Execution
// is strictly sequential: one node at a time, success and failure edges
// selecting the next node, dynamic routing targets validated against the
// graph before they are followed. The engine owns the run record and
// mirrors it to a tracker; tracker failures are logged and never alter
// the outcome of a run.
package engine
