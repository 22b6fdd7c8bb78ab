// Package session persists workflow state across runs. A session carries
// the final state of its last run; the next run of the session merges
// fresh input over the stored fields, so conversational workflows keep
// their accumulated context between invocations.
package session
