// Package state holds the mutable field-value mapping threaded through a
// single run. One State instance is exclusively owned by one in-flight
// run and is only mutated by the engine applying a node's declared output
// write, so no locking is needed.
package state

import (
	"fmt"
	"sort"

	"github.com/BaSui01/flowgraph/types"
)

// Wildcard requests the entire state from Project.
const Wildcard = "*"

// State maps field names to arbitrary values. Writes overwrite
// unconditionally: last writer wins, no merge logic.
type State struct {
	fields map[string]any
}

// New creates a State seeded from the given initial values. The initial
// map is copied; the caller keeps ownership of its own map.
func New(initial map[string]any) *State {
	fields := make(map[string]any, len(initial))
	for k, v := range initial {
		fields[k] = v
	}
	return &State{fields: fields}
}

// Get returns the value of a field, or a MISSING_FIELD error.
func (s *State) Get(field string) (any, error) {
	v, ok := s.fields[field]
	if !ok {
		return nil, types.NewError(types.ErrMissingField,
			fmt.Sprintf("field %q not present in state", field)).WithField(field)
	}
	return v, nil
}

// Has reports whether a field is present.
func (s *State) Has(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// Set writes a field, overwriting any previous value.
func (s *State) Set(field string, value any) {
	s.fields[field] = value
}

// Project returns a copy of the requested fields; a Wildcard entry
// expands to the full state, and an empty request yields an empty map.
// Missing fields are omitted rather than erroring; agents that require a
// field surface MISSING_FIELD themselves.
func (s *State) Project(fields []string) map[string]any {
	for _, f := range fields {
		if f == Wildcard {
			return s.Snapshot()
		}
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := s.fields[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Snapshot returns a shallow copy of the full state.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Fields returns the sorted field names currently present.
func (s *State) Fields() []string {
	out := make([]string, 0, len(s.fields))
	for k := range s.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of fields.
func (s *State) Len() int {
	return len(s.fields)
}
