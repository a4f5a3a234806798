package example

import "fmt"

// SequenceExample is the sequential form: an insertion-ordered mapping from
// feature names to a series of value snapshots, plus an optional flat
// context shared across the sequence. Every feature list must hold the same
// number of snapshots.
type SequenceExample struct {
	Context *Example

	names []string
	lists map[string][]Value
}

// NewSequence creates an empty sequence example
func NewSequence() *SequenceExample {
	return &SequenceExample{lists: make(map[string][]Value)}
}

// SetList adds or replaces a named feature list
func (s *SequenceExample) SetList(name string, snapshots []Value) {
	if _, ok := s.lists[name]; !ok {
		s.names = append(s.names, name)
	}
	s.lists[name] = snapshots
}

// GetList returns the snapshots for name
func (s *SequenceExample) GetList(name string) ([]Value, bool) {
	v, ok := s.lists[name]
	return v, ok
}

// ListNames returns the feature list names in insertion order
func (s *SequenceExample) ListNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of feature lists
func (s *SequenceExample) Len() int {
	return len(s.names)
}

// RangeLists calls f for each feature list in insertion order until f
// returns false
func (s *SequenceExample) RangeLists(f func(name string, snapshots []Value) bool) {
	for _, name := range s.names {
		if !f(name, s.lists[name]) {
			return
		}
	}
}

// NumSnapshots returns the uniform snapshot count, or an error if the lists
// disagree
func (s *SequenceExample) NumSnapshots() (int, error) {
	if len(s.names) == 0 {
		return 0, nil
	}

	n := len(s.lists[s.names[0]])
	for _, name := range s.names[1:] {
		if len(s.lists[name]) != n {
			return 0, fmt.Errorf("%w: list %q has %d snapshots, list %q has %d",
				ErrInconsistentSequenceLength, s.names[0], n, name, len(s.lists[name]))
		}
	}
	return n, nil
}

// Validate checks the uniform-snapshot-count invariant
func (s *SequenceExample) Validate() error {
	_, err := s.NumSnapshots()
	return err
}
