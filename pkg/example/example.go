package example

// Example is a flat feature map: an insertion-ordered mapping from unique
// feature names to values. Iteration order equals insertion order, which
// makes encoding deterministic and byte-stable.
type Example struct {
	names    []string
	features map[string]Value
}

// New creates an empty example
func New() *Example {
	return &Example{features: make(map[string]Value)}
}

// Set adds or replaces a feature. Replacing keeps the original position.
func (e *Example) Set(name string, v Value) {
	if _, ok := e.features[name]; !ok {
		e.names = append(e.names, name)
	}
	e.features[name] = v
}

// Get returns the value for name
func (e *Example) Get(name string) (Value, bool) {
	v, ok := e.features[name]
	return v, ok
}

// Names returns the feature names in insertion order
func (e *Example) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Len returns the number of features
func (e *Example) Len() int {
	return len(e.names)
}

// Range calls f for each feature in insertion order until f returns false
func (e *Example) Range(f func(name string, v Value) bool) {
	for _, name := range e.names {
		if !f(name, e.features[name]) {
			return
		}
	}
}
