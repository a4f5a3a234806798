package example

// Errors
var (
	ErrMalformedExample           = &ModelError{"malformed example"}
	ErrInconsistentSequenceLength = &ModelError{"inconsistent sequence length"}
)

// ModelError represents a structurally invalid example: the record framing
// was intact but the decoded bytes do not form a valid example.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string {
	return e.Message
}
