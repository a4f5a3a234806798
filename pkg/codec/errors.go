package codec

import "fmt"

// Errors
var (
	ErrTruncatedHeader  = &FramingError{"record header truncated"}
	ErrTruncatedPayload = &FramingError{"record payload truncated"}
	ErrLengthChecksum   = &FramingError{"length checksum mismatch"}
	ErrPayloadChecksum  = &FramingError{"payload checksum mismatch"}
	ErrRecordTooLarge   = &FramingError{"record length exceeds maximum"}
)

// FramingError represents a record framing error
type FramingError struct {
	Message string
}

func (e *FramingError) Error() string {
	return e.Message
}

// Is classifies an oversized length field as length corruption: a length
// beyond the plausible maximum is indistinguishable from a corrupted length
// field whose checksum happens to validate.
func (e *FramingError) Is(target error) bool {
	return e == ErrRecordTooLarge && target == error(ErrLengthChecksum)
}

// CorruptionError carries the stored and recomputed masked checksums for a
// failed validation. It unwraps to ErrLengthChecksum or ErrPayloadChecksum.
type CorruptionError struct {
	Err      *FramingError
	Expected uint32 // checksum stored in the stream
	Actual   uint32 // checksum recomputed from the bytes read
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: expected %08x, actual %08x", e.Err.Message, e.Expected, e.Actual)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
