package stream

// ReaderConfig holds configuration for a record reader
type ReaderConfig struct {
	StartOffset   int64  // Offset to start reading from
	BufferSize    int    // Read buffer size (0 = bufio default)
	MaxRecordSize uint64 // Largest accepted payload (0 = codec default)
}

// WriterConfig holds configuration for a record writer
type WriterConfig struct {
	BufferSize    int    // Write buffer size (0 = bufio default)
	Lock          bool   // Acquire an advisory file lock on open
	MaxRecordSize uint64 // Largest accepted payload (0 = codec default)
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() []byte
	Err() error
	Close() error
}

// Errors
var (
	ErrClosed      = &StreamError{"stream is closed"}
	ErrNotSeekable = &StreamError{"stream is not seekable"}
	ErrFileLocked  = &StreamError{"file is locked by another writer"}
	ErrTooLarge    = &StreamError{"payload exceeds maximum record size"}
)

// StreamError represents a record stream error
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}
