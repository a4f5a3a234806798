// Package tfrecord is the high-level entry point: typed readers and writers
// that pair the record stream layer with the structured-example model. Code
// that works with raw payloads or needs concurrent endpoints can drop down
// to pkg/stream directly.
package tfrecord

import (
	"io"

	"github.com/freyr-data/tfrecord/pkg/example"
	"github.com/freyr-data/tfrecord/pkg/stream"
)

// Config tunes a reader or writer. The zero value is ready to use: protobuf
// wire codec, default buffer and record-size limits, no file lock.
type Config struct {
	// Codec serializes examples. Nil means example.DefaultCodec.
	Codec example.WireCodec
	// StartOffset is the byte offset a reader begins at.
	StartOffset int64
	// BufferSize is the stream buffer size in bytes (0 = default).
	BufferSize int
	// MaxRecordSize caps accepted payload sizes (0 = default).
	MaxRecordSize uint64
	// Lock makes a file-backed writer take an advisory lock.
	Lock bool
}

func (c Config) codec() example.WireCodec {
	if c.Codec != nil {
		return c.Codec
	}
	return example.DefaultCodec
}

// Reader reads examples from a TFRecord stream
type Reader struct {
	stream *stream.Reader
	codec  example.WireCodec
}

// NewReader creates a reader over an arbitrary byte source
func NewReader(r io.Reader, config Config) *Reader {
	return &Reader{
		stream: stream.NewReader(r, stream.ReaderConfig{
			StartOffset:   config.StartOffset,
			BufferSize:    config.BufferSize,
			MaxRecordSize: config.MaxRecordSize,
		}),
		codec: config.codec(),
	}
}

// Open creates a reader over a TFRecord file
func Open(path string, config Config) (*Reader, error) {
	s, err := stream.OpenReader(path, stream.ReaderConfig{
		StartOffset:   config.StartOffset,
		BufferSize:    config.BufferSize,
		MaxRecordSize: config.MaxRecordSize,
	})
	if err != nil {
		return nil, err
	}
	return &Reader{stream: s, codec: config.codec()}, nil
}

// Next returns the next raw record payload. io.EOF signals a clean end.
func (r *Reader) Next() ([]byte, error) {
	return r.stream.Next()
}

// ReadExample reads and decodes the next record as a flat example
func (r *Reader) ReadExample() (*example.Example, error) {
	payload, err := r.stream.Next()
	if err != nil {
		return nil, err
	}
	return r.codec.DecodeExample(payload)
}

// ReadSequenceExample reads and decodes the next record as a sequence
// example
func (r *Reader) ReadSequenceExample() (*example.SequenceExample, error) {
	payload, err := r.stream.Next()
	if err != nil {
		return nil, err
	}
	return r.codec.DecodeSequenceExample(payload)
}

// Offset returns the logical cursor position in bytes
func (r *Reader) Offset() int64 {
	return r.stream.Offset()
}

// Seek repositions a file-backed reader to a record boundary
func (r *Reader) Seek(offset int64) error {
	return r.stream.Seek(offset)
}

// Iterator returns a streaming iterator over the remaining raw records
func (r *Reader) Iterator() stream.RecordIterator {
	return r.stream.Iterator()
}

// Close closes the underlying file, if any
func (r *Reader) Close() error {
	return r.stream.Close()
}

// Writer writes examples to a TFRecord stream
type Writer struct {
	stream *stream.Writer
	codec  example.WireCodec
}

// NewWriter creates a writer over an arbitrary byte sink
func NewWriter(w io.Writer, config Config) *Writer {
	return &Writer{
		stream: stream.NewWriter(w, stream.WriterConfig{
			BufferSize:    config.BufferSize,
			MaxRecordSize: config.MaxRecordSize,
		}),
		codec: config.codec(),
	}
}

// Create creates a writer that appends to a TFRecord file
func Create(path string, config Config) (*Writer, error) {
	s, err := stream.OpenWriter(path, stream.WriterConfig{
		BufferSize:    config.BufferSize,
		Lock:          config.Lock,
		MaxRecordSize: config.MaxRecordSize,
	})
	if err != nil {
		return nil, err
	}
	return &Writer{stream: s, codec: config.codec()}, nil
}

// Write appends one raw payload and returns the offset at which its frame
// starts
func (w *Writer) Write(payload []byte) (int64, error) {
	return w.stream.Write(payload)
}

// WriteExample encodes and appends a flat example
func (w *Writer) WriteExample(e *example.Example) (int64, error) {
	payload, err := w.codec.EncodeExample(e)
	if err != nil {
		return 0, err
	}
	return w.stream.Write(payload)
}

// WriteSequenceExample encodes and appends a sequence example
func (w *Writer) WriteSequenceExample(s *example.SequenceExample) (int64, error) {
	payload, err := w.codec.EncodeSequenceExample(s)
	if err != nil {
		return 0, err
	}
	return w.stream.Write(payload)
}

// Flush pushes buffered frames to the underlying sink
func (w *Writer) Flush() error {
	return w.stream.Flush()
}

// Sync flushes and, for file-backed writers, fsyncs to disk
func (w *Writer) Sync() error {
	return w.stream.Sync()
}

// Offset returns the offset at which the next record will start
func (w *Writer) Offset() int64 {
	return w.stream.Offset()
}

// Close flushes, syncs and releases the underlying resources
func (w *Writer) Close() error {
	return w.stream.Close()
}
