package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/freyr-data/tfrecord/pkg/codec"
)

// Reader provides sequential access to the records of a TFRecord stream.
//
// A Reader is not safe for concurrent use; callers must serialize access to
// one instance. On a decode failure the cursor is left exactly after the
// bytes consumed by the failed attempt, so a caller can apply its own
// recovery policy; the reader never resynchronizes on its own.
type Reader struct {
	src     *countingReader
	file    *os.File
	codec   *codec.RecordCodec
	bufSize int
	offset  int64
	eof     bool
}

// countingReader tracks bytes consumed by the codec so the logical cursor
// stays exact even though the buffered source reads ahead.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// NewReader creates a reader over an arbitrary byte source
func NewReader(r io.Reader, config ReaderConfig) *Reader {
	c := codec.NewRecordCodec()
	if config.MaxRecordSize > 0 {
		c.MaxRecordSize = config.MaxRecordSize
	}

	size := config.BufferSize
	if size <= 0 {
		size = 4096
	}

	return &Reader{
		src:     &countingReader{r: bufio.NewReaderSize(r, size)},
		codec:   c,
		bufSize: size,
		offset:  config.StartOffset,
	}
}

// OpenReader creates a reader over a TFRecord file
func OpenReader(path string, config ReaderConfig) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	r := NewReader(file, config)
	r.file = file
	return r, nil
}

// Next reads the next record payload. A clean end of the stream is io.EOF,
// which remains io.EOF on every subsequent call.
func (r *Reader) Next() ([]byte, error) {
	if r.eof {
		return nil, io.EOF
	}

	start := r.offset
	consumed := r.src.n

	payload, err := r.codec.ReadRecord(r.src)
	r.offset += r.src.n - consumed

	if err == io.EOF {
		r.eof = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("record at offset %d: %w", start, err)
	}
	return payload, nil
}

// Offset returns the logical cursor position in bytes
func (r *Reader) Offset() int64 {
	return r.offset
}

// Seek repositions a file-backed reader. The buffer is discarded so the next
// read starts exactly at offset.
func (r *Reader) Seek(offset int64) error {
	if r.file == nil {
		return ErrNotSeekable
	}
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.src = &countingReader{r: bufio.NewReaderSize(r.file, r.bufSize)}
	r.offset = offset
	r.eof = false
	return nil
}

// Iterator returns a streaming iterator over the remaining records
func (r *Reader) Iterator() RecordIterator {
	return &recordIterator{reader: r}
}

// Close closes the underlying file, if any
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// recordIterator implements RecordIterator for sequential access
type recordIterator struct {
	reader *Reader
	record []byte
	err    error
}

func (it *recordIterator) Next() bool {
	it.record, it.err = it.reader.Next()
	return it.err == nil
}

func (it *recordIterator) Record() []byte {
	return it.record
}

// Err returns the error that stopped iteration, or nil after a clean end
func (it *recordIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

func (it *recordIterator) Close() error {
	// The underlying reader is owned by the caller.
	return nil
}
