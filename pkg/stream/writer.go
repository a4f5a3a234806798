package stream

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/freyr-data/tfrecord/pkg/codec"
)

// Writer appends framed records to a byte sink.
//
// Write does not flush the underlying sink; flushing and syncing are
// explicit. A Writer serializes its own callers with a mutex, but a single
// sink must not be shared by multiple Writers.
type Writer struct {
	mutex  sync.Mutex
	writer *bufio.Writer
	file   *os.File
	lock   *flock.Flock
	codec  *codec.RecordCodec
	offset int64
	closed bool
}

// NewWriter creates a writer over an arbitrary byte sink
func NewWriter(w io.Writer, config WriterConfig) *Writer {
	c := codec.NewRecordCodec()
	if config.MaxRecordSize > 0 {
		c.MaxRecordSize = config.MaxRecordSize
	}

	size := config.BufferSize
	if size <= 0 {
		size = 4096
	}

	return &Writer{
		writer: bufio.NewWriterSize(w, size),
		codec:  c,
	}
}

// OpenWriter creates a writer that appends to a TFRecord file, creating it
// if needed. With config.Lock set, an advisory lock guards against a second
// writer appending to the same file.
func OpenWriter(path string, config WriterConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}

	var fileLock *flock.Flock
	if config.Lock {
		fileLock = flock.New(path + ".lock")
		locked, err := fileLock.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrFileLocked
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		if fileLock != nil {
			fileLock.Unlock()
		}
		return nil, err
	}

	// Append semantics: continue after any existing records.
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		if fileLock != nil {
			fileLock.Unlock()
		}
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		if fileLock != nil {
			fileLock.Unlock()
		}
		return nil, err
	}

	w := NewWriter(file, config)
	w.file = file
	w.lock = fileLock
	w.offset = stat.Size()
	return w, nil
}

// Write appends one framed record and returns the offset at which it starts
func (w *Writer) Write(payload []byte) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if uint64(len(payload)) > w.codec.MaxRecordSize && w.codec.MaxRecordSize > 0 {
		return 0, ErrTooLarge
	}

	frame := w.codec.Encode(payload)
	n, err := w.writer.Write(frame)
	if err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)
	return recordOffset, nil
}

// Flush pushes buffered frames to the underlying sink
func (w *Writer) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.writer.Flush()
}

// Sync flushes and, for file-backed writers, fsyncs to disk
func (w *Writer) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

// Offset returns the offset at which the next record will start
func (w *Writer) Offset() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Close flushes, syncs and releases the file and lock
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.closed = true

	err := w.sync()

	if w.file != nil {
		if closeErr := w.file.Close(); err == nil {
			err = closeErr
		}
	}
	if w.lock != nil {
		if unlockErr := w.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}
