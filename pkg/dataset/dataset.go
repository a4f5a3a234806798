// Package dataset provides random access over a collection of TFRecord
// files. Opening a dataset indexes every record up front; afterwards any
// record is addressable by position without rescanning.
package dataset

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/freyr-data/tfrecord/pkg/checksum"
	"github.com/freyr-data/tfrecord/pkg/codec"
	"github.com/freyr-data/tfrecord/pkg/example"
)

// Errors
var (
	ErrOutOfRange = &DatasetError{"record index out of range"}
	ErrClosed     = &DatasetError{"dataset is closed"}
)

// DatasetError represents a dataset access error
type DatasetError struct {
	Message string
}

func (e *DatasetError) Error() string {
	return e.Message
}

// Config tunes dataset opening and access
type Config struct {
	// CheckIntegrity verifies record checksums during indexing and on
	// every Get.
	CheckIntegrity bool
	// MaxOpenFiles caps concurrently open files (0 = unlimited).
	MaxOpenFiles int
	// MaxWorkers caps concurrent indexing workers (0 = GOMAXPROCS).
	MaxWorkers int
	// MaxRecordSize caps accepted payload sizes (0 = codec default).
	MaxRecordSize uint64
	// Codec deserializes examples for GetExample (nil = default).
	Codec example.WireCodec
}

// DefaultConfig returns the recommended configuration: integrity checks on,
// workers bounded by GOMAXPROCS, unlimited open files
func DefaultConfig() Config {
	return Config{CheckIntegrity: true}
}

// RecordIndex locates one record: the file it lives in, the byte offset of
// its payload, and the payload length.
type RecordIndex struct {
	Path   string
	Offset int64
	Length uint64
}

// Dataset is an indexed view over one or more TFRecord files. A Dataset is
// not safe for concurrent use; Clone gives an independent cursor over the
// shared index.
type Dataset struct {
	index []RecordIndex
	cfg   Config
	codec *codec.RecordCodec

	// files limits handles across all clones; nil means unlimited.
	files *semaphore.Weighted

	openPath string
	openFile *os.File
	closed   bool
}

// Open indexes the given files and returns a dataset over them. Files are
// indexed in parallel but the resulting index preserves path order, and
// record order within each path.
func Open(ctx context.Context, cfg Config, paths ...string) (*Dataset, error) {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var files *semaphore.Weighted
	if cfg.MaxOpenFiles > 0 {
		files = semaphore.NewWeighted(int64(cfg.MaxOpenFiles))
	}

	recordCodec := codec.NewRecordCodec()
	if cfg.MaxRecordSize > 0 {
		recordCodec.MaxRecordSize = cfg.MaxRecordSize
	}

	perPath := make([][]RecordIndex, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if files != nil {
				if err := files.Acquire(ctx, 1); err != nil {
					return err
				}
				defer files.Release(1)
			}

			index, err := indexFile(ctx, path, recordCodec, cfg.CheckIntegrity)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
			perPath[i] = index
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var index []RecordIndex
	for _, part := range perPath {
		index = append(index, part...)
	}

	return &Dataset{
		index: index,
		cfg:   cfg,
		codec: recordCodec,
		files: files,
	}, nil
}

// indexFile scans one file and records (offset, length) per record. With
// integrity checking the payloads are read and their checksums verified;
// otherwise payloads are skipped and only length headers are validated.
func indexFile(ctx context.Context, path string, c *codec.RecordCodec, checkIntegrity bool) ([]RecordIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src := bufio.NewReader(file)
	var index []RecordIndex
	offset := int64(0)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		length, err := c.ReadLength(src)
		if err == io.EOF {
			return index, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", offset, err)
		}

		payloadOffset := offset + codec.HeaderSize
		if checkIntegrity {
			if _, err := c.ReadPayload(src, length); err != nil {
				return nil, fmt.Errorf("record at offset %d: %w", offset, err)
			}
		} else {
			if _, err := io.CopyN(io.Discard, src, int64(length)+codec.ChecksumSize); err != nil {
				return nil, fmt.Errorf("record at offset %d: %w", offset, codec.ErrTruncatedPayload)
			}
		}

		index = append(index, RecordIndex{Path: path, Offset: payloadOffset, Length: length})
		offset = payloadOffset + int64(length) + codec.ChecksumSize
	}
}

// NumRecords returns the number of indexed records
func (d *Dataset) NumRecords() int {
	return len(d.index)
}

// Index returns the location of record i
func (d *Dataset) Index(i int) (RecordIndex, error) {
	if i < 0 || i >= len(d.index) {
		return RecordIndex{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(d.index))
	}
	return d.index[i], nil
}

// Get returns the payload of record i
func (d *Dataset) Get(ctx context.Context, i int) ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}
	loc, err := d.Index(i)
	if err != nil {
		return nil, err
	}

	file, err := d.open(ctx, loc.Path)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, loc.Length+codec.ChecksumSize)
	if _, err := file.ReadAt(buf, loc.Offset); err != nil {
		return nil, fmt.Errorf("record %d at %s offset %d: %w", i, loc.Path, loc.Offset, err)
	}

	payload := buf[:loc.Length]
	if d.cfg.CheckIntegrity {
		stored := binary.LittleEndian.Uint32(buf[loc.Length:])
		if !checksum.Valid(payload, stored) {
			return nil, fmt.Errorf("record %d at %s offset %d: %w",
				i, loc.Path, loc.Offset, codec.ErrPayloadChecksum)
		}
	}
	return payload, nil
}

// GetExample returns record i decoded as a flat example
func (d *Dataset) GetExample(ctx context.Context, i int) (*example.Example, error) {
	payload, err := d.Get(ctx, i)
	if err != nil {
		return nil, err
	}
	c := d.cfg.Codec
	if c == nil {
		c = example.DefaultCodec
	}
	return c.DecodeExample(payload)
}

// open returns a file handle for path, reusing the cached one when the path
// matches the previous access.
func (d *Dataset) open(ctx context.Context, path string) (*os.File, error) {
	if d.openFile != nil && d.openPath == path {
		return d.openFile, nil
	}

	if d.openFile != nil {
		d.openFile.Close()
		d.openFile = nil
		if d.files != nil {
			d.files.Release(1)
		}
	}

	if d.files != nil {
		if err := d.files.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	file, err := os.Open(path)
	if err != nil {
		if d.files != nil {
			d.files.Release(1)
		}
		return nil, err
	}

	d.openPath = path
	d.openFile = file
	return file, nil
}

// Clone returns an independent cursor over the shared index. The clone has
// its own file-handle cache and must be closed separately.
func (d *Dataset) Clone() *Dataset {
	return &Dataset{
		index: d.index,
		cfg:   d.cfg,
		codec: d.codec,
		files: d.files,
	}
}

// Iterator returns a sequential iterator over all records
func (d *Dataset) Iterator(ctx context.Context) *Iterator {
	return &Iterator{ctx: ctx, dataset: d.Clone(), next: 0}
}

// Close releases the cached file handle
func (d *Dataset) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true

	if d.openFile != nil {
		err := d.openFile.Close()
		d.openFile = nil
		if d.files != nil {
			d.files.Release(1)
		}
		return err
	}
	return nil
}

// Iterator walks a dataset in index order
type Iterator struct {
	ctx     context.Context
	dataset *Dataset
	next    int
	record  []byte
	err     error
}

// Next advances to the next record, returning false at the end or on error
func (it *Iterator) Next() bool {
	if it.err != nil || it.next >= it.dataset.NumRecords() {
		return false
	}
	it.record, it.err = it.dataset.Get(it.ctx, it.next)
	if it.err != nil {
		return false
	}
	it.next++
	return true
}

// Record returns the current payload
func (it *Iterator) Record() []byte {
	return it.record
}

// Err returns the error that stopped iteration, if any
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator's cursor
func (it *Iterator) Close() error {
	return it.dataset.Close()
}
