package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/freyr-data/tfrecord/pkg/checksum"
)

const (
	// LengthSize is the size of the length field in bytes
	LengthSize = 8
	// ChecksumSize is the size of each masked checksum field in bytes
	ChecksumSize = 4
	// HeaderSize is the size of the length field plus its checksum
	HeaderSize = LengthSize + ChecksumSize
	// Overhead is the framing cost per record in bytes
	Overhead = HeaderSize + ChecksumSize

	// DefaultMaxRecordSize bounds payload allocation during decoding. The
	// format itself has no limit; 1 GiB is far beyond any realistic
	// serialized example while keeping a corrupted length field from
	// driving allocation.
	DefaultMaxRecordSize = 1 << 30
)

// RecordCodec frames and deframes individual records
type RecordCodec struct {
	// MaxRecordSize is the largest payload length accepted during decoding.
	MaxRecordSize uint64
}

// NewRecordCodec creates a codec with the default size bound
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{MaxRecordSize: DefaultMaxRecordSize}
}

func (c *RecordCodec) maxRecordSize() uint64 {
	if c.MaxRecordSize == 0 {
		return DefaultMaxRecordSize
	}
	return c.MaxRecordSize
}

// EncodedSize returns the framed size of a payload of n bytes
func (c *RecordCodec) EncodedSize(n int) int {
	return n + Overhead
}

// Encode frames a payload into a complete record
func (c *RecordCodec) Encode(payload []byte) []byte {
	buf := make([]byte, Overhead+len(payload))

	binary.LittleEndian.PutUint64(buf[0:LengthSize], uint64(len(payload)))
	binary.LittleEndian.PutUint32(buf[LengthSize:HeaderSize], checksum.Checksum(buf[0:LengthSize]))
	copy(buf[HeaderSize:], payload)
	binary.LittleEndian.PutUint32(buf[HeaderSize+len(payload):], checksum.Checksum(payload))

	return buf
}

// ReadRecord reads and validates one complete record from r, returning the
// payload bytes. A clean end of input before any header byte is io.EOF.
func (c *RecordCodec) ReadRecord(r io.Reader) ([]byte, error) {
	length, err := c.ReadLength(r)
	if err != nil {
		return nil, err
	}
	return c.ReadPayload(r, length)
}

// ReadLength reads and validates the 12-byte record header, returning the
// payload length. Zero bytes available is io.EOF; a partial header is
// ErrTruncatedHeader.
func (c *RecordCodec) ReadLength(r io.Reader) (uint64, error) {
	var header [HeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err == io.EOF {
		return 0, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w: read %d of %d header bytes", ErrTruncatedHeader, n, HeaderSize)
	}
	if err != nil {
		return 0, err
	}

	stored := binary.LittleEndian.Uint32(header[LengthSize:HeaderSize])
	if actual := checksum.Checksum(header[:LengthSize]); actual != stored {
		return 0, &CorruptionError{Err: ErrLengthChecksum, Expected: stored, Actual: actual}
	}

	length := binary.LittleEndian.Uint64(header[:LengthSize])
	if max := c.maxRecordSize(); length > max {
		return 0, fmt.Errorf("%w: length %d exceeds maximum %d", ErrRecordTooLarge, length, max)
	}

	return length, nil
}

// ReadPayload reads length payload bytes plus the trailing checksum and
// validates them. A short read is ErrTruncatedPayload.
func (c *RecordCodec) ReadPayload(r io.Reader, length uint64) ([]byte, error) {
	if max := c.maxRecordSize(); length > max {
		return nil, fmt.Errorf("%w: length %d exceeds maximum %d", ErrRecordTooLarge, length, max)
	}

	payload := make([]byte, length)
	if n, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: read %d of %d payload bytes", ErrTruncatedPayload, n, length)
		}
		return nil, err
	}

	var footer [ChecksumSize]byte
	if n, err := io.ReadFull(r, footer[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: read %d of %d checksum bytes", ErrTruncatedPayload, n, ChecksumSize)
		}
		return nil, err
	}

	stored := binary.LittleEndian.Uint32(footer[:])
	if actual := checksum.Checksum(payload); actual != stored {
		return nil, &CorruptionError{Err: ErrPayloadChecksum, Expected: stored, Actual: actual}
	}

	return payload, nil
}
