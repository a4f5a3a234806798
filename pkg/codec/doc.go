// Package codec frames and deframes TFRecord records.
//
// # Record Format
//
// Each record is serialized as:
//
//	[Length(8)][LengthChecksum(4)][Payload(Length)][PayloadChecksum(4)]
//
// Fields:
//   - Length: 64-bit unsigned payload length in bytes (little-endian)
//   - LengthChecksum: masked CRC32C of the 8 length bytes (little-endian)
//   - Payload: opaque record bytes
//   - PayloadChecksum: masked CRC32C of the payload bytes (little-endian)
//
// A file is zero or more records with no header or trailer. An empty payload
// (Length = 0) is a valid record.
//
// # Corruption Detection
//
// Both checksums must recompute to the stored values; any mismatch is
// reported as corruption, never silently accepted. Decoding distinguishes:
//
//   - ErrTruncatedHeader: the stream ended inside the 12-byte header
//   - ErrTruncatedPayload: the stream ended inside the payload or its checksum
//   - ErrLengthChecksum, ErrPayloadChecksum: a stored checksum does not match
//   - ErrRecordTooLarge: the length field exceeds the configured maximum
//
// A clean end of input at a record boundary is reported as io.EOF and is not
// an error. Checksum mismatches carry the expected and actual masked values
// via CorruptionError.
//
// # Allocation Bounds
//
// The decoder never allocates more than the configured MaxRecordSize for a
// payload, so an implausible length field from a corrupted stream cannot
// trigger unbounded allocation. Oversized lengths are treated as
// length-field corruption.
package codec
