// Package checksum implements the masked CRC32C used to protect TFRecord
// length and payload fields.
//
// The mask is the fixed transform defined by the TFRecord format: the raw
// CRC32C (Castagnoli polynomial) is rotated right by 15 bits and offset by a
// constant. Both the rotation distance and the constant are part of the wire
// contract; changing either breaks interoperability with files written by
// other implementations.
package checksum

import "hash/crc32"

// maskDelta is the additive constant applied after rotation. Fixed by the
// TFRecord format.
const maskDelta = 0xa282ead8

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Mask applies the TFRecord masking transform to a raw CRC32C value.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask inverts Mask.
func Unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot << 15) | (rot >> 17)
}

// Checksum returns the masked CRC32C of p.
func Checksum(p []byte) uint32 {
	return Mask(crc32.Checksum(p, castagnoli))
}

// Valid reports whether masked is the masked CRC32C of p.
func Valid(p []byte, masked uint32) bool {
	return Checksum(p) == masked
}
