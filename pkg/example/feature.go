// Package example implements the TFRecord structured-example data model: a
// named mapping of typed feature lists, in flat (Example) and sequential
// (SequenceExample) form, with deterministic wire encoding.
package example

// Value is a feature payload: exactly one of a byte-string list, a float32
// list, or an int64 list. The set is closed; every consumption site type
// switches over the three variants. An empty list is a valid value of its
// variant and the variant survives a round trip.
type Value interface {
	isValue()
}

// BytesList holds a list of byte strings
type BytesList [][]byte

// FloatList holds a list of 32-bit floats
type FloatList []float32

// Int64List holds a list of 64-bit signed integers
type Int64List []int64

func (BytesList) isValue() {}
func (FloatList) isValue() {}
func (Int64List) isValue() {}

// KindOf names a value's variant, for diagnostics and summaries
func KindOf(v Value) string {
	switch v.(type) {
	case BytesList:
		return "bytes"
	case FloatList:
		return "float"
	case Int64List:
		return "int64"
	default:
		return "unknown"
	}
}

// LenOf returns the element count of a value's list
func LenOf(v Value) int {
	switch v := v.(type) {
	case BytesList:
		return len(v)
	case FloatList:
		return len(v)
	case Int64List:
		return len(v)
	default:
		return 0
	}
}
