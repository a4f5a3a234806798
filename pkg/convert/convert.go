package convert

import (
	"fmt"
	"math"

	"github.com/freyr-data/tfrecord/pkg/example"
)

// FeatureToTensor converts a feature value into a dense tensor. With no
// shape the result is one-dimensional. Numeric lists map directly; a
// byte-string list becomes a [rows, width] uint8 tensor, where every string
// must have the same width.
func FeatureToTensor(v example.Value, shape ...int) (*Dense, error) {
	switch v := v.(type) {
	case example.Int64List:
		if len(shape) == 0 {
			shape = []int{len(v)}
		}
		return NewInt64(v, shape...)

	case example.FloatList:
		if len(shape) == 0 {
			shape = []int{len(v)}
		}
		return NewFloat32(v, shape...)

	case example.BytesList:
		flat, rows, width, err := flattenByteStrings(v)
		if err != nil {
			return nil, err
		}
		if len(shape) == 0 {
			shape = []int{rows, width}
		}
		return NewUint8(flat, shape...)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedElementType, example.KindOf(v))
	}
}

// FeatureToByteStrings returns the byte strings of a bytes feature without
// any uniformity requirement. This is the escape hatch for ragged data that
// FeatureToTensor rejects.
func FeatureToByteStrings(v example.Value) ([][]byte, error) {
	b, ok := v.(example.BytesList)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedElementType, example.KindOf(v))
	}
	out := make([][]byte, len(b))
	for i, s := range b {
		out[i] = make([]byte, len(s))
		copy(out[i], s)
	}
	return out, nil
}

// TensorToFeature flattens a tensor into a feature value in row-major
// order. A uint8 tensor of rank >= 2 is split on its first dimension into
// equal-width byte strings; rank 0 or 1 becomes a single byte string.
func TensorToFeature(t Tensor) (example.Value, error) {
	switch t.DType() {
	case Int64:
		src, ok := t.(Int64Tensor)
		if !ok {
			return nil, fmt.Errorf("%w: int64 tensor without Int64s accessor", ErrUnsupportedElementType)
		}
		data := src.Int64s()
		out := make(example.Int64List, len(data))
		copy(out, data)
		return out, nil

	case Float32:
		src, ok := t.(Float32Tensor)
		if !ok {
			return nil, fmt.Errorf("%w: float32 tensor without Float32s accessor", ErrUnsupportedElementType)
		}
		data := src.Float32s()
		out := make(example.FloatList, len(data))
		copy(out, data)
		return out, nil

	case Uint8:
		src, ok := t.(Uint8Tensor)
		if !ok {
			return nil, fmt.Errorf("%w: uint8 tensor without Bytes accessor", ErrUnsupportedElementType)
		}
		return uint8ToBytesList(src)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedElementType, t.DType())
	}
}

func uint8ToBytesList(t Uint8Tensor) (example.Value, error) {
	data := t.Bytes()
	shape := t.Shape()

	if len(shape) < 2 {
		s := make([]byte, len(data))
		copy(s, data)
		return example.BytesList{s}, nil
	}

	rows := shape[0]
	width, err := numElements(shape[1:])
	if err != nil {
		return nil, err
	}
	if rows*width != len(data) {
		return nil, fmt.Errorf("%w: shape %v wants %d elements, have %d",
			ErrShapeMismatch, shape, rows*width, len(data))
	}

	out := make(example.BytesList, rows)
	for i := 0; i < rows; i++ {
		s := make([]byte, width)
		copy(s, data[i*width:(i+1)*width])
		out[i] = s
	}
	return out, nil
}

// flattenByteStrings concatenates equal-width byte strings
func flattenByteStrings(b example.BytesList) (flat []byte, rows, width int, err error) {
	rows = len(b)
	if rows == 0 {
		return nil, 0, 0, nil
	}

	width = len(b[0])
	for i, s := range b {
		if len(s) != width {
			return nil, 0, 0, fmt.Errorf("%w: row 0 has %d bytes, row %d has %d",
				ErrRagged, width, i, len(s))
		}
	}

	if width != 0 && rows > math.MaxInt/width {
		return nil, 0, 0, fmt.Errorf("%w: %d rows of %d bytes", ErrSizeOverflow, rows, width)
	}

	flat = make([]byte, 0, rows*width)
	for _, s := range b {
		flat = append(flat, s...)
	}
	return flat, rows, width, nil
}
