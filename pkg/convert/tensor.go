// Package convert bridges the structured-example feature model and dense
// numeric containers: n-dimensional tensors and decoded images.
package convert

import (
	"fmt"
	"math"
)

// DType identifies a tensor element type
type DType int

const (
	Int64 DType = iota
	Float32
	Uint8
)

func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// Tensor is the minimal read surface a container must expose to convert
// into a feature. Element access goes through the typed sub-interfaces, so
// third-party containers participate without revealing their layout.
type Tensor interface {
	DType() DType
	Shape() []int
}

// Int64Tensor exposes row-major int64 elements
type Int64Tensor interface {
	Tensor
	Int64s() []int64
}

// Float32Tensor exposes row-major float32 elements
type Float32Tensor interface {
	Tensor
	Float32s() []float32
}

// Uint8Tensor exposes row-major uint8 elements
type Uint8Tensor interface {
	Tensor
	Bytes() []byte
}

// Dense is a dense row-major tensor. Exactly one backing slice is populated,
// matching the dtype.
type Dense struct {
	dtype DType
	shape []int

	int64s   []int64
	float32s []float32
	bytes    []byte
}

// NewInt64 builds a dense int64 tensor over data
func NewInt64(data []int64, shape ...int) (*Dense, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{dtype: Int64, shape: shape, int64s: data}, nil
}

// NewFloat32 builds a dense float32 tensor over data
func NewFloat32(data []float32, shape ...int) (*Dense, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{dtype: Float32, shape: shape, float32s: data}, nil
}

// NewUint8 builds a dense uint8 tensor over data
func NewUint8(data []byte, shape ...int) (*Dense, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{dtype: Uint8, shape: shape, bytes: data}, nil
}

// DType returns the element type
func (d *Dense) DType() DType { return d.dtype }

// Shape returns the tensor dimensions
func (d *Dense) Shape() []int {
	out := make([]int, len(d.shape))
	copy(out, d.shape)
	return out
}

// NumElements returns the product of the dimensions
func (d *Dense) NumElements() int {
	n, _ := numElements(d.shape)
	return n
}

// Int64s returns the row-major elements of an int64 tensor
func (d *Dense) Int64s() []int64 { return d.int64s }

// Float32s returns the row-major elements of a float32 tensor
func (d *Dense) Float32s() []float32 { return d.float32s }

// Bytes returns the row-major elements of a uint8 tensor
func (d *Dense) Bytes() []byte { return d.bytes }

// numElements multiplies the dimensions with overflow checking. A negative
// dimension or a product that does not fit an int is rejected.
func numElements(shape []int) (int, error) {
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrShapeMismatch, dim)
		}
		if dim != 0 && n > math.MaxInt/dim {
			return 0, fmt.Errorf("%w: shape %v", ErrSizeOverflow, shape)
		}
		n *= dim
	}
	return n, nil
}

func checkShape(shape []int, have int) error {
	want, err := numElements(shape)
	if err != nil {
		return err
	}
	if want != have {
		return fmt.Errorf("%w: shape %v wants %d elements, have %d",
			ErrShapeMismatch, shape, want, have)
	}
	return nil
}
