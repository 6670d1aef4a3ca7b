package et

import (
	"unsafe"
)

// Tensor is an owned, boundary-safe tensor value: a dtype, a shape, and a
// contiguous byte buffer whose length is always exactly
// product(shape) * dtype.Size().
//
// Creation copies the caller's data; output retrieval copies the native
// runtime's data. A tensor is immutable after creation except for Destroy.
// Read accessors return borrowed views valid until Destroy; all accessors are
// safe on a nil receiver and return zero values.
type Tensor struct {
	dtype DType
	shape Shape
	data  []byte
}

// NewTensor creates a tensor from raw bytes. The data is copied; the caller's
// buffer is not retained. The byte length must match the shape and dtype
// exactly, every dimension must be positive, and the rank must be > 0.
func NewTensor(data []byte, shape Shape, dtype DType) (*Tensor, error) {
	if !dtype.valid() {
		return nil, newStatusf(ErrorCodeInvalidArgument, "unknown dtype %d", int32(dtype))
	}
	if len(shape) == 0 {
		return nil, newStatus(ErrorCodeInvalidArgument, "invalid shape or rank")
	}

	shapeCopy := cloneShape(shape)
	elementCount, err := shapeElementCount(shapeCopy)
	if err != nil {
		return nil, err
	}

	expected := elementCount * dtype.Size()
	if len(data) != expected {
		return nil, newStatusf(ErrorCodeInvalidArgument, "data size mismatch: expected %d, got %d", expected, len(data))
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	return &Tensor{dtype: dtype, shape: shapeCopy, data: owned}, nil
}

// NewEmptyTensor creates a zero-filled tensor with the given shape and dtype.
func NewEmptyTensor(shape Shape, dtype DType) (*Tensor, error) {
	if !dtype.valid() {
		return nil, newStatusf(ErrorCodeInvalidArgument, "unknown dtype %d", int32(dtype))
	}
	if len(shape) == 0 {
		return nil, newStatus(ErrorCodeInvalidArgument, "invalid shape or rank")
	}

	shapeCopy := cloneShape(shape)
	elementCount, err := shapeElementCount(shapeCopy)
	if err != nil {
		return nil, err
	}

	return &Tensor{
		dtype: dtype,
		shape: shapeCopy,
		data:  make([]byte, elementCount*dtype.Size()),
	}, nil
}

// NewTensorOf creates a tensor from a typed element slice. Supported element
// types are float32, float64, int64, int32, int16, int8, uint8, and bool.
func NewTensorOf[T any](data []T, shape Shape) (*Tensor, error) {
	dtype, err := tensorElementDType[T]()
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, newStatus(ErrorCodeInvalidArgument, "invalid shape or rank")
	}

	shapeCopy := cloneShape(shape)
	elementCount, err := shapeElementCount(shapeCopy)
	if err != nil {
		return nil, err
	}
	if len(data) != elementCount {
		return nil, newStatusf(ErrorCodeInvalidArgument, "data length mismatch: got %d elements, expected %d for shape %v", len(data), elementCount, shapeCopy)
	}

	owned := make([]byte, elementCount*dtype.Size())
	if elementCount > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(owned))
		copy(owned, src)
	}

	return &Tensor{dtype: dtype, shape: shapeCopy, data: owned}, nil
}

// Dtype returns the element type. Nil-safe (returns DTypeFloat32).
func (t *Tensor) Dtype() DType {
	if t == nil {
		return DTypeFloat32
	}
	return t.dtype
}

// Rank returns the number of dimensions. Nil-safe (returns 0).
func (t *Tensor) Rank() int32 {
	if t == nil {
		return 0
	}
	return int32(len(t.shape))
}

// Shape returns the dimension sizes. The returned slice is borrowed and valid
// until Destroy. Nil-safe (returns nil).
func (t *Tensor) Shape() Shape {
	if t == nil {
		return nil
	}
	return t.shape
}

// DataSize returns the byte length of the tensor buffer. Nil-safe.
func (t *Tensor) DataSize() int {
	if t == nil {
		return 0
	}
	return len(t.data)
}

// Data returns the tensor bytes. The returned slice is borrowed and valid
// until Destroy. Nil-safe (returns nil).
func (t *Tensor) Data() []byte {
	if t == nil {
		return nil
	}
	return t.data
}

// Float32s returns a float32 view of the buffer, or nil when the dtype does
// not match. The view is borrowed and valid until Destroy.
func (t *Tensor) Float32s() []float32 {
	return tensorView[float32](t, DTypeFloat32)
}

// Float64s returns a float64 view of the buffer, or nil on dtype mismatch.
func (t *Tensor) Float64s() []float64 {
	return tensorView[float64](t, DTypeFloat64)
}

// Int64s returns an int64 view of the buffer, or nil on dtype mismatch.
func (t *Tensor) Int64s() []int64 {
	return tensorView[int64](t, DTypeInt64)
}

// Int32s returns an int32 view of the buffer, or nil on dtype mismatch.
func (t *Tensor) Int32s() []int32 {
	return tensorView[int32](t, DTypeInt32)
}

func tensorView[T any](t *Tensor, want DType) []T {
	if t == nil || t.dtype != want || len(t.data) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(t.data))), len(t.data)/want.Size())
}

// Destroy releases the tensor's owned storage. Safe on nil; accessors return
// zero values afterward.
func (t *Tensor) Destroy() error {
	if t == nil {
		return nil
	}
	t.shape = nil
	t.data = nil
	return nil
}

// DestroyTensors destroys every tensor in the slice. Safe on nil slices and
// nil elements.
func DestroyTensors(tensors []*Tensor) {
	for _, t := range tensors {
		_ = t.Destroy()
	}
}

func cloneShape(shape Shape) Shape {
	if len(shape) == 0 {
		return Shape{}
	}
	shapeCopy := make(Shape, len(shape))
	copy(shapeCopy, shape)
	return shapeCopy
}

// shapeElementCount returns the total element count. Every dimension must be
// positive; the product is checked against int overflow.
func shapeElementCount(shape Shape) (int, error) {
	maxInt := int(^uint(0) >> 1)

	count := 1
	for i, dim := range shape {
		if dim <= 0 {
			return 0, newStatusf(ErrorCodeInvalidArgument, "invalid shape dimension at index %d: %d (must be > 0)", i, dim)
		}
		if dim > int64(maxInt) {
			return 0, newStatusf(ErrorCodeInvalidArgument, "shape dimension at index %d is too large: %d", i, dim)
		}

		dimInt := int(dim)
		if count > maxInt/dimInt {
			return 0, newStatusf(ErrorCodeInvalidArgument, "shape %v exceeds maximum supported element count", shape)
		}
		count *= dimInt
	}

	return count, nil
}

// ShapeElementCount returns the total element count for a shape.
// All dimensions must be positive.
func ShapeElementCount(shape Shape) (int, error) {
	return shapeElementCount(shape)
}

// tensorElementDType maps a Go element type to its boundary dtype.
func tensorElementDType[T any]() (DType, error) {
	var zero T

	switch any(zero).(type) {
	case float32:
		return DTypeFloat32, nil
	case float64:
		return DTypeFloat64, nil
	case int64:
		return DTypeInt64, nil
	case int32:
		return DTypeInt32, nil
	case int16:
		return DTypeInt16, nil
	case int8:
		return DTypeInt8, nil
	case uint8:
		return DTypeUint8, nil
	case bool:
		return DTypeBool, nil
	default:
		return DTypeFloat32, newStatusf(ErrorCodeUnsupported, "unsupported tensor element type %T", zero)
	}
}
