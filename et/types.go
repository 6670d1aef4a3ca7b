package et

// Shape represents the shape of a tensor.
type Shape []int64

// NewShape creates a new shape from dimensions.
func NewShape(dims ...int64) Shape {
	return Shape(dims)
}

// tensorArg is the native runtime's argument representation for one tensor.
// The native side stores the sizes and data pointers without copying, so both
// must point at storage that outlives the execute call (the module's staging
// buffers, never a caller-owned tensor or a stack temporary).
type tensorArg struct {
	scalarType int32
	rank       int32
	sizes      uintptr // *int32, length rank
	data       uintptr // *byte, length product(sizes) * element size
}
