package et

// ErrorCode classifies boundary failures. Every error returned by this
// package carries one of these codes (see Status).
type ErrorCode int32

const (
	ErrorCodeOK              ErrorCode = 0
	ErrorCodeInvalidArgument ErrorCode = 1
	ErrorCodeOutOfMemory     ErrorCode = 2
	ErrorCodeModelLoadFailed ErrorCode = 3
	ErrorCodeInferenceFailed ErrorCode = 4
	ErrorCodeInvalidState    ErrorCode = 5
	ErrorCodeUnsupported     ErrorCode = 6
	ErrorCodeIOError         ErrorCode = 7
	ErrorCodeInternal        ErrorCode = 99
)

// String returns a stable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeOK:
		return "ok"
	case ErrorCodeInvalidArgument:
		return "invalid argument"
	case ErrorCodeOutOfMemory:
		return "out of memory"
	case ErrorCodeModelLoadFailed:
		return "model load failed"
	case ErrorCodeInferenceFailed:
		return "inference failed"
	case ErrorCodeInvalidState:
		return "invalid state"
	case ErrorCodeUnsupported:
		return "unsupported"
	case ErrorCodeIOError:
		return "io error"
	case ErrorCodeInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// DType identifies the element type of a tensor.
type DType int32

const (
	DTypeFloat32 DType = iota
	DTypeFloat64
	DTypeInt64
	DTypeInt32
	DTypeInt16
	DTypeInt8
	DTypeUint8
	DTypeBool
)

// Size returns the per-element byte size, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeFloat64, DTypeInt64:
		return 8
	case DTypeInt16:
		return 2
	case DTypeInt8, DTypeUint8, DTypeBool:
		return 1
	default:
		return 0
	}
}

// String returns the dtype name.
func (d DType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	case DTypeFloat64:
		return "float64"
	case DTypeInt64:
		return "int64"
	case DTypeInt32:
		return "int32"
	case DTypeInt16:
		return "int16"
	case DTypeInt8:
		return "int8"
	case DTypeUint8:
		return "uint8"
	case DTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

func (d DType) valid() bool {
	return d.Size() != 0
}

// ScalarType mirrors the native runtime's element-type enumeration. Values
// follow the runtime's own numbering, which is not contiguous with DType.
type ScalarType int32

const (
	ScalarTypeByte   ScalarType = 0
	ScalarTypeChar   ScalarType = 1
	ScalarTypeShort  ScalarType = 2
	ScalarTypeInt    ScalarType = 3
	ScalarTypeLong   ScalarType = 4
	ScalarTypeHalf   ScalarType = 5
	ScalarTypeFloat  ScalarType = 6
	ScalarTypeDouble ScalarType = 7
	ScalarTypeBool   ScalarType = 11
)

// scalarType converts a boundary dtype to the native scalar type.
func (d DType) scalarType() ScalarType {
	switch d {
	case DTypeFloat32:
		return ScalarTypeFloat
	case DTypeFloat64:
		return ScalarTypeDouble
	case DTypeInt64:
		return ScalarTypeLong
	case DTypeInt32:
		return ScalarTypeInt
	case DTypeInt16:
		return ScalarTypeShort
	case DTypeInt8:
		return ScalarTypeChar
	case DTypeUint8:
		return ScalarTypeByte
	case DTypeBool:
		return ScalarTypeBool
	default:
		return ScalarTypeFloat
	}
}

// dtypeFromScalarType converts a native scalar type back to a boundary dtype.
// The mapping is closed: scalar types outside the supported set (half,
// complex, quantized) report ok=false.
func dtypeFromScalarType(st ScalarType) (DType, bool) {
	switch st {
	case ScalarTypeFloat:
		return DTypeFloat32, true
	case ScalarTypeDouble:
		return DTypeFloat64, true
	case ScalarTypeLong:
		return DTypeInt64, true
	case ScalarTypeInt:
		return DTypeInt32, true
	case ScalarTypeShort:
		return DTypeInt16, true
	case ScalarTypeChar:
		return DTypeInt8, true
	case ScalarTypeByte:
		return DTypeUint8, true
	case ScalarTypeBool:
		return DTypeBool, true
	default:
		return DTypeFloat32, false
	}
}

// LoadMode selects how the native loader reads a model file.
type LoadMode int32

const (
	LoadModeFile LoadMode = iota
	LoadModeMmap
	LoadModeMmapUseMlock
	// LoadModeMmapUseMlockIgnoreErrors maps the file and tolerates advisory
	// mlock failures without aborting the load.
	LoadModeMmapUseMlockIgnoreErrors
)

// nativeError is an error code returned by the native runtime.
type nativeError int32

const (
	nativeOK                      nativeError = 0x00
	nativeInternal                nativeError = 0x01
	nativeInvalidState            nativeError = 0x02
	nativeEndOfMethod             nativeError = 0x03
	nativeNotSupported            nativeError = 0x10
	nativeNotImplemented          nativeError = 0x11
	nativeInvalidArgument         nativeError = 0x12
	nativeInvalidType             nativeError = 0x13
	nativeOperatorMissing         nativeError = 0x14
	nativeNotFound                nativeError = 0x20
	nativeMemoryAllocationFailed  nativeError = 0x21
	nativeAccessFailed            nativeError = 0x22
	nativeInvalidProgram          nativeError = 0x23
	nativeInvalidExternalData     nativeError = 0x24
	nativeOutOfResources          nativeError = 0x25
	nativeDelegateIncompatibility nativeError = 0x30
	nativeDelegateAllocFailed     nativeError = 0x31
	nativeDelegateInvalidHandle   nativeError = 0x32
)

// errorCode maps a native runtime error to the closest boundary code.
// The numeric native code is embedded in status messages separately.
func (e nativeError) errorCode() ErrorCode {
	switch e {
	case nativeOK:
		return ErrorCodeOK
	case nativeInvalidArgument, nativeInvalidType:
		return ErrorCodeInvalidArgument
	case nativeMemoryAllocationFailed, nativeOutOfResources, nativeDelegateAllocFailed:
		return ErrorCodeOutOfMemory
	case nativeInvalidProgram, nativeInvalidExternalData, nativeDelegateIncompatibility:
		return ErrorCodeModelLoadFailed
	case nativeNotSupported, nativeNotImplemented, nativeOperatorMissing:
		return ErrorCodeUnsupported
	case nativeAccessFailed, nativeNotFound:
		return ErrorCodeIOError
	case nativeInvalidState:
		return ErrorCodeInvalidState
	default:
		return ErrorCodeInternal
	}
}
