package et

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// forwardMethodName is the entry point resolved at load time.
const forwardMethodName = "forward"

// Module is an opaque handle to a loaded model. It exclusively owns the
// native program object and, for buffer-loaded models, the backing byte
// buffer the native loader reads from (the loader never copies its source
// bytes, so the buffer must outlive the program).
//
// Forward is safe for concurrent use on one handle: calls are serialized by
// the handle's lock. Load, Destroy, and the metadata reads are not internally
// synchronized; the caller must not run Destroy concurrently with any other
// operation on the same handle.
type Module struct {
	callMu sync.Mutex

	program uintptr
	method  uintptr
	loaded  bool

	inputCount  int32
	outputCount int32

	// modelData backs the native loader for buffer-loaded models and is
	// pinned for the lifetime of the handle.
	modelData  []byte
	loadPinner *runtime.Pinner

	// Staging buffers for the current forward call. The native argument
	// representation stores raw pointers into these; they stay pinned from
	// the start of call N until the start of call N+1 and are only ever
	// touched under callMu.
	staging       []stagingSlot
	stagingArgs   []tensorArg
	stagingPinner *runtime.Pinner
}

// stagingSlot holds the handle-owned copy of one input's shape and payload.
type stagingSlot struct {
	sizes []int32
	data  []byte
}

// moduleRuntime is the snapshot of registered native entry points a module
// operation runs against.
type moduleRuntime struct {
	programLoadBuffer func(data uintptr, size uint64, out *uintptr) int32
	programLoadFile   func(path uintptr, mode int32, out *uintptr) int32
	programFree       func(program uintptr)
	methodLoad        func(program uintptr, name uintptr, out *uintptr) int32
	methodNumInputs   func(method uintptr) int64
	methodNumOutputs  func(method uintptr) int64
	methodExecute     func(method uintptr, args uintptr, argCount int32, outValues *uintptr, outCount *int32) int32
	valueIsTensor     func(value uintptr) int32
	valueScalarType   func(value uintptr) int32
	valueDim          func(value uintptr) int32
	valueSizes        func(value uintptr) uintptr
	valueData         func(value uintptr) uintptr
	valuesFree        func(values uintptr, count int32)
}

func snapshotModuleRuntime() (moduleRuntime, *Status) {
	mu.Lock()
	rt := moduleRuntime{
		programLoadBuffer: programLoadBufferFunc,
		programLoadFile:   programLoadFileFunc,
		programFree:       programFreeFunc,
		methodLoad:        methodLoadFunc,
		methodNumInputs:   methodNumInputsFunc,
		methodNumOutputs:  methodNumOutputsFunc,
		methodExecute:     methodExecuteFunc,
		valueIsTensor:     valueIsTensorFunc,
		valueScalarType:   valueScalarTypeFunc,
		valueDim:          valueDimFunc,
		valueSizes:        valueSizesFunc,
		valueData:         valueDataFunc,
		valuesFree:        valuesFreeFunc,
	}
	mu.Unlock()

	if rt.programLoadBuffer == nil || rt.programLoadFile == nil || rt.programFree == nil ||
		rt.methodLoad == nil || rt.methodExecute == nil {
		return moduleRuntime{}, newStatus(ErrorCodeInvalidState, "native runtime not initialized")
	}
	return rt, nil
}

// LoadModule loads a model from an in-memory program blob.
//
// The bytes are copied into a handle-owned buffer before the native loader
// sees them: the loader reads lazily from that buffer for the handle's entire
// lifetime, so the caller's buffer may be freed as soon as LoadModule
// returns. Either a fully loaded handle is returned, or no handle at all.
func LoadModule(data []byte) (m *Module, err error) {
	defer recoverToStatus(&err, ErrorCodeModelLoadFailed)

	rt, stErr := snapshotModuleRuntime()
	if stErr != nil {
		return nil, stErr
	}
	if len(data) == 0 {
		return nil, newStatus(ErrorCodeInvalidArgument, "invalid model data")
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	pinner := &runtime.Pinner{}
	pinner.Pin(unsafe.SliceData(owned))

	var program uintptr
	// #nosec G103 -- CGO-free FFI; the buffer is pinned for the program lifetime.
	rc := rt.programLoadBuffer(uintptr(unsafe.Pointer(unsafe.SliceData(owned))), uint64(len(owned)), &program)
	if rc != 0 {
		pinner.Unpin()
		return nil, statusFromNative(ErrorCodeModelLoadFailed, "failed to load program", nativeError(rc))
	}

	module := &Module{
		program:    program,
		modelData:  owned,
		loadPinner: pinner,
	}

	if err := finishLoad(module, rt); err != nil {
		module.release(rt.programFree)
		return nil, err
	}
	return module, nil
}

// LoadModuleFromFile loads a model from a file path. The native loader maps
// the file directly (mmap, tolerating advisory mlock failures), so no owned
// byte copy is kept.
func LoadModuleFromFile(path string) (m *Module, err error) {
	defer recoverToStatus(&err, ErrorCodeModelLoadFailed)

	rt, stErr := snapshotModuleRuntime()
	if stErr != nil {
		return nil, stErr
	}
	if path == "" {
		return nil, newStatus(ErrorCodeInvalidArgument, "path is empty")
	}

	pathBytes, pathPtr := GoToCstring(path)

	var program uintptr
	rc := rt.programLoadFile(pathPtr, int32(LoadModeMmapUseMlockIgnoreErrors), &program)
	runtime.KeepAlive(pathBytes)
	if rc != 0 {
		return nil, newStatusf(ErrorCodeModelLoadFailed, "failed to load program from %q: native error 0x%02x", path, rc)
	}

	module := &Module{program: program}

	if err := finishLoad(module, rt); err != nil {
		module.release(rt.programFree)
		return nil, err
	}
	return module, nil
}

// finishLoad resolves the forward method and caches arity metadata. The
// method-load step initializes any backend delegate the model was compiled
// against; its failure is the characteristic symptom of a delegate mismatch
// between the model and the linked backends.
func finishLoad(module *Module, rt moduleRuntime) *Status {
	nameBytes, namePtr := GoToCstring(forwardMethodName)

	var method uintptr
	rc := rt.methodLoad(module.program, namePtr, &method)
	runtime.KeepAlive(nameBytes)
	if rc != 0 {
		return statusFromNative(ErrorCodeModelLoadFailed,
			"failed to load forward method (backend delegate may not be linked in)", nativeError(rc))
	}
	module.method = method

	module.inputCount, module.outputCount = 1, 1
	if rt.methodNumInputs != nil && rt.methodNumOutputs != nil {
		in := rt.methodNumInputs(method)
		out := rt.methodNumOutputs(method)
		if in >= 0 && out >= 0 {
			module.inputCount = int32(in)
			module.outputCount = int32(out)
		} else {
			logWarn("method metadata unavailable, defaulting arity to 1/1",
				zap.Int64("inputs", in), zap.Int64("outputs", out))
		}
	}

	module.loaded = true
	runtime.SetFinalizer(module, func(m *Module) { _ = m.Destroy() })

	logDebug("model loaded",
		zap.Int32("inputs", module.inputCount), zap.Int32("outputs", module.outputCount))
	return nil
}

// InputCount returns the number of input slots the forward method declares.
// Returns 0 on a nil or not-loaded handle.
func (m *Module) InputCount() int32 {
	if m == nil || !m.loaded {
		return 0
	}
	return m.inputCount
}

// OutputCount returns the number of output slots the forward method declares.
// Returns 0 on a nil or not-loaded handle.
func (m *Module) OutputCount() int32 {
	if m == nil || !m.loaded {
		return 0
	}
	return m.outputCount
}

// Forward runs a synchronous forward computation. Inputs are staged into
// handle-owned buffers before the native call, so callers may destroy their
// input tensors as soon as Forward returns. Output tensors are owned copies;
// the caller must Destroy them.
//
// Calls on the same handle are serialized; calls on independent handles run
// in parallel.
func (m *Module) Forward(inputs []*Tensor) (outputs []*Tensor, err error) {
	if m == nil || !m.loaded {
		return nil, newStatus(ErrorCodeInvalidState, "module not loaded")
	}
	for i, input := range inputs {
		if input == nil || input.data == nil {
			return nil, newStatusf(ErrorCodeInvalidArgument, "input tensor %d is nil", i)
		}
	}

	rt, stErr := snapshotModuleRuntime()
	if stErr != nil {
		return nil, stErr
	}

	m.callMu.Lock()
	defer m.callMu.Unlock()
	defer recoverToStatus(&err, ErrorCodeInferenceFailed)

	argsPtr, argCount := m.stageInputs(inputs)

	var outValuesPtr uintptr
	var outCount int32
	rc := rt.methodExecute(m.method, argsPtr, argCount, &outValuesPtr, &outCount)
	if rc != 0 {
		return nil, statusFromNative(ErrorCodeInferenceFailed, "forward execution failed", nativeError(rc))
	}

	converted, st := convertOutputs(rt, outValuesPtr, outCount)
	if st != nil {
		return nil, st
	}
	return converted, nil
}

// stageInputs refreshes the handle's staging set for a new call: the previous
// call's buffers are unpinned and replaced with copies of each input's shape
// (as native sizes) and payload. The returned pointer addresses the native
// argument array; everything it references is pinned until the next call.
// Caller holds callMu.
func (m *Module) stageInputs(inputs []*Tensor) (argsPtr uintptr, argCount int32) {
	if m.stagingPinner != nil {
		m.stagingPinner.Unpin()
		m.stagingPinner = nil
	}
	m.staging = m.staging[:0]
	m.stagingArgs = m.stagingArgs[:0]

	if len(inputs) == 0 {
		return 0, 0
	}

	pinner := &runtime.Pinner{}
	for _, input := range inputs {
		sizes := make([]int32, len(input.shape))
		for i, dim := range input.shape {
			sizes[i] = int32(dim)
		}
		data := make([]byte, len(input.data))
		copy(data, input.data)

		pinner.Pin(unsafe.SliceData(sizes))
		if len(data) > 0 {
			pinner.Pin(unsafe.SliceData(data))
		}
		m.staging = append(m.staging, stagingSlot{sizes: sizes, data: data})

		arg := tensorArg{
			scalarType: int32(input.dtype.scalarType()),
			rank:       int32(len(sizes)),
			// #nosec G103 -- the native side stores these raw pointers; both
			// slices are pinned and handle-owned until the next call.
			sizes: uintptr(unsafe.Pointer(unsafe.SliceData(sizes))),
		}
		if len(data) > 0 {
			arg.data = uintptr(unsafe.Pointer(unsafe.SliceData(data)))
		}
		m.stagingArgs = append(m.stagingArgs, arg)
	}

	pinner.Pin(unsafe.SliceData(m.stagingArgs))
	m.stagingPinner = pinner

	return uintptr(unsafe.Pointer(unsafe.SliceData(m.stagingArgs))), int32(len(m.stagingArgs))
}

// convertOutputs copies every native result value into an owned Tensor. Any
// non-tensor or malformed value aborts the whole call: already-converted
// tensors are destroyed and no partial output slice is returned.
func convertOutputs(rt moduleRuntime, outValuesPtr uintptr, outCount int32) ([]*Tensor, *Status) {
	if outCount < 0 || (outCount > 0 && outValuesPtr == 0) {
		return nil, newStatusf(ErrorCodeInferenceFailed, "native runtime returned invalid output set (count %d)", outCount)
	}
	if outCount == 0 {
		return []*Tensor{}, nil
	}

	if rt.valuesFree != nil {
		defer rt.valuesFree(outValuesPtr, outCount)
	}

	// #nosec G103 -- outValuesPtr addresses a native-owned handle array of
	// exactly outCount entries, freed above after conversion.
	values := unsafe.Slice((*uintptr)(unsafe.Pointer(outValuesPtr)), int(outCount))

	outputs := make([]*Tensor, 0, outCount)
	fail := func(s *Status) ([]*Tensor, *Status) {
		DestroyTensors(outputs)
		return nil, s
	}

	for i, value := range values {
		if rt.valueIsTensor == nil || rt.valueIsTensor(value) == 0 {
			return fail(newStatusf(ErrorCodeInferenceFailed, "output value %d is not a tensor", i))
		}

		dtype, ok := dtypeFromScalarType(ScalarType(rt.valueScalarType(value)))
		if !ok {
			return fail(newStatusf(ErrorCodeInferenceFailed, "output value %d has unsupported scalar type %d", i, rt.valueScalarType(value)))
		}

		dim := rt.valueDim(value)
		if dim <= 0 {
			return fail(newStatusf(ErrorCodeInferenceFailed, "output value %d has invalid rank %d", i, dim))
		}

		sizesPtr := rt.valueSizes(value)
		if sizesPtr == 0 {
			return fail(newStatusf(ErrorCodeInferenceFailed, "output value %d has no shape", i))
		}
		// #nosec G103 -- native-owned sizes array of length dim, copied below.
		nativeSizes := unsafe.Slice((*int32)(unsafe.Pointer(sizesPtr)), int(dim))

		shape := make(Shape, dim)
		numel := 1
		for j, size := range nativeSizes {
			shape[j] = int64(size)
			numel *= int(size)
		}
		if numel < 0 {
			return fail(newStatusf(ErrorCodeInferenceFailed, "output value %d has invalid shape %v", i, shape))
		}

		byteLen := numel * dtype.Size()
		data := make([]byte, byteLen)
		if byteLen > 0 {
			dataPtr := rt.valueData(value)
			if dataPtr == 0 {
				return fail(newStatusf(ErrorCodeInferenceFailed, "output value %d has no data", i))
			}
			// #nosec G103 -- native-owned tensor payload, copied into owned storage.
			copy(data, unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), byteLen))
		}

		outputs = append(outputs, &Tensor{dtype: dtype, shape: shape, data: data})
	}

	return outputs, nil
}

// Destroy releases the native program object, then the owned model buffer.
// Safe on nil. The handle must not be used after Destroy; no use-after-destroy
// protection is provided.
func (m *Module) Destroy() error {
	if m == nil {
		return nil
	}

	m.callMu.Lock()
	defer m.callMu.Unlock()

	mu.Lock()
	programFree := programFreeFunc
	mu.Unlock()

	m.release(programFree)
	runtime.SetFinalizer(m, nil)
	return nil
}

// release frees native and pinned resources. Caller must guarantee exclusive
// access to the handle.
func (m *Module) release(programFree func(uintptr)) {
	if m.stagingPinner != nil {
		m.stagingPinner.Unpin()
		m.stagingPinner = nil
	}
	m.staging = nil
	m.stagingArgs = nil

	if m.program != 0 && programFree != nil {
		programFree(m.program)
	}
	m.program = 0
	m.method = 0
	m.loaded = false

	if m.loadPinner != nil {
		m.loadPinner.Unpin()
		m.loadPinner = nil
	}
	m.modelData = nil
}

// recoverToStatus converts a panic escaping a boundary entry point into a
// status error so no failure crosses to the caller unclassified.
func recoverToStatus(err *error, code ErrorCode) {
	if r := recover(); r != nil {
		*err = &Status{
			code:     code,
			message:  fmt.Sprintf("native call panicked: %v", r),
			location: callerName(2),
		}
	}
}
