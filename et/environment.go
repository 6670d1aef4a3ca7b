package et

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"
)

var (
	mu        sync.Mutex
	refCount  int
	libHandle uintptr
	libPath   string
)

// Registered native entry points. All are nil until Initialize succeeds and
// are reset to nil when the last Destroy tears the environment down. Tests
// install fakes here directly.
var (
	programLoadBufferFunc func(data uintptr, size uint64, out *uintptr) int32
	programLoadFileFunc   func(path uintptr, mode int32, out *uintptr) int32
	programFreeFunc       func(program uintptr)
	methodLoadFunc        func(program uintptr, name uintptr, out *uintptr) int32
	methodNumInputsFunc   func(method uintptr) int64
	methodNumOutputsFunc  func(method uintptr) int64
	methodExecuteFunc     func(method uintptr, args uintptr, argCount int32, outValues *uintptr, outCount *int32) int32
	valueIsTensorFunc     func(value uintptr) int32
	valueScalarTypeFunc   func(value uintptr) int32
	valueDimFunc          func(value uintptr) int32
	valueSizesFunc        func(value uintptr) uintptr
	valueDataFunc         func(value uintptr) uintptr
	valuesFreeFunc        func(values uintptr, count int32)
	runtimeVersionFunc    func() uintptr
)

// SetSharedLibraryPath sets the path of the native runtime shared library.
// Must be called before Initialize; the path cannot change while the
// environment is live.
func SetSharedLibraryPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("shared library path cannot be empty")
	}

	mu.Lock()
	defer mu.Unlock()

	if refCount > 0 && libPath != path {
		return fmt.Errorf("cannot change library path after environment is initialized")
	}
	libPath = path
	return nil
}

// Initialize loads the native runtime shared library and resolves its entry
// points. Calls are reference counted: each successful Initialize must be
// paired with a Destroy. The library path comes from SetSharedLibraryPath or
// the EXECUTORCH_LIB_PATH environment variable.
func Initialize() error {
	mu.Lock()
	defer mu.Unlock()

	if refCount > 0 {
		refCount++
		return nil
	}

	path := libPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv("EXECUTORCH_LIB_PATH"))
	}
	if path == "" {
		return fmt.Errorf("shared library path not set: call SetSharedLibraryPath, set EXECUTORCH_LIB_PATH, or use InitializeWithBootstrap")
	}

	handle, err := loadLibrary(path)
	if err != nil || handle == 0 {
		return fmt.Errorf("failed to load native runtime library %q: %w", path, err)
	}

	if err := registerRuntimeFunctions(handle); err != nil {
		clearRuntimeFunctions()
		_ = closeLibrary(handle)
		return err
	}

	libHandle = handle
	libPath = path
	refCount = 1

	logDebug("native runtime initialized", zap.String("path", path))
	return nil
}

// Destroy releases one reference on the environment. When the count reaches
// zero the registered entry points are cleared and the library is unloaded.
// A Destroy without a matching Initialize is a no-op.
func Destroy() error {
	mu.Lock()
	defer mu.Unlock()

	if refCount == 0 {
		return nil
	}

	refCount--
	if refCount > 0 {
		return nil
	}

	clearRuntimeFunctions()
	handle := libHandle
	libHandle = 0

	if handle != 0 {
		if err := closeLibrary(handle); err != nil {
			return fmt.Errorf("failed to unload native runtime library: %w", err)
		}
	}
	return nil
}

// IsInitialized reports whether the environment is live.
func IsInitialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return refCount > 0
}

// RuntimeVersion returns the linked native runtime version string, or ""
// when the environment is not initialized.
func RuntimeVersion() string {
	mu.Lock()
	versionFn := runtimeVersionFunc
	mu.Unlock()

	if versionFn == nil {
		return ""
	}
	return CstringToGo(versionFn())
}

// registerRuntimeFunctions resolves every required native symbol. A missing
// symbol fails initialization; the runtime surface is closed and versioned
// together with the library artifact.
func registerRuntimeFunctions(handle uintptr) error {
	symbols := []struct {
		name     string
		register func(uintptr)
	}{
		{"et_program_load_buffer", func(sym uintptr) { purego.RegisterFunc(&programLoadBufferFunc, sym) }},
		{"et_program_load_file", func(sym uintptr) { purego.RegisterFunc(&programLoadFileFunc, sym) }},
		{"et_program_free", func(sym uintptr) { purego.RegisterFunc(&programFreeFunc, sym) }},
		{"et_method_load", func(sym uintptr) { purego.RegisterFunc(&methodLoadFunc, sym) }},
		{"et_method_num_inputs", func(sym uintptr) { purego.RegisterFunc(&methodNumInputsFunc, sym) }},
		{"et_method_num_outputs", func(sym uintptr) { purego.RegisterFunc(&methodNumOutputsFunc, sym) }},
		{"et_method_execute", func(sym uintptr) { purego.RegisterFunc(&methodExecuteFunc, sym) }},
		{"et_value_is_tensor", func(sym uintptr) { purego.RegisterFunc(&valueIsTensorFunc, sym) }},
		{"et_value_scalar_type", func(sym uintptr) { purego.RegisterFunc(&valueScalarTypeFunc, sym) }},
		{"et_value_dim", func(sym uintptr) { purego.RegisterFunc(&valueDimFunc, sym) }},
		{"et_value_sizes", func(sym uintptr) { purego.RegisterFunc(&valueSizesFunc, sym) }},
		{"et_value_data", func(sym uintptr) { purego.RegisterFunc(&valueDataFunc, sym) }},
		{"et_values_free", func(sym uintptr) { purego.RegisterFunc(&valuesFreeFunc, sym) }},
		{"et_runtime_version", func(sym uintptr) { purego.RegisterFunc(&runtimeVersionFunc, sym) }},
	}

	for _, s := range symbols {
		sym, err := getSymbol(handle, s.name)
		if err != nil || sym == 0 {
			return fmt.Errorf("failed to resolve native runtime symbol %q: %w", s.name, err)
		}
		s.register(sym)
	}
	return nil
}

func clearRuntimeFunctions() {
	programLoadBufferFunc = nil
	programLoadFileFunc = nil
	programFreeFunc = nil
	methodLoadFunc = nil
	methodNumInputsFunc = nil
	methodNumOutputsFunc = nil
	methodExecuteFunc = nil
	valueIsTensorFunc = nil
	valueScalarTypeFunc = nil
	valueDimFunc = nil
	valueSizesFunc = nil
	valueDataFunc = nil
	valuesFreeFunc = nil
	runtimeVersionFunc = nil
}
