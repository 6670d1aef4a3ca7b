package et

import (
	"strings"
	"testing"
	"unsafe"
)

// resetEnvironmentState returns the package globals to their pristine state.
// Tests that touch the environment must call this before and after.
func resetEnvironmentState() {
	mu.Lock()
	defer mu.Unlock()
	refCount = 0
	libHandle = 0
	libPath = ""
	clearRuntimeFunctions()
}

func TestIsInitialized(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)

	if IsInitialized() {
		t.Error("IsInitialized() = true before Initialize")
	}

	mu.Lock()
	refCount = 1
	mu.Unlock()

	if !IsInitialized() {
		t.Error("IsInitialized() = false with a live reference")
	}
}

func TestInitializeWithoutPath(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)
	t.Setenv("EXECUTORCH_LIB_PATH", "")

	err := Initialize()
	if err == nil {
		t.Fatal("Initialize() expected error without a library path")
	}
	if !strings.Contains(err.Error(), "shared library path not set") {
		t.Errorf("unexpected error: %v", err)
	}
	if IsInitialized() {
		t.Error("IsInitialized() = true after failed Initialize")
	}
}

func TestInitializeRefCounting(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)

	// Simulate a live environment; further Initialize calls must only bump
	// the count, without touching the library.
	mu.Lock()
	refCount = 1
	mu.Unlock()

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() on live environment = %v", err)
	}

	mu.Lock()
	count := refCount
	mu.Unlock()
	if count != 2 {
		t.Errorf("refCount = %d, want 2", count)
	}

	if err := Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if !IsInitialized() {
		t.Error("environment torn down while references remain")
	}

	if err := Destroy(); err != nil {
		t.Fatalf("final Destroy() error = %v", err)
	}
	if IsInitialized() {
		t.Error("environment still live after final Destroy")
	}
}

func TestDestroyWithoutInitialize(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)

	if err := Destroy(); err != nil {
		t.Errorf("Destroy() without Initialize = %v, want nil", err)
	}
}

func TestSetSharedLibraryPath(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)

	if err := SetSharedLibraryPath(""); err == nil {
		t.Error("SetSharedLibraryPath(\"\") expected error")
	}
	if err := SetSharedLibraryPath("   "); err == nil {
		t.Error("SetSharedLibraryPath(blank) expected error")
	}

	if err := SetSharedLibraryPath("/opt/et/libexecutorch_ffi.so"); err != nil {
		t.Fatalf("SetSharedLibraryPath() error = %v", err)
	}

	mu.Lock()
	got := libPath
	mu.Unlock()
	if got != "/opt/et/libexecutorch_ffi.so" {
		t.Errorf("libPath = %q", got)
	}

	// Re-setting the same path on a live environment is allowed; changing it
	// is not.
	mu.Lock()
	refCount = 1
	mu.Unlock()

	if err := SetSharedLibraryPath("/opt/et/libexecutorch_ffi.so"); err != nil {
		t.Errorf("re-setting identical path on live environment = %v", err)
	}
	if err := SetSharedLibraryPath("/other/lib.so"); err == nil {
		t.Error("changing path on live environment expected error")
	}
}

func TestRuntimeVersionUninitialized(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)

	if v := RuntimeVersion(); v != "" {
		t.Errorf("RuntimeVersion() = %q, want empty when not initialized", v)
	}
}

func TestRuntimeVersionFromNative(t *testing.T) {
	resetEnvironmentState()
	t.Cleanup(resetEnvironmentState)

	version := append([]byte("1.0.1"), 0)
	mu.Lock()
	runtimeVersionFunc = func() uintptr {
		return uintptr(unsafe.Pointer(unsafe.SliceData(version)))
	}
	mu.Unlock()

	if v := RuntimeVersion(); v != "1.0.1" {
		t.Errorf("RuntimeVersion() = %q, want 1.0.1", v)
	}
}
