package et

import "unsafe"

// CstringToGo converts a C null-terminated string pointer to a Go string.
// Returns empty string if ptr is 0 (null).
func CstringToGo(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}

	// Scan for the null terminator through a bounded slice. The cap avoids
	// checkptr issues when walking native memory; runtime strings (version,
	// error text) are far below it, and anything longer indicates corruption.
	const maxStringLen = 1 << 20
	// #nosec G103 -- reading a native null-terminated string.
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), maxStringLen)

	var length int
	for i := 0; i < maxStringLen; i++ {
		if bytes[i] == 0 {
			length = i
			break
		}
	}

	return string(bytes[:length])
}

// GoToCstring converts a Go string to a null-terminated byte slice suitable
// for passing to native functions. Returns the byte slice and a uintptr to
// its first byte.
//
// The caller MUST keep the returned []byte alive (runtime.KeepAlive) for as
// long as the native function might read it.
func GoToCstring(s string) ([]byte, uintptr) {
	b := append([]byte(s), 0)
	// #nosec G103 -- pointer handed to a native call; the slice is returned so
	// the caller can keep it alive.
	return b, uintptr(unsafe.Pointer(&b[0]))
}
