package et

// Backend identifies an acceleration backend the native runtime may have
// been built with. The available set is fixed at build time: it describes
// what the shipped runtime library links for this platform, so there is no
// runtime probing and no failure mode.
type Backend int32

const (
	BackendXNNPACK Backend = iota
	BackendCoreML
	BackendMPS
	BackendVulkan
	BackendQNN
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendXNNPACK:
		return "xnnpack"
	case BackendCoreML:
		return "coreml"
	case BackendMPS:
		return "mps"
	case BackendVulkan:
		return "vulkan"
	case BackendQNN:
		return "qnn"
	default:
		return "unknown"
	}
}

// BackendAvailable reports whether the backend is linked into the runtime
// build for this platform.
func BackendAvailable(b Backend) bool {
	for _, linked := range linkedBackends {
		if linked == b {
			return true
		}
	}
	return false
}

// Backends returns the linked backend set for this platform.
func Backends() []Backend {
	out := make([]Backend, len(linkedBackends))
	copy(out, linkedBackends)
	return out
}

// BackendList copies up to len(out) linked backends into out and returns the
// number written. Writes nothing when out is empty.
func BackendList(out []Backend) int {
	return copy(out, linkedBackends)
}
