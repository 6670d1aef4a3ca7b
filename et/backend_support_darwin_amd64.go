//go:build darwin && !arm64

package et

// Intel macOS runtime builds link XNNPACK and CoreML delegates.
var linkedBackends = []Backend{BackendXNNPACK, BackendCoreML}
