//go:build darwin && arm64

package et

// Apple silicon runtime builds link XNNPACK, CoreML, and MPS delegates.
var linkedBackends = []Backend{BackendXNNPACK, BackendCoreML, BackendMPS}
