//go:build !darwin

package et

// Non-Apple runtime builds ship the baseline XNNPACK delegate only.
var linkedBackends = []Backend{BackendXNNPACK}
