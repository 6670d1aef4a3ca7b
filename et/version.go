package et

// libraryVersion is the version of this binding layer, independent of the
// native runtime version reported by RuntimeVersion.
const libraryVersion = "0.1.0"

// Version returns the binding library version string.
func Version() string {
	return libraryVersion
}
