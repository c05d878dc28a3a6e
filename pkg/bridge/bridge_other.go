//go:build !darwin || !cgo

package bridge

// Install is a no-op: without the privacy frameworks every native call
// fails with platform.ErrPlatformUnavailable.
func Install() {}

// Supported reports whether this build talks to the privacy frameworks.
func Supported() bool { return false }
