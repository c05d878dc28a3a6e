//go:build unix

package permissions

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// probeFile opens path read-only and classifies the outcome the way the
// privacy subsystem reports it: EPERM/EACCES is a denial, ENOENT means the
// file says nothing.
func probeFile(path string) int {
	f, err := os.Open(path)
	if err == nil {
		f.Close()
		return probeReadable
	}
	switch {
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return probeDenied
	default:
		return probeMissing
	}
}
