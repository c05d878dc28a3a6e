//go:build !unix

package permissions

import (
	"errors"
	"io/fs"
	"os"
)

func probeFile(path string) int {
	f, err := os.Open(path)
	if err == nil {
		f.Close()
		return probeReadable
	}
	if errors.Is(err, fs.ErrPermission) {
		return probeDenied
	}
	return probeMissing
}
