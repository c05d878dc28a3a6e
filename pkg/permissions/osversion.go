package permissions

import (
	"strings"
	"sync"

	"golang.org/x/mod/semver"
)

// OSVersion is a dotted macOS product version such as "14.4.1".
// The empty version means unknown.
type OSVersion string

// AtLeast reports whether v is min or newer. An unknown or unparsable
// version on either side is treated as satisfying the minimum, so a broken
// version probe never hides a subsystem.
func (v OSVersion) AtLeast(min OSVersion) bool {
	cv, cmin := v.canonical(), min.canonical()
	if cv == "" || cmin == "" {
		return true
	}
	return semver.Compare(cv, cmin) >= 0
}

func (v OSVersion) canonical() string {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return ""
	}
	return semver.Canonical("v" + s)
}

var (
	osVersionOnce sync.Once
	osVersion     OSVersion
)

// CurrentOSVersion returns the running macOS product version, or "" when it
// cannot be determined (including on other operating systems).
func CurrentOSVersion() OSVersion {
	osVersionOnce.Do(func() {
		osVersion = OSVersion(productVersion())
	})
	return osVersion
}
