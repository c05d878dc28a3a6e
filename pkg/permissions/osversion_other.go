//go:build !darwin

package permissions

func productVersion() string {
	return ""
}
