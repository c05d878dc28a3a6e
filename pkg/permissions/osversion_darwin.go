package permissions

import "golang.org/x/sys/unix"

func productVersion() string {
	v, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return ""
	}
	return v
}
