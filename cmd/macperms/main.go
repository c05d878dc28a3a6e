// Command macperms queries and requests macOS privacy permissions.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/macperms/cmd/macperms/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
