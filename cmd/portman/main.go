// portman resolves a vcpkg-style manifest's dependencies and features
// against a layered registry set and the currently-installed package
// database, and produces a topologically-sorted install/remove plan.
//
// Usage:
//
//	portman plan              Resolve vcpkg.json and print the install/remove plan
//	portman scan              Report installed packages
//	portman completion        Generate shell completion scripts
//	portman help              Show usage information
package main

import (
	"fmt"
	"os"

	"github.com/cppkit/portman/cmd/portman/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
