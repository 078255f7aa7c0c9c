// Command windsim runs cyclone wind-field scenarios from the command line.
//
// Usage:
//
//	windsim run scenario.json --output-dir out --strict
//	windsim validate scenario.json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
