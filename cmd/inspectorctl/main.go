// Command inspectorctl is the operator-facing CLI for the inspector
// subsystem: discovering live producers on the network, recording a
// session to a capture file, and inspecting one back.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
