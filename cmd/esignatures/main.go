// Command esignatures runs the callback relay and submits contract
// requests to the e-signature provider.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
