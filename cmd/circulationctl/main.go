// Command circulationctl runs one-off circulation tasks against the
// configured store: a manual sweep, a fine lookup, a catalogue seed and
// hashing the librarian password for the basic_auth config.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
