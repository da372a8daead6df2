// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// exit is replaced in tests.
var exit = os.Exit

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors returned by run().
func Fatal(err error) {
	fatal(os.Stderr, err)
}

func fatal(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	exit(1)
}
