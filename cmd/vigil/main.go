// Command vigil runs the VIGIL risk planning server and its operator tools.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(execute(os.Stderr))
}

// execute runs the root command and reports any error on stderr. The root
// command silences cobra's own error printing.
func execute(stderr io.Writer) int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
