package config

import (
	"fmt"
	"io"
	"os"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	os.Exit(writeExit(os.Stderr, format, args...))
}

func writeExit(w io.Writer, format string, args ...any) int {
	fmt.Fprintf(w, "sites: "+format+"\n", args...)
	return 1
}
