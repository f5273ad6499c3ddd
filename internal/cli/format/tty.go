package format

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether f is a colour-capable terminal. NO_COLOR and a dumb
// or empty TERM disable colour.
func IsTTY(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "dumb" || termEnv == "" {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
