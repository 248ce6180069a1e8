package crosside

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// logf prints a progress line with the arrow prefix.
func logf(format string, a ...any) {
	colArrow.Print("-> ")
	colInfo.Printf(format+"\n", a...)
}

// warnf prints a warning line; warnings never alter control flow.
func warnf(format string, a ...any) {
	colArrow.Print("-> ")
	colWarn.Printf(format+"\n", a...)
}

// errorf prints an error line to stderr.
func errorf(format string, a ...any) {
	colError.Printf(format+"\n", a...)
}

// debugf prints debug messages when Debug is true
func debugf(format string, args ...any) {
	if Debug {
		fmt.Printf(format, args...)
	}
}

// stdoutIsTerminal reports whether stdout is an interactive terminal.
// Progress bars and prompts are suppressed when it is not.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// stdinIsTerminal reports whether stdin is interactive.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// appendUnique appends value to list unless it is empty or already present.
func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, have := range list {
		if have == value {
			return list
		}
	}
	return append(list, value)
}

// appendAll appends all non-empty values in order, duplicates allowed.
func appendAll(dst []string, src []string) []string {
	for _, v := range src {
		if v != "" {
			dst = append(dst, v)
		}
	}
	return dst
}

// joinComma renders a list for log lines.
func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
