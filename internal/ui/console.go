// Package ui holds the console styling shared by the one-shot commands and the
// interactive list.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects OK/Fail/Println; nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func OK(msg string) {
	t := Current()
	fmt.Fprintln(stdout, t.Success.Render(t.SymOK+" "+msg))
}

func Fail(msg string) {
	t := Current()
	fmt.Fprintln(stderr, t.Error.Render(t.SymFail+" "+msg))
}

// Hint prints a muted line to stderr.
func Hint(msg string) {
	fmt.Fprintln(stderr, Current().Muted.Render(msg))
}

func Println(s string) { fmt.Fprintln(stdout, s) }

// Panel frames lines with the current theme's border.
func Panel(lines []string) string {
	t := Current()
	return t.Frame.
		Border(t.Border).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// Truncate shortens s to n runes, ending with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
