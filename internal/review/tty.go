package review

import (
	"os"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal reports whether stdout is a TTY, i.e. output is shown
// directly to a user rather than piped into CI logs. The local presenter
// uses this to decide whether to colorize severity tags.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}
