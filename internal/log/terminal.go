package log

import "github.com/mattn/go-isatty"

// isTerminal reports whether fd is an interactive terminal. The teacher
// hand-rolls this with a raw ioctl syscall per-GOOS (terminal_linux.go /
// terminal_windows.go); mattn/go-isatty already covers every platform the
// pack targets, so SPEC_FULL.md's AMBIENT STACK wires that instead of
// duplicating the teacher's two-file GOOS split.
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
