//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package config

// IsTerminal always reports false on platforms without termios.
func IsTerminal(fd uintptr) bool {
	return false
}
