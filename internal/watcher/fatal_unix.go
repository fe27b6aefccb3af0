//go:build !windows

package watcher

import (
	"errors"
	"syscall"
)

// isFatalError reports errors after which the kernel will not deliver
// further events: inotify watch or descriptor limits.
func isFatalError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
