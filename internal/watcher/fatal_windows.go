//go:build windows

package watcher

import (
	"errors"
	"syscall"
)

const (
	errorTooManyOpenFiles syscall.Errno = 4
	errorInvalidHandle    syscall.Errno = 6
	errorNotEnoughMemory  syscall.Errno = 8
)

func isFatalError(err error) bool {
	return errors.Is(err, errorTooManyOpenFiles) ||
		errors.Is(err, errorInvalidHandle) ||
		errors.Is(err, errorNotEnoughMemory)
}
