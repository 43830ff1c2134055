package fileutil

import (
	"fmt"
	"os"
	"syscall"
)

// Lock is an exclusive advisory lock on a file. Holding it marks the caller
// as the single writer of a namespace across processes.
type Lock struct {
	file *os.File
}

// Acquire blocks until the exclusive lock on path is held.
func Acquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return &Lock{file: file}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("unlocking %s: %w", l.file.Name(), err)
	}
	return l.file.Close()
}
