//go:build !linux || !(amd64 || arm64)

package shm

import "sync/atomic"

// futexWait is not backed by a kernel primitive on this platform; Lock falls
// back to short-sleep polling (see lock.go's waitOnWord) when the futex
// calls report ErrFutexUnsupported.
func futexWait(addr *uint32, val uint32) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	return ErrFutexUnsupported
}

func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	return ErrFutexUnsupported
}

func futexWake(addr *uint32, n int) (int, error) {
	return 0, ErrFutexUnsupported
}
