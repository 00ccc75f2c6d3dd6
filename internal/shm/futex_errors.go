package shm

import "errors"

// ErrFutexTimeout is returned by futexWaitTimeout when the wait times out
// before the watched word changes.
var ErrFutexTimeout = errors.New("shm: futex wait timed out")

// ErrFutexUnsupported is returned by the futex stub on platforms without a
// native futex syscall. Lock still works there (see lock.go), it just spins
// on a short sleep instead of blocking in the kernel.
var ErrFutexUnsupported = errors.New("shm: futex operations not supported on this platform")
