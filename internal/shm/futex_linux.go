//go:build linux && (amd64 || arm64)

package shm

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex operation codes, private-to-this-process variants since every
// waiter and waker lives in the same address space.
const (
	futexWaitPrivate = 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 129 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

// futexWait blocks until *addr no longer equals val, or until a futexWake on
// addr, or a spurious wake. The caller must re-check the logical condition
// after this returns: spurious and racy wakeups are both possible.
func futexWait(addr *uint32, val uint32) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitPrivate,
		uintptr(val),
		0, 0, 0,
	)
	if errno != 0 && errno != unix.EAGAIN && errno != unix.EINTR {
		return errno
	}
	return nil
}

// futexWaitTimeout is futexWait bounded by timeoutNs nanoseconds. A
// non-positive timeout waits indefinitely.
func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	if timeoutNs <= 0 {
		return futexWait(addr, val)
	}
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	ts := unix.Timespec{
		Sec:  timeoutNs / 1e9,
		Nsec: timeoutNs % 1e9,
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitPrivate,
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	case unix.ETIMEDOUT:
		return ErrFutexTimeout
	default:
		return errno
	}
}

// futexWake wakes up to n goroutines blocked in futexWait on addr. Returns
// the number actually woken.
func futexWake(addr *uint32, n int) (int, error) {
	woken, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakePrivate,
		uintptr(n),
		0, 0, 0,
	)
	if errno != 0 {
		return 0, errno
	}
	return int(woken), nil
}
