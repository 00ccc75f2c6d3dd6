package shm

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// DefaultLockTimeout is the cumulative timeout applied when a caller doesn't
// specify one.
const DefaultLockTimeout = 1000 * time.Millisecond

// futexRetryGranularity is the maximum slice of the cumulative timeout spent
// in a single futex wait before re-checking the logical condition.
const futexRetryGranularity = 10 * time.Millisecond

// lockWords is satisfied by MetaHeader and StoreLockHeader: both are just a
// (readers int32, writer uint32) word pair, so the reader/writer lock
// algorithm is written once against the pair rather than against either
// concrete type.
type lockWords interface {
	readersAddr() *int32
	writerAddr() *uint32
}

var (
	_ lockWords = (*MetaHeader)(nil)
	_ lockWords = (*StoreLockHeader)(nil)
)

// AcquireShared increments readers; if a writer holds the lock it backs the
// increment out and waits on the writer word, retrying until it can commit
// or the cumulative timeout elapses.
func AcquireShared(w lockWords, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	deadline := time.Now().Add(timeout)
	readers, writer := w.readersAddr(), w.writerAddr()

	for {
		atomic.AddInt32(readers, 1)
		if atomic.LoadUint32(writer) == 0 {
			return true
		}
		atomic.AddInt32(readers, -1)

		wv := atomic.LoadUint32(writer)
		if wv == 0 {
			continue // writer released between our checks; retry immediately
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		waitOnWord(writer, wv, capDuration(remaining, futexRetryGranularity))
		if time.Now().After(deadline) {
			return false
		}
	}
}

// AcquireExclusive CASes the writer word 0→1, then spin-waits (bounded, via
// futex) for readers to drain to 0, releasing the writer intent and failing
// if they never drain in time.
func AcquireExclusive(w lockWords, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	deadline := time.Now().Add(timeout)
	readers, writer := w.readersAddr(), w.writerAddr()

	for {
		if atomic.CompareAndSwapUint32(writer, 0, 1) {
			break
		}
		wv := atomic.LoadUint32(writer)
		if wv == 0 {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		waitOnWord(writer, wv, capDuration(remaining, futexRetryGranularity))
		if time.Now().After(deadline) {
			return false
		}
	}

	readersWord := (*uint32)(unsafe.Pointer(readers))
	for {
		if atomic.LoadInt32(readers) == 0 {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			// Readers never drained in time: release the writer intent and fail.
			atomic.StoreUint32(writer, 0)
			futexWake(writer, 1<<30)
			return false
		}
		rv := atomic.LoadUint32(readersWord)
		waitOnWord(readersWord, rv, capDuration(remaining, futexRetryGranularity))
	}
}

// TryAcquireExclusive attempts the exclusive lock without ever blocking: it
// CASes the writer word and, if readers are present, immediately backs out.
// Used by sweeps that must never stall behind a single busy key.
func TryAcquireExclusive(w lockWords) bool {
	readers, writer := w.readersAddr(), w.writerAddr()
	if !atomic.CompareAndSwapUint32(writer, 0, 1) {
		return false
	}
	if atomic.LoadInt32(readers) != 0 {
		atomic.StoreUint32(writer, 0)
		futexWake(writer, 1)
		return false
	}
	return true
}

// ReleaseShared atomically decrements readers, waking one waiter on the
// readers word if the count reaches zero.
func ReleaseShared(w lockWords) {
	readers := w.readersAddr()
	if atomic.AddInt32(readers, -1) == 0 {
		futexWake((*uint32)(unsafe.Pointer(readers)), 1)
	}
}

// ReleaseExclusive clears the writer word and wakes every waiter blocked on
// it.
func ReleaseExclusive(w lockWords) {
	writer := w.writerAddr()
	atomic.StoreUint32(writer, 0)
	futexWake(writer, 1<<30)
}

// waitOnWord waits up to d for *addr to change from val. On platforms
// without a native futex (futex_stub.go), it degrades to a bounded sleep;
// callers always re-check the logical condition on return regardless of
// which path fired.
func waitOnWord(addr *uint32, val uint32, d time.Duration) {
	err := futexWaitTimeout(addr, val, d.Nanoseconds())
	if err == ErrFutexUnsupported {
		time.Sleep(d)
	}
}

func capDuration(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}
