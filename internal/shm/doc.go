// Package shm provides the in-process shared-memory coordination core for
// native-keyshare: a fixed-size region allocator, a 12-byte per-key control
// block (MetaHeader), and a reader/writer lock built on atomic CAS and
// futex-style wait/notify.
//
// "Shared memory" here means a []byte backing array allocated once and
// referenced by pointer from every goroutine that needs it; Go's garbage
// collected heap already gives every goroutine an identical view of the same
// bytes, so there is no mmap or OS-level IPC involved. The arena and the
// offset-based region handles exist anyway so that callers interact with an
// opaque handle and its atomic accessors rather than a bare slice they could
// mutate outside the lock discipline.
package shm
