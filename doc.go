// Package keyshare is an in-process, cross-goroutine key/value cache: many
// goroutines independently open a handle on the same store name and see a
// single converged set of keys, each backed by a pair of byte regions
// shared by pointer identity rather than copied between handles.
//
// A handle is obtained with Open and provides Set, Get, Delete, ListKeys,
// Lock, Release, Clear, and Close — the only operations a caller needs; the
// membership handshake that lets a newly opened handle adopt an existing
// peer's state, the futex-style per-key locking, and the TTL reaper all run
// underneath without the caller's involvement.
package keyshare
