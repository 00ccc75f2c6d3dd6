package keyshare

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Shay12tg/native-keyshare/internal/channel"
	"github.com/Shay12tg/native-keyshare/internal/store"
	"github.com/Shay12tg/native-keyshare/internal/ttl"
)

// bus is the single process-wide broadcast bus every Store subscribes to by
// name; membership and mutation mirroring both ride on it.
var bus = channel.NewBus()

// Handle is a thin wrapper over a *store.Store: it carries no logic beyond
// registry bookkeeping, membership bootstrap, and the reaper lifecycle, and
// passes every operation straight through.
type Handle struct {
	name   string
	peerID uuid.UUID
	logger *log.Logger

	store     *store.Store
	reaper    *ttl.Reaper
	reaperCtx context.Context
	cancel    context.CancelFunc
}

// Open constructs a fresh Handle on name: a new local Store that runs the
// membership handshake against whatever peers are already open on the same
// name, plus a background TTL reaper. Every call returns an independent
// Handle — Open is a factory, not a singleton accessor — but two Handles
// opened on the same name converge on the same bindings via the membership
// protocol.
func Open(name string, opts ...Option) (*Handle, error) {
	o := resolveOptions(opts)
	peerID := uuid.New()
	initTS := time.Now().UnixNano()

	s := store.New(name, peerID, initTS, bus, o.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	reaper := ttl.New(s, o.Logger)
	reaper.Start(ctx)

	h := &Handle{
		name:      name,
		peerID:    peerID,
		logger:    o.Logger,
		store:     s,
		reaper:    reaper,
		reaperCtx: ctx,
		cancel:    cancel,
	}
	registerHandle(name, h)
	return h, nil
}

// Set stores value under key. See store.SetOption for the available options
// (WithMinBufferSize, WithImmutable, WithTTL, WithSkipLock).
func (h *Handle) Set(key string, value any, opts ...store.SetOption) bool {
	return h.store.Set(key, value, opts...)
}

// Get retrieves key's current value. skipLock, if true, bypasses the
// per-key shared-lock acquisition (the caller must already hold the key's
// exclusive lock via Lock).
func (h *Handle) Get(key string, skipLock bool) (any, bool) {
	return h.store.Get(key, skipLock)
}

// Delete removes key, or every key matching it if key is a pattern.
func (h *Handle) Delete(key string) bool {
	return h.store.Delete(key)
}

// ListKeys returns every current key, or every key matching pattern if one
// is given.
func (h *Handle) ListKeys(pattern string) []string {
	return h.store.ListKeys(pattern)
}

// Lock acquires key's exclusive lock for the caller to hold across several
// operations. Pair with Release.
func (h *Handle) Lock(key string, timeout time.Duration) bool {
	return h.store.Lock(key, timeout)
}

// Release releases a lock previously acquired with Lock.
func (h *Handle) Release(key string) bool {
	return h.store.Release(key)
}

// Clear drops every local key and broadcasts the clear to peers.
func (h *Handle) Clear() {
	h.store.Clear()
}

// Close stops this handle's reaper and channel subscription and drops its
// local state. It does not affect other handles of the same name.
func (h *Handle) Close() {
	h.cancel()
	h.reaper.Stop()
	h.store.Close()
	deregisterHandle(h.name, h)
}

// Stats returns a cheap snapshot of this handle's local view.
func (h *Handle) Stats() Stats {
	s := h.store.Stats()
	return Stats{Keys: s.Keys, TTLKeys: s.TTLKeys, ArenaBytes: s.ArenaBytes}
}
