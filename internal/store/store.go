// Package store implements the per-handle in-memory key/value map that
// backs a keyshare.Handle: the local mirror of bindings and TTLs, the
// public Set/Get/Delete/ListKeys/Lock/Release/Clear/Close operations, and
// the broadcast listener that keeps the mirror converged with every other
// handle sharing the same store name.
package store

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shay12tg/native-keyshare/internal/channel"
	"github.com/Shay12tg/native-keyshare/internal/codec"
	"github.com/Shay12tg/native-keyshare/internal/membership"
	"github.com/Shay12tg/native-keyshare/internal/shm"
)

// MaxKeyLength is the longest key Set/Get/Delete/Lock accept.
const MaxKeyLength = 512

type binding struct {
	meta *shm.MetaHeader
	data *shm.Region
}

// Stats is a cheap, lock-light snapshot of a Store's current size, used by
// Handle.Stats.
type Stats struct {
	Keys       int
	TTLKeys    int
	ArenaBytes int64
}

// Store is the local, per-handle view of a named key/value store: its own
// bindings map and TTL table, mirrored across every other handle of the
// same name via a channel.Bus, and coordinated for the set of keys via a
// StoreLockHeader shared by reference once membership converges.
type Store struct {
	name   string
	peerID uuid.UUID
	logger *log.Logger

	arena *shm.SharedArena
	bus   *channel.Bus

	mu       sync.RWMutex
	bindings map[string]*binding
	ttl      map[string]int64

	storeLock     *shm.StoreLockHeader
	initTimestamp int64
	closed        bool

	inbound     <-chan channel.Message
	unsubscribe func()

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New constructs a fresh Store bound to name, subscribes it to the bus, and
// runs the membership bootstrap before returning — so by the time New
// returns, the store has either adopted an existing peer's state or
// established itself as the oldest live handle of this name.
func New(name string, peerID uuid.UUID, initTimestamp int64, bus *channel.Bus, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	arena := shm.NewSharedArena(shm.DefaultBlockSize)
	s := &Store{
		name:          name,
		peerID:        peerID,
		logger:        logger,
		arena:         arena,
		bus:           bus,
		bindings:      make(map[string]*binding),
		ttl:           make(map[string]int64),
		storeLock:     shm.NewStoreLockHeader(arena),
		initTimestamp: initTimestamp,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	s.inbound, s.unsubscribe = bus.Subscribe(name, peerID)
	go s.listen()
	s.bootstrapMembership()
	return s
}

func validKey(key string) bool {
	return len(key) > 0 && len(key) <= MaxKeyLength
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Set reuses the existing DataRegion in place when it has room and the
// caller didn't force immutability, otherwise allocates a fresh region pair
// under the store lock and broadcasts it to every peer.
func (s *Store) Set(key string, value any, opts ...SetOption) bool {
	if s.isClosed() || !validKey(key) || value == nil {
		return false
	}
	o := resolveSetOptions(opts)

	data, err := codec.Pack(value)
	if err != nil {
		return false
	}
	required := o.MinBufferSize
	if len(data) > required {
		required = len(data)
	}
	if required < 1 {
		required = 1
	}

	s.mu.RLock()
	existing, exists := s.bindings[key]
	s.mu.RUnlock()

	var keyMeta *shm.MetaHeader
	lockedKey := false
	if exists {
		keyMeta = existing.meta
		if !o.SkipLock {
			if !shm.AcquireExclusive(keyMeta, shm.DefaultLockTimeout) {
				return false
			}
			lockedKey = true
		}
	}
	release := func() {
		if lockedKey {
			shm.ReleaseExclusive(keyMeta)
		}
	}

	var installedMeta *shm.MetaHeader
	var installedData *shm.Region
	reallocated := false

	if exists && !o.Immutable && len(existing.data.Bytes()) >= required {
		copy(existing.data.Bytes(), data)
		existing.meta.SetPayloadLength(uint32(len(data)))
		installedMeta, installedData = existing.meta, existing.data
	} else {
		newMeta := shm.NewMetaHeader(s.arena)
		newData := s.arena.Allocate(required)
		copy(newData.Bytes(), data)
		newMeta.SetPayloadLength(uint32(len(data)))

		if !shm.AcquireExclusive(s.storeLock, shm.DefaultLockTimeout) {
			release()
			return false
		}
		s.mu.Lock()
		s.bindings[key] = &binding{meta: newMeta, data: newData}
		s.mu.Unlock()
		shm.ReleaseExclusive(s.storeLock)

		installedMeta, installedData = newMeta, newData
		reallocated = true
	}

	// Every Set either installs a fresh expiry or clears whatever expiry the
	// key already had — there is no "leave TTL untouched" mode, the same way
	// a plain overwrite has no equivalent of KEEPTTL.
	var ttlValue int64
	hasTTL := o.HasTTL && o.TTLSeconds > 0
	s.mu.Lock()
	if hasTTL {
		ttlValue = nowMillis() + o.TTLSeconds*1000
		s.ttl[key] = ttlValue
	} else {
		delete(s.ttl, key)
	}
	s.mu.Unlock()

	switch {
	case reallocated:
		s.bus.Publish(s.name, channel.Message{
			Action: channel.ActionSet,
			Origin: s.peerID,
			Key:    key,
			Meta:   installedMeta,
			Data:   installedData,
			TTL:    ttlValue,
			HasTTL: hasTTL,
		})
	default:
		s.bus.Publish(s.name, channel.Message{
			Action: channel.ActionTTLSet,
			Origin: s.peerID,
			Key:    key,
			TTL:    ttlValue,
			HasTTL: hasTTL,
		})
	}

	release()
	return true
}

// Get locates the binding, takes its shared lock unless skipLock is set,
// copies the payload out, releases, and only then decodes — the copy is
// mandatory so the decoder never touches a region that might be reallocated
// out from under it.
func (s *Store) Get(key string, skipLock bool) (any, bool) {
	if s.isClosed() {
		return nil, false
	}
	s.mu.RLock()
	b, exists := s.bindings[key]
	s.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if !skipLock {
		if !shm.AcquireShared(b.meta, shm.DefaultLockTimeout) {
			return nil, false
		}
	}

	length := b.meta.PayloadLength()
	raw := b.data.Bytes()
	var payload []byte
	if length != 0 && int(length) <= len(raw) {
		payload = make([]byte, length)
		copy(payload, raw[:length])
	}
	if !skipLock {
		shm.ReleaseShared(b.meta)
	}
	if payload == nil {
		return nil, false
	}

	value, err := codec.Unpack(payload)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Delete removes key, routing to DeletePattern when key contains pattern
// metacharacters.
func (s *Store) Delete(key string) bool {
	if s.isClosed() {
		return false
	}
	if isPattern(key) {
		return s.DeletePattern(key)
	}

	s.mu.RLock()
	b, exists := s.bindings[key]
	s.mu.RUnlock()
	if !exists {
		return false
	}

	if !shm.AcquireExclusive(b.meta, shm.DefaultLockTimeout) {
		return false
	}
	if !shm.AcquireExclusive(s.storeLock, shm.DefaultLockTimeout) {
		shm.ReleaseExclusive(b.meta)
		return false
	}

	s.mu.Lock()
	delete(s.bindings, key)
	delete(s.ttl, key)
	s.mu.Unlock()

	shm.ReleaseExclusive(s.storeLock)
	shm.ReleaseExclusive(b.meta)

	s.bus.Publish(s.name, channel.Message{Action: channel.ActionDelete, Origin: s.peerID, Key: key})
	return true
}

// DeletePattern takes the store lock first, then a non-blocking try-lock
// sweep per matching key, deliberately the reverse acquisition order of
// Set's reallocation path so the two never deadlock against each other.
func (s *Store) DeletePattern(pattern string) bool {
	if s.isClosed() {
		return false
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}

	if !shm.AcquireExclusive(s.storeLock, shm.DefaultLockTimeout) {
		return false
	}
	defer shm.ReleaseExclusive(s.storeLock)

	s.mu.Lock()
	removed := false
	for key, b := range s.bindings {
		if !re.MatchString(key) {
			continue
		}
		if !shm.TryAcquireExclusive(b.meta) {
			continue
		}
		delete(s.bindings, key)
		delete(s.ttl, key)
		removed = true
		shm.ReleaseExclusive(b.meta)
	}
	s.mu.Unlock()

	if removed {
		s.bus.Publish(s.name, channel.Message{Action: channel.ActionDelete, Origin: s.peerID, Pattern: pattern})
	}
	return removed
}

// ListKeys returns a snapshot of current keys, optionally filtered through
// the same pattern grammar Delete uses.
func (s *Store) ListKeys(pattern string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pattern == "" {
		keys := make([]string, 0, len(s.bindings))
		for k := range s.bindings {
			keys = append(keys, k)
		}
		return keys
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return []string{}
	}
	keys := make([]string, 0)
	for k := range s.bindings {
		if re.MatchString(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Lock externalizes the per-key exclusive lock for a caller that wants to
// hold it across several operations (then Set with WithSkipLock).
func (s *Store) Lock(key string, timeout time.Duration) bool {
	s.mu.RLock()
	b, exists := s.bindings[key]
	s.mu.RUnlock()
	if !exists {
		return false
	}
	return shm.AcquireExclusive(b.meta, timeout)
}

// Release releases a lock previously taken with Lock.
func (s *Store) Release(key string) bool {
	s.mu.RLock()
	b, exists := s.bindings[key]
	s.mu.RUnlock()
	if !exists {
		return false
	}
	shm.ReleaseExclusive(b.meta)
	return true
}

// Clear takes a best-effort store lock, drops every local map, and
// broadcasts the clear unconditionally.
func (s *Store) Clear() {
	if s.isClosed() {
		return
	}
	acquired := shm.AcquireExclusive(s.storeLock, shm.DefaultLockTimeout)

	s.mu.Lock()
	s.bindings = make(map[string]*binding)
	s.ttl = make(map[string]int64)
	s.mu.Unlock()

	if acquired {
		shm.ReleaseExclusive(s.storeLock)
	}
	s.bus.Publish(s.name, channel.Message{Action: channel.ActionClear, Origin: s.peerID})
}

// Close stops the listener, unsubscribes, and drops the local maps. No
// broadcast — other peers are unaffected.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.stopCh)
		s.unsubscribe()
		<-s.doneCh

		s.mu.Lock()
		s.bindings = make(map[string]*binding)
		s.ttl = make(map[string]int64)
		s.mu.Unlock()
	})
}

// Stats reports a cheap snapshot of the store's current size.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Keys:       len(s.bindings),
		TTLKeys:    len(s.ttl),
		ArenaBytes: s.arena.AllocatedBytes(),
	}
}

// ExpireLocal removes key's binding and TTL entry without broadcasting,
// called by the TTL reaper: every peer independently expires the same key
// on its own clock, so broadcasting the expiry would only storm the
// channel.
func (s *Store) ExpireLocal(key string) {
	s.mu.Lock()
	delete(s.bindings, key)
	delete(s.ttl, key)
	s.mu.Unlock()
}

// TTLSnapshot returns a copy of the current key→expiry map for the reaper to
// sweep without holding the store's lock across the whole batch.
func (s *Store) TTLSnapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.ttl))
	for k, v := range s.ttl {
		out[k] = v
	}
	return out
}

func (s *Store) listen() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case msg, ok := <-s.inbound:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

func (s *Store) handleMessage(msg channel.Message) {
	switch msg.Action {
	case channel.ActionSet:
		s.mu.Lock()
		s.bindings[msg.Key] = &binding{meta: msg.Meta, data: msg.Data}
		if msg.HasTTL {
			s.ttl[msg.Key] = msg.TTL
		} else {
			delete(s.ttl, msg.Key)
		}
		s.mu.Unlock()

	case channel.ActionTTLSet:
		s.mu.Lock()
		if msg.HasTTL {
			s.ttl[msg.Key] = msg.TTL
		} else {
			delete(s.ttl, msg.Key)
		}
		s.mu.Unlock()

	case channel.ActionDelete:
		s.mu.Lock()
		if msg.Pattern != "" {
			if re, err := compilePattern(msg.Pattern); err == nil {
				for k := range s.bindings {
					if re.MatchString(k) {
						delete(s.bindings, k)
						delete(s.ttl, k)
					}
				}
			}
		} else {
			delete(s.bindings, msg.Key)
			delete(s.ttl, msg.Key)
		}
		s.mu.Unlock()

	case channel.ActionClear:
		s.mu.Lock()
		s.bindings = make(map[string]*binding)
		s.ttl = make(map[string]int64)
		s.mu.Unlock()

	case channel.ActionInitRequest:
		s.handleInitRequest(msg)

	case channel.ActionInitResponse:
		s.handleInitResponse(msg)
	}
}

func (s *Store) handleInitRequest(msg channel.Message) {
	s.mu.RLock()
	localTS := s.initTimestamp
	s.mu.RUnlock()
	if !membership.ShouldRespond(localTS, msg.InitTimestamp) {
		return
	}

	s.mu.RLock()
	keys := make([]channel.KeyBinding, 0, len(s.bindings))
	for k, b := range s.bindings {
		keys = append(keys, channel.KeyBinding{Key: k, Meta: b.meta, Data: b.data, TTL: s.ttl[k]})
	}
	storeLock := s.storeLock
	s.mu.RUnlock()

	s.bus.Publish(s.name, membership.NewInitResponse(s.peerID, localTS, storeLock, keys))
}

func (s *Store) handleInitResponse(msg channel.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !membership.ShouldApply(s.initTimestamp, msg.InitTimestamp) {
		return
	}
	snap := membership.SnapshotFromResponse(msg)
	s.logger.Printf("store %q: adopted %d key(s) from an older peer", s.name, len(snap.Keys))
	s.initTimestamp = snap.InitTimestamp
	if snap.StoreLock != nil {
		s.storeLock = snap.StoreLock
	}
	for _, kb := range snap.Keys {
		s.bindings[kb.Key] = &binding{meta: kb.Meta, data: kb.Data}
		if kb.TTL > 0 {
			s.ttl[kb.Key] = kb.TTL
		}
	}
}

func (s *Store) bootstrapMembership() {
	s.bus.Publish(s.name, membership.NewInitRequest(s.peerID, s.initTimestamp))
	time.Sleep(membership.DefaultHandshakeWindow)
}
