// Package ttl implements a periodic, batched reaper: once per second, walk
// a bounded slice of a store's TTL entries and evict the expired ones
// locally. No
// broadcast — every peer independently reaps the same key on its own clock,
// so broadcasting every local expiry would only storm the channel.
package ttl
