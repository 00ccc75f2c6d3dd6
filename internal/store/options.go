package store

// SetOptions controls how Store.Set serializes, allocates, and publishes a
// value.
type SetOptions struct {
	// MinBufferSize hints the DataRegion's initial capacity; the region
	// allocated is at least max(MinBufferSize, len(packed value)).
	MinBufferSize int
	// Immutable forces reallocation on every Set, even when the existing
	// DataRegion has room for the new payload in place.
	Immutable bool
	// TTLSeconds and HasTTL together request a new expiry: WithTTL sets
	// HasTTL and a positive TTLSeconds. A Set call with no WithTTL behaves
	// like a plain write with no KEEPTTL equivalent — it drops any expiry
	// the key already had, the same as every other Set of the value.
	TTLSeconds int64
	HasTTL     bool
	// SkipLock tells Set the caller already holds the key's exclusive lock
	// (via Store.Lock), so Set must not acquire it again.
	SkipLock bool
}

// SetOption mutates a SetOptions under construction.
type SetOption func(*SetOptions)

// WithMinBufferSize hints the initial DataRegion capacity for a new key.
func WithMinBufferSize(n int) SetOption {
	return func(o *SetOptions) { o.MinBufferSize = n }
}

// WithImmutable forces Set to always allocate a fresh region pair instead of
// writing into an existing one in place.
func WithImmutable() SetOption {
	return func(o *SetOptions) { o.Immutable = true }
}

// WithTTL sets the key to expire ttlSeconds after this Set.
func WithTTL(ttlSeconds int64) SetOption {
	return func(o *SetOptions) { o.TTLSeconds = ttlSeconds; o.HasTTL = true }
}

// WithSkipLock tells Set the caller already holds the key's exclusive lock.
func WithSkipLock() SetOption {
	return func(o *SetOptions) { o.SkipLock = true }
}

func resolveSetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
