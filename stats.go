package keyshare

// Stats is a cheap, lock-light snapshot of a Handle's local state, in the
// shape of johnjansen-torua's storage.StoreStats.
type Stats struct {
	Keys       int
	TTLKeys    int
	ArenaBytes int64
}
