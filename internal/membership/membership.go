package membership

import (
	"time"

	"github.com/google/uuid"

	"github.com/Shay12tg/native-keyshare/internal/channel"
	"github.com/Shay12tg/native-keyshare/internal/shm"
)

// DefaultHandshakeWindow bounds how long a newly constructed handle waits
// for an initialize_response before construction returns on its local
// (possibly empty) state. A response that arrives after the window is still
// applied by the handle's listener.
const DefaultHandshakeWindow = 75 * time.Millisecond

// ShouldRespond reports whether a handle whose own creation instant is
// localInitTimestamp must answer an initialize_request carrying
// requesterTimestamp. Only strictly older handles answer, per the
// "youngest donor wins" rule: ties do not respond, since a requester never
// needs to adopt its own age.
func ShouldRespond(localInitTimestamp, requesterTimestamp int64) bool {
	return localInitTimestamp < requesterTimestamp
}

// ShouldApply reports whether a handle currently recording
// localInitTimestamp must adopt an initialize_response carrying
// responseTimestamp. Adoption only ever moves the recorded timestamp
// strictly downward, which is what makes applying a response idempotent
// and safe to race: once a handle has adopted timestamp T, any later
// response also carrying T (or anything ≥ T) is a no-op.
func ShouldApply(localInitTimestamp, responseTimestamp int64) bool {
	return responseTimestamp < localInitTimestamp
}

// NewInitRequest builds the initialize_request a handle broadcasts on
// construction.
func NewInitRequest(origin uuid.UUID, initTimestamp int64) channel.Message {
	return channel.Message{
		Action:        channel.ActionInitRequest,
		Origin:        origin,
		InitTimestamp: initTimestamp,
	}
}

// NewInitResponse builds the initialize_response an older handle sends back
// to a newcomer, carrying its store-lock identity and a snapshot of its
// current bindings so the newcomer can adopt both in one shot.
func NewInitResponse(origin uuid.UUID, initTimestamp int64, storeLock *shm.StoreLockHeader, keys []channel.KeyBinding) channel.Message {
	return channel.Message{
		Action:        channel.ActionInitResponse,
		Origin:        origin,
		InitTimestamp: initTimestamp,
		StoreLock:     storeLock,
		Keys:          keys,
	}
}

// Snapshot is the portion of an initialize_response a receiver adopts:
// the donor's store-lock identity and its current key bindings (each
// carrying its own TTL, if any).
type Snapshot struct {
	InitTimestamp int64
	StoreLock     *shm.StoreLockHeader
	Keys          []channel.KeyBinding
}

// SnapshotFromResponse extracts a Snapshot from an initialize_response
// Message. It panics if msg is not an initialize_response; callers are
// expected to branch on msg.Action first.
func SnapshotFromResponse(msg channel.Message) Snapshot {
	if msg.Action != channel.ActionInitResponse {
		panic("membership: SnapshotFromResponse called on a non-response message")
	}
	return Snapshot{
		InitTimestamp: msg.InitTimestamp,
		StoreLock:     msg.StoreLock,
		Keys:          msg.Keys,
	}
}
