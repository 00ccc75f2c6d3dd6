package channel

import (
	"github.com/google/uuid"

	"github.com/Shay12tg/native-keyshare/internal/shm"
)

// Action identifies which store mutation or membership event a Message
// describes.
type Action int

const (
	ActionSet Action = iota
	ActionTTLSet
	ActionDelete
	ActionClear
	ActionInitRequest
	ActionInitResponse
)

func (a Action) String() string {
	switch a {
	case ActionSet:
		return "set"
	case ActionTTLSet:
		return "ttl_set"
	case ActionDelete:
		return "delete"
	case ActionClear:
		return "clear"
	case ActionInitRequest:
		return "initialize_request"
	case ActionInitResponse:
		return "initialize_response"
	default:
		return "unknown"
	}
}

// KeyBinding is one {key, meta, data, ttl} entry of the snapshot an
// "initialize_response" carries. The "set" action carries the same fields
// directly on Message instead.
type KeyBinding struct {
	Key  string
	Meta *shm.MetaHeader
	Data *shm.Region
	TTL  int64 // absolute expiry in Unix milliseconds (wall clock, not monotonic); 0 = no TTL
}

// Message is the payload Bus.Publish broadcasts to every same-named
// subscriber. Region and header pointers are carried by reference: every
// subscriber sees the same underlying bytes, never a copy.
type Message struct {
	Action Action
	Origin uuid.UUID // the publishing handle's peer ID, for self-loop filtering

	Key     string
	Pattern string

	Meta   *shm.MetaHeader
	Data   *shm.Region
	TTL    int64
	HasTTL bool

	StoreLock *shm.StoreLockHeader
	Keys      []KeyBinding

	// InitTimestamp carries the requester's or responder's init_timestamp
	// for the membership handshake (ActionInitRequest/ActionInitResponse).
	InitTimestamp int64
}
