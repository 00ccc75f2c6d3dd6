package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	jsonx "github.com/go-json-experiment/json"
)

// ErrAbsentValue is returned by Pack when asked to encode the store's
// "undefined" sentinel. Store.Set turns this into its InvalidValue failure
// before Pack is ever called; Pack still guards against it directly since it
// must stay pure and safe to call standalone.
var ErrAbsentValue = errors.New("codec: value is absent")

// ErrDecodeFailure wraps any error the fallback decoder returns, so callers
// can match it with errors.Is without caring whether the failure came from
// the fast path or the JSON fallback.
var ErrDecodeFailure = errors.New("codec: decode failure")

// tag identifies which of the fixed binary encodings (or the JSON fallback)
// produced a packed payload, written as the first byte.
type tag byte

const (
	tagBool   tag = 1
	tagInt64  tag = 2
	tagUint64 tag = 3
	tagFloat  tag = 4
	tagString tag = 5
	tagBytes  tag = 6
	tagJSON   tag = 7
)

// Pack serializes v into bytes. Fixed-shape scalars (bool, every integer and
// float kind, string, []byte) take a small binary fast path adapted from the
// teacher's frame.go encode/decode idiom: a tag byte followed by one byte
// for bool, a fixed 8-byte little-endian word for numbers, or the raw bytes
// for string and []byte (no length prefix; the payload ends where the
// slice ends); everything else
// (maps, slices, structs, nil pointers-to-struct, etc.) falls back to a
// textual JSON encoding so arbitrary composite values still round-trip.
// Pack never mutates v and has no side effects.
func Pack(v any) ([]byte, error) {
	if v == nil {
		return nil, ErrAbsentValue
	}

	switch x := v.(type) {
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return []byte{byte(tagBool), b}, nil
	case int:
		return packInt64(int64(x)), nil
	case int8:
		return packInt64(int64(x)), nil
	case int16:
		return packInt64(int64(x)), nil
	case int32:
		return packInt64(int64(x)), nil
	case int64:
		return packInt64(x), nil
	case uint:
		return packUint64(uint64(x)), nil
	case uint8:
		return packUint64(uint64(x)), nil
	case uint16:
		return packUint64(uint64(x)), nil
	case uint32:
		return packUint64(uint64(x)), nil
	case uint64:
		return packUint64(x), nil
	case float32:
		return packFloat(float64(x)), nil
	case float64:
		return packFloat(x), nil
	case string:
		out := make([]byte, 1+len(x))
		out[0] = byte(tagString)
		copy(out[1:], x)
		return out, nil
	case []byte:
		out := make([]byte, 1+len(x))
		out[0] = byte(tagBytes)
		copy(out[1:], x)
		return out, nil
	default:
		encoded, err := jsonx.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
		}
		out := make([]byte, 1+len(encoded))
		out[0] = byte(tagJSON)
		copy(out[1:], encoded)
		return out, nil
	}
}

// Unpack is Pack's inverse: it decodes bytes previously produced by Pack
// back into an equivalent Go value. Unpack never touches shared memory
// itself; the store hands it a private copy of the payload bytes, since a
// region can be reallocated out from under an in-flight decode otherwise.
func Unpack(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecodeFailure)
	}
	t, rest := tag(b[0]), b[1:]
	switch t {
	case tagBool:
		if len(rest) != 1 {
			return nil, fmt.Errorf("%w: bad bool payload", ErrDecodeFailure)
		}
		return rest[0] != 0, nil
	case tagInt64:
		if len(rest) != 8 {
			return nil, fmt.Errorf("%w: bad int64 payload", ErrDecodeFailure)
		}
		return int64(binary.LittleEndian.Uint64(rest)), nil
	case tagUint64:
		if len(rest) != 8 {
			return nil, fmt.Errorf("%w: bad uint64 payload", ErrDecodeFailure)
		}
		return binary.LittleEndian.Uint64(rest), nil
	case tagFloat:
		if len(rest) != 8 {
			return nil, fmt.Errorf("%w: bad float payload", ErrDecodeFailure)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(rest)), nil
	case tagString:
		return string(rest), nil
	case tagBytes:
		out := make([]byte, len(rest))
		copy(out, rest)
		return out, nil
	case tagJSON:
		var v any
		if err := jsonx.Unmarshal(rest, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrDecodeFailure, t)
	}
}

func packInt64(v int64) []byte {
	out := make([]byte, 9)
	out[0] = byte(tagInt64)
	binary.LittleEndian.PutUint64(out[1:], uint64(v))
	return out
}

func packUint64(v uint64) []byte {
	out := make([]byte, 9)
	out[0] = byte(tagUint64)
	binary.LittleEndian.PutUint64(out[1:], v)
	return out
}

func packFloat(v float64) []byte {
	out := make([]byte, 9)
	out[0] = byte(tagFloat)
	binary.LittleEndian.PutUint64(out[1:], math.Float64bits(v))
	return out
}
