package shm

import (
	"sync/atomic"
	"unsafe"
)

// MetaHeaderSize is the 12-byte control block layout from the spec:
// readers (int32) @0, writer (uint32) @4, payload length (uint32) @8.
const MetaHeaderSize = 12

// StoreLockHeaderSize is the 8-byte layout for the store-wide lock:
// readers (int32) @0, writer (uint32) @4. It shares Lock's code with
// MetaHeader because both are just a (readers, writer) word pair.
const StoreLockHeaderSize = 8

// MetaHeader is a typed overlay on a Region's first 12 bytes, in the same
// style as the teacher's RingHeader/hdrView atomic accessors: every field is
// read and written through sync/atomic via unsafe.Pointer arithmetic over
// the region's backing array, never through a Go struct literal, so every
// goroutine holding the Region sees the same atomic state.
type MetaHeader struct {
	region *Region
}

// NewMetaHeader allocates a fresh MetaHeader-sized Region from arena and
// returns a typed overlay on it, with payload length 0.
func NewMetaHeader(arena *SharedArena) *MetaHeader {
	return WrapMetaHeader(arena.Allocate(MetaHeaderSize))
}

// WrapMetaHeader returns a typed overlay on an existing Region. The caller
// is responsible for ensuring the region is at least MetaHeaderSize bytes.
func WrapMetaHeader(r *Region) *MetaHeader {
	return &MetaHeader{region: r}
}

// Region returns the underlying opaque handle, e.g. to transport over a
// channel.Message by reference.
func (m *MetaHeader) Region() *Region { return m.region }

func (m *MetaHeader) readersAddr() *int32 { return (*int32)(unsafe.Pointer(&m.region.buf[0])) }
func (m *MetaHeader) writerAddr() *uint32 { return (*uint32)(unsafe.Pointer(&m.region.buf[4])) }
func (m *MetaHeader) lengthAddr() *uint32 { return (*uint32)(unsafe.Pointer(&m.region.buf[8])) }

// Readers returns the current reader count.
func (m *MetaHeader) Readers() int32 { return atomic.LoadInt32(m.readersAddr()) }

// Writer returns true if the write lock is held.
func (m *MetaHeader) Writer() bool { return atomic.LoadUint32(m.writerAddr()) != 0 }

// PayloadLength returns the current payload length in bytes.
func (m *MetaHeader) PayloadLength() uint32 { return atomic.LoadUint32(m.lengthAddr()) }

// SetPayloadLength sets the payload length in bytes.
func (m *MetaHeader) SetPayloadLength(n uint32) { atomic.StoreUint32(m.lengthAddr(), n) }

// StoreLockHeader is the 8-byte store-wide lock control block: just the
// readers/writer word pair, no payload length field.
type StoreLockHeader struct {
	region *Region
}

// NewStoreLockHeader allocates a fresh StoreLockHeader-sized Region.
func NewStoreLockHeader(arena *SharedArena) *StoreLockHeader {
	return WrapStoreLockHeader(arena.Allocate(StoreLockHeaderSize))
}

// WrapStoreLockHeader returns a typed overlay on an existing Region.
func WrapStoreLockHeader(r *Region) *StoreLockHeader {
	return &StoreLockHeader{region: r}
}

// Region returns the underlying opaque handle.
func (s *StoreLockHeader) Region() *Region { return s.region }

func (s *StoreLockHeader) readersAddr() *int32 { return (*int32)(unsafe.Pointer(&s.region.buf[0])) }
func (s *StoreLockHeader) writerAddr() *uint32 { return (*uint32)(unsafe.Pointer(&s.region.buf[4])) }
