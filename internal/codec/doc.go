// Package codec implements the pure, side-effect-free pack/unpack pair the
// store uses to turn values into the bytes it copies into a DataRegion and
// back. It mirrors the round trip the original native module performed with
// JSON.stringify/JSON.parse (see _examples/original_source/shared_object.cc):
// a fast path for the handful of types that don't need a general encoder,
// falling back to a textual (JSON) encoding for everything else.
package codec
