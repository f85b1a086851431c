package packets

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// BFI is a single bloom-filter slot: a fixed-width array of u16
// lanes. Arrays (not slices) so BFI and anything built from it stay
// comparable — used directly as Go map keys by the Bayes classifier
// and SDR.
type BFI [BloomLaneCount]uint16

// hashIntoBFI deterministically spreads data across BloomLaneCount
// lanes: each lane is the low 16 bits of xxhash of (data || laneIndex).
// Hashing MUST be stable across nodes and process restarts — this
// unseeded xxhash uses no process-local randomness, so it is.
func hashIntoBFI(data []byte) BFI {
	var bfi BFI
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	for lane := 0; lane < BloomLaneCount; lane++ {
		buf[len(data)] = byte(lane)
		h := xxhash.Sum64(buf)
		bfi[lane] = uint16(h)
	}
	return bfi
}

// Encode writes the BFI's wire representation (little-endian u16
// lanes) to dst, returning the number of bytes written.
func (b BFI) Encode(dst []byte) int {
	for i, lane := range b {
		binary.LittleEndian.PutUint16(dst[i*2:], lane)
	}
	return BFIByteLen
}

// DecodeBFI reads a BFI from its wire representation.
func DecodeBFI(src []byte) (BFI, error) {
	if len(src) < BFIByteLen {
		return BFI{}, ErrMalformedPacket
	}
	var b BFI
	for i := range b {
		b[i] = binary.LittleEndian.Uint16(src[i*2:])
	}
	return b, nil
}
