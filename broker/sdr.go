package broker

import (
	"math/rand"

	"github.com/bits-and-blooms/bitset"
	"github.com/copernica-icn/copernica/packets"
)

// SDR is a sparse distributed representation: a fixed-width bitset a
// broker uses per link to remember which fingerprints it has pending,
// forwarded, or is willing to accept as a forwarding hint.
type SDR struct {
	bits *bitset.BitSet
}

// NewSDR allocates an empty packets.SDRSize-bit representation.
func NewSDR() *SDR {
	return &SDR{bits: bitset.New(packets.SDRSize)}
}

// Insert sets every index a fingerprint contributes.
func (s *SDR) Insert(indices []uint) {
	for _, i := range indices {
		s.bits.Set(i)
	}
}

// Delete clears every index a fingerprint contributes.
func (s *SDR) Delete(indices []uint) {
	for _, i := range indices {
		s.bits.Clear(i)
	}
}

// Contains returns what percentage of indices are set, the fuzzy
// membership test the broker compares against
// packets.SDRMatchThresholdPercent.
func (s *SDR) Contains(indices []uint) uint8 {
	if len(indices) == 0 {
		return 0
	}
	var hits int
	for _, i := range indices {
		if s.bits.Test(i) {
			hits++
		}
	}
	return uint8((hits * 100) / len(indices))
}

// Decoherence returns the overall percentage of set bits across the
// whole representation, the signal the broker watches to decide when
// to PartiallyForget.
func (s *SDR) Decoherence() uint8 {
	return uint8((s.bits.Count() * 100) / packets.SDRSize)
}

// PartiallyForget clears packets.SDRSize randomly chosen indices, with
// replacement, trading perfect recall for headroom once decoherence
// climbs too high.
func (s *SDR) PartiallyForget() {
	for i := 0; i < packets.SDRSize; i++ {
		s.bits.Clear(uint(rand.Intn(packets.SDRSize)))
	}
}
