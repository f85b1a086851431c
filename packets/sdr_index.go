package packets

import "github.com/cespare/xxhash/v2"

// SDRIndices returns the set of bit indices a fingerprint contributes
// to a 2048-bit sparse distributed representation. It reuses the
// same deterministic hash used to build bloom lanes (see bfi.go) so
// the broker's SDR and Bayes classifier key off the same identity
// without a second hashing scheme.
func (fp Fingerprint) SDRIndices() []uint {
	buf := make([]byte, 0, BFIByteLen*4)
	lane := make([]byte, BFIByteLen)
	for _, b := range fp {
		b.Encode(lane)
		buf = append(buf, lane...)
	}

	indices := make([]uint, SDRIndicesPerFingerprint)
	salted := make([]byte, len(buf)+1)
	copy(salted, buf)
	for i := 0; i < SDRIndicesPerFingerprint; i++ {
		salted[len(buf)] = byte(i)
		h := xxhash.Sum64(salted)
		indices[i] = uint(h % SDRSize)
	}
	return indices
}
