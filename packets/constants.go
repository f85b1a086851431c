// Package packets implements Copernica's narrow-waist wire model: the
// Hierarchical Bloom-Filter Index (C2), the request/response packet
// (C3), and the link packet that carries one over a bearer (part of
// C4), using the little-endian, length-prefixed framing style shared
// by every Write/Read pair in this codebase.
package packets

// BloomLaneCount is the number of u16 lanes in a single BFI slot.
// Compile-time deployment constant — every node on a network MUST
// agree on it.
const BloomLaneCount = 8

// BFIByteLen is the wire size of one BFI slot.
const BFIByteLen = BloomLaneCount * 2

// SDRSize is the width, in bits, of a sparse distributed
// representation.
const SDRSize = 2048

// SDRIndicesPerFingerprint is the number of bit indices a single HBFI
// fingerprint contributes to an SDR.
const SDRIndicesPerFingerprint = 32

// SDRMatchThresholdPercent is the fuzzy-match gate used by the broker
// to decide a pending/forwarded request SDR "contains" a fingerprint.
const SDRMatchThresholdPercent = 90

// SDRForgetThresholdPercent is the decoherence level at which the
// broker triggers SDR.PartiallyForget.
const SDRForgetThresholdPercent = 40

// MinProb substitutes for a missing per-link attribute probability in
// Bayes.Classify.
const MinProb = 1e-9

// MinLogProb substitutes for a missing per-link attribute
// log-probability in Bayes.LogClassify.
const MinLogProb = -100.0

// LinkMTU is the maximum encoded link-packet length after FEC
// expansion, the classic UDP/IPv4 safe payload size (1500 - 20 - 8).
const LinkMTU = 1472

// FECShardDataSize is the number of plaintext bytes ("k") folded into
// one Reed-Solomon codeword.
const FECShardDataSize = 249

// FECParityShards is the number of Reed-Solomon parity bytes per
// codeword ("n - k" = 6), correcting up to 3 erasures/errors.
const FECParityShards = 6

// FECShardTotalSize is one full Reed-Solomon codeword ("n" = 255).
const FECShardTotalSize = FECShardDataSize + FECParityShards

// reply-to wire tags.
const (
	replyToTagUdpIP uint8 = 0
	replyToTagRf    uint8 = 1
	replyToTagMpsc  uint8 = 2
)

// narrow-waist wire tags.
const (
	narrowWaistTagRequest  uint8 = 0
	narrowWaistTagResponse uint8 = 1
)

// link-packet outer envelope tags: whether the serialized link packet
// that follows is AEAD-sealed or cleartext.
const (
	linkEnvelopeTagCleartext uint8 = 0
	linkEnvelopeTagSealed    uint8 = 1
)
