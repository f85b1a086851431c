package links

import (
	"encoding/binary"

	"github.com/copernica-icn/copernica/packets"
)

// lengthPrefixSize is the width of the plaintext-length header
// EncodeFrame writes ahead of the Reed-Solomon codewords, letting
// DecodeFrame discard the zero padding of a partial final chunk.
const lengthPrefixSize = 4

// MaxFramePayload is the largest plaintext EncodeFrame can fit into
// one packets.LinkMTU-bounded frame, computed from the actual FEC
// expansion ratio rather than a hardcoded threshold: each
// FECShardDataSize-byte chunk costs FECShardTotalSize encoded bytes.
const MaxFramePayload = ((packets.LinkMTU - lengthPrefixSize) / packets.FECShardTotalSize) * packets.FECShardDataSize

// EncodeFrame Reed-Solomon encodes payload into a link-MTU-bounded
// frame: one RS(FECShardTotalSize,FECShardDataSize) codeword per
// packets.FECShardDataSize-byte chunk, behind a 4-byte little-endian
// length prefix. Returns ErrPayloadTooLarge if payload cannot fit
// within one frame at the compiled-in FEC parameters.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxFramePayload {
		return nil, ErrPayloadTooLarge
	}

	chunkCount := (len(payload) + packets.FECShardDataSize - 1) / packets.FECShardDataSize
	if chunkCount == 0 {
		chunkCount = 1
	}

	frame := make([]byte, lengthPrefixSize, lengthPrefixSize+chunkCount*packets.FECShardTotalSize)
	binary.LittleEndian.PutUint32(frame[:lengthPrefixSize], uint32(len(payload)))

	for c := 0; c < chunkCount; c++ {
		start := c * packets.FECShardDataSize
		end := start + packets.FECShardDataSize
		var chunk [packets.FECShardDataSize]byte
		if end > len(payload) {
			end = len(payload)
		}
		copy(chunk[:], payload[start:end])

		frame = append(frame, rsEncode(chunk[:], packets.FECParityShards)...)
	}
	return frame, nil
}

// DecodeFrame reverses EncodeFrame. It blindly locates and corrects up
// to packets.FECParityShards/2 byte errors per codeword — no erasure
// positions are supplied or required, since a real bearer has no way
// to tell a receiver which bytes it mangled in flight. Returns
// ErrPacketCorrupt when a codeword cannot be corrected. A codeword
// carrying more errors than that bound is not always detected: it can
// decode to a different valid codeword, and the wrong bytes are then
// returned with a nil error.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < lengthPrefixSize {
		return nil, ErrPacketCorrupt
	}
	payloadLen := int(binary.LittleEndian.Uint32(frame[:lengthPrefixSize]))
	body := frame[lengthPrefixSize:]
	if len(body)%packets.FECShardTotalSize != 0 {
		return nil, ErrPacketCorrupt
	}
	chunkCount := len(body) / packets.FECShardTotalSize

	out := make([]byte, 0, chunkCount*packets.FECShardDataSize)
	for c := 0; c < chunkCount; c++ {
		codeword := body[c*packets.FECShardTotalSize : (c+1)*packets.FECShardTotalSize]
		data, err := rsDecode(codeword, packets.FECParityShards)
		if err != nil {
			return nil, ErrPacketCorrupt
		}
		out = append(out, data...)
	}

	if payloadLen > len(out) {
		return nil, ErrPacketCorrupt
	}
	return out[:payloadLen], nil
}
