package packets

import (
	"encoding/binary"

	"github.com/copernica-icn/copernica/identity"
)

// Encode appends nw's wire representation to dst
//
//	narrow_waist := tag:u8 (0=Req|1=Res) ‖ hbfi ‖ nonce ‖ (offset,total,len,ct,mac)?
func (nw NarrowWaist) Encode(dst []byte) []byte {
	dst = append(dst, byte(nw.Kind))
	dst = nw.HBFI.Encode(dst)
	dst = append(dst, nw.Nonce[:]...)

	switch nw.Kind {
	case KindRequest:
		if nw.HBFI.HasRequesterPID {
			dst = append(dst, nw.RequesterPublicID.Bytes()...)
		}
	case KindResponse:
		var tmp [20]byte
		binary.LittleEndian.PutUint64(tmp[0:8], nw.Offset)
		binary.LittleEndian.PutUint64(tmp[8:16], nw.Total)
		binary.LittleEndian.PutUint32(tmp[16:20], uint32(len(nw.Payload)))
		dst = append(dst, tmp[:]...)
		dst = append(dst, nw.Payload...)
		dst = append(dst, nw.Authenticator...)
	}
	return dst
}

// Decode reads a NarrowWaist from its wire representation, returning
// the unconsumed remainder of src.
func Decode(src []byte) (NarrowWaist, []byte, error) {
	if len(src) < 1 {
		return NarrowWaist{}, nil, ErrMalformedPacket
	}
	kind := Kind(src[0])
	src = src[1:]

	hbfi, rest, err := DecodeHBFI(src)
	if err != nil {
		return NarrowWaist{}, nil, err
	}
	src = rest

	if len(src) < identity.NonceSize {
		return NarrowWaist{}, nil, ErrMalformedPacket
	}
	nw := NarrowWaist{Kind: kind, HBFI: hbfi}
	copy(nw.Nonce[:], src[:identity.NonceSize])
	src = src[identity.NonceSize:]

	switch kind {
	case KindRequest:
		if hbfi.HasRequesterPID {
			if len(src) < identity.PublicIDSize {
				return NarrowWaist{}, nil, ErrMalformedPacket
			}
			pub, err := decodePublicID(src)
			if err != nil {
				return NarrowWaist{}, nil, err
			}
			nw.RequesterPublicID = &pub
			src = src[identity.PublicIDSize:]
		}
	case KindResponse:
		if len(src) < 20 {
			return NarrowWaist{}, nil, ErrMalformedPacket
		}
		nw.Offset = binary.LittleEndian.Uint64(src[0:8])
		nw.Total = binary.LittleEndian.Uint64(src[8:16])
		payloadLen := binary.LittleEndian.Uint32(src[16:20])
		src = src[20:]

		if uint64(len(src)) < uint64(payloadLen) {
			return NarrowWaist{}, nil, ErrMalformedPacket
		}
		nw.Payload = append([]byte{}, src[:payloadLen]...)
		src = src[payloadLen:]

		authLen := identity.TagSize
		if !hbfi.HasRequesterPID {
			authLen = 64 // Ed25519 signature
		}
		if len(src) < authLen {
			return NarrowWaist{}, nil, ErrMalformedPacket
		}
		nw.Authenticator = append([]byte{}, src[:authLen]...)
		src = src[authLen:]
	default:
		return NarrowWaist{}, nil, ErrMalformedPacket
	}

	return nw, src, nil
}

func decodePublicID(src []byte) (identity.PublicID, error) {
	if len(src) < identity.PublicIDSize {
		return identity.PublicID{}, ErrMalformedPacket
	}
	var pub identity.PublicID
	copy(pub.DH[:], src[:identity.DHKeySize])
	pub.Signing = append([]byte{}, src[identity.DHKeySize:identity.PublicIDSize]...)
	return pub, nil
}
