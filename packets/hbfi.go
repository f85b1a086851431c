package packets

import (
	"encoding/binary"

	"github.com/copernica-icn/copernica/identity"
)

// HBFI is the Hierarchical Bloom-Filter Index: the name of a named
// datum in this ICN. Six bloom slots — app, module,
// function, argument, requester_pid, response_pid — plus a 64-bit
// chunk offset.
type HBFI struct {
	App, Module, Function, Argument BFI

	HasRequesterPID bool
	RequesterPID    BFI
	ResponsePID     BFI

	Ost uint64
}

// Fingerprint is the HBFI's {app, module, function, argument} tuple
// with keys and offset stripped off: the fingerprint without keys or
// offset. It is used both as the Bayes classifier's learning key and
// as the SDR's dedup identity, which is why New and Offset never let
// it vary with either the requester/response pid or the chunk
// counter.
type Fingerprint [4]BFI

// New builds an HBFI from its name components, hashing each into a
// bloom slot. responsePID is mandatory. requesterPID is nil for packets that must be able to
// travel without binding to a specific requester (e.g. broadcast
// requests, or a response already stripped via Cleartext).
func New(requesterPID *identity.PublicID, responsePID identity.PublicID, app, module, function, argument string) HBFI {
	h := HBFI{
		App:         hashIntoBFI([]byte(app)),
		Module:      hashIntoBFI([]byte(module)),
		Function:    hashIntoBFI([]byte(function)),
		Argument:    hashIntoBFI([]byte(argument)),
		ResponsePID: hashIntoBFI(responsePID.Bytes()),
	}
	if requesterPID != nil {
		h.HasRequesterPID = true
		h.RequesterPID = hashIntoBFI(requesterPID.Bytes())
	}
	return h
}

// Offset returns a copy of h with Ost set to n. Bloom slots are
// untouched, so every chunk of one stream collapses to a single
// classifier/SDR key (.1: "offset(n) MUST not perturb bloom
// slots").
func (h HBFI) Offset(n uint64) HBFI {
	h.Ost = n
	return h
}

// Cleartext returns a copy of h with the requester_pid slot cleared,
// for responses that must travel in the clear.
func (h HBFI) Cleartext() HBFI {
	h.HasRequesterPID = false
	h.RequesterPID = BFI{}
	return h
}

// Fingerprint returns the classifier/SDR key for h.
func (h HBFI) Fingerprint() Fingerprint {
	return Fingerprint{h.App, h.Module, h.Function, h.Argument}
}

// encodedLen returns the wire size of h.
func (h HBFI) encodedLen() int {
	n := BFIByteLen*4 + 1 /* requester-present flag */ + BFIByteLen /* response pid */ + 8 /* ost */
	if h.HasRequesterPID {
		n += BFIByteLen
	}
	return n
}

// Encode appends h's wire representation to dst and returns the
// result
// hbfi := app ‖ m0d ‖ fun ‖ arg ‖ req_pid? ‖ res_pid ‖ ost:u64
func (h HBFI) Encode(dst []byte) []byte {
	buf := make([]byte, BFIByteLen)
	h.App.Encode(buf)
	dst = append(dst, buf...)
	h.Module.Encode(buf)
	dst = append(dst, buf...)
	h.Function.Encode(buf)
	dst = append(dst, buf...)
	h.Argument.Encode(buf)
	dst = append(dst, buf...)

	if h.HasRequesterPID {
		dst = append(dst, 1)
		h.RequesterPID.Encode(buf)
		dst = append(dst, buf...)
	} else {
		dst = append(dst, 0)
	}

	h.ResponsePID.Encode(buf)
	dst = append(dst, buf...)

	var ostBuf [8]byte
	binary.LittleEndian.PutUint64(ostBuf[:], h.Ost)
	dst = append(dst, ostBuf[:]...)
	return dst
}

// DecodeHBFI reads an HBFI from its wire representation, returning
// the unconsumed remainder of src.
func DecodeHBFI(src []byte) (HBFI, []byte, error) {
	var h HBFI
	var err error

	if h.App, err = DecodeBFI(src); err != nil {
		return HBFI{}, nil, err
	}
	src = src[BFIByteLen:]
	if h.Module, err = DecodeBFI(src); err != nil {
		return HBFI{}, nil, err
	}
	src = src[BFIByteLen:]
	if h.Function, err = DecodeBFI(src); err != nil {
		return HBFI{}, nil, err
	}
	src = src[BFIByteLen:]
	if h.Argument, err = DecodeBFI(src); err != nil {
		return HBFI{}, nil, err
	}
	src = src[BFIByteLen:]

	if len(src) < 1 {
		return HBFI{}, nil, ErrMalformedPacket
	}
	present := src[0]
	src = src[1:]
	if present == 1 {
		h.HasRequesterPID = true
		if h.RequesterPID, err = DecodeBFI(src); err != nil {
			return HBFI{}, nil, err
		}
		src = src[BFIByteLen:]
	}

	if h.ResponsePID, err = DecodeBFI(src); err != nil {
		return HBFI{}, nil, err
	}
	src = src[BFIByteLen:]

	if len(src) < 8 {
		return HBFI{}, nil, ErrMalformedPacket
	}
	h.Ost = binary.LittleEndian.Uint64(src[:8])
	src = src[8:]

	return h, src, nil
}
