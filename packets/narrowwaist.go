package packets

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/copernica-icn/copernica/identity"
)

// Kind distinguishes the two narrow-waist packet shapes.
type Kind uint8

const (
	KindRequest  Kind = narrowWaistTagRequest
	KindResponse Kind = narrowWaistTagResponse
)

// NarrowWaist is the single packet schema every payload in the
// network passes through. Request and Response share this one type,
// discriminated by Kind.
//
// HBFI's RequesterPID/ResponsePID fields only ever hold the
// one-way bloom hash of a peer's PublicID (for routing, dedup and
// Bayes keys). Deriving a DH key needs the actual
// PublicID, which travels alongside the hash: on a Request, in
// RequesterPublicID; a Response's matching producer key is supplied
// out of band by the caller of Data, exactly as the caller of New
// already held it when it built the HBFI in the first place.
type NarrowWaist struct {
	Kind Kind
	HBFI HBFI
	Nonce [identity.NonceSize]byte

	// RequesterPublicID is present on a Request iff
	// HBFI.HasRequesterPID, and is omitted entirely from Response
	// packets (the producer's own AEAD key derivation already
	// consumed it when the response was built).
	RequesterPublicID *identity.PublicID

	// Response-only fields.
	Offset, Total uint64
	Payload       []byte // ciphertext (AEAD, tag stripped) or cleartext payload
	Authenticator []byte // AEAD tag (encrypted) or Ed25519 signature (cleartext)
}

// Request allocates a fresh correlation nonce and builds a Request
// narrow-waist for hbfi (.
// requesterPublicID must be supplied iff hbfi.HasRequesterPID.
func Request(hbfi HBFI, requesterPublicID *identity.PublicID) (NarrowWaist, error) {
	if hbfi.HasRequesterPID == (requesterPublicID == nil) {
		return NarrowWaist{}, ErrMalformedPacket
	}
	var nonce [identity.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return NarrowWaist{}, err
	}
	return NarrowWaist{
		Kind:              KindRequest,
		HBFI:              hbfi,
		Nonce:             nonce,
		RequesterPublicID: requesterPublicID,
	}, nil
}

// responseAAD binds (hbfi, offset, total) to the authenticator,
// together with the payload itself passed separately to Seal/Sign.
func responseAAD(hbfi HBFI, offset, total uint64) []byte {
	aad := hbfi.Encode(nil)
	var tmp [16]byte
	binary.LittleEndian.PutUint64(tmp[0:8], offset)
	binary.LittleEndian.PutUint64(tmp[8:16], total)
	return append(aad, tmp[:]...)
}

// chunkNonce derives the AEAD nonce used to seal one response chunk
// from the request/response pair's correlation nonce and the chunk's
// offset. The same correlation nonce carries every chunk of a stream,
// so the offset is folded in here to give every chunk encrypted under
// the same derived key a distinct AEAD nonce.
func chunkNonce(correlation [identity.NonceSize]byte, offset uint64) [identity.NonceSize]byte {
	n := correlation
	var off [8]byte
	binary.LittleEndian.PutUint64(off[:], offset)
	for i := range off {
		n[identity.NonceSize-len(off)+i] ^= off[i]
	}
	return n
}

// Response builds a Response narrow-waist for hbfi, authenticating
// (hbfi, offset, total, data) to the producer's key.
// When hbfi.HasRequesterPID the payload is AEAD-sealed under
// DH(producerSK, requesterPublicID); otherwise it is signed in the
// clear with producerSK. nonce is the correlation nonce copied from
// the matching request.
func Response(producerSK *identity.PrivateIdentity, requesterPublicID *identity.PublicID, hbfi HBFI, nonce [identity.NonceSize]byte, data []byte, offset, total uint64) (NarrowWaist, error) {
	nw := NarrowWaist{
		Kind:   KindResponse,
		HBFI:   hbfi,
		Nonce:  nonce,
		Offset: offset,
		Total:  total,
	}

	aad := responseAAD(hbfi, offset, total)

	if hbfi.HasRequesterPID {
		if requesterPublicID == nil {
			return NarrowWaist{}, ErrMalformedPacket
		}
		key, err := producerSK.DeriveSharedKey(requesterPublicID.DH, "copernica/response/v1")
		if err != nil {
			return NarrowWaist{}, err
		}
		aeadNonce := chunkNonce(nonce, offset)
		sealed, err := identity.SealWithNonce(key, aeadNonce[:], append(aad, nonce[:]...), data)
		if err != nil {
			return NarrowWaist{}, err
		}
		nw.Payload = sealed[:len(sealed)-identity.TagSize]
		nw.Authenticator = sealed[len(sealed)-identity.TagSize:]
		return nw, nil
	}

	sig := producerSK.Sign(append(aad, data...))
	nw.Payload = data
	nw.Authenticator = sig
	return nw, nil
}

// Transmute turns a pending Request into its Response, reusing the
// request's hbfi and correlation nonce (.
func (nw NarrowWaist) Transmute(producerSK *identity.PrivateIdentity, data []byte, offset, total uint64) (NarrowWaist, error) {
	if nw.Kind != KindRequest {
		return NarrowWaist{}, ErrMalformedPacket
	}
	return Response(producerSK, nw.RequesterPublicID, nw.HBFI, nw.Nonce, data, offset, total)
}

// Data verifies a Response's authenticator and, if encrypted,
// decrypts it, returning the plaintext payload (. producerPublicID is the real key
// whose hash the caller expects in HBFI.ResponsePID; it is supplied
// out of band exactly as the caller already held it when building the
// originating HBFI with New. requesterSK is nil for a response whose
// HBFI carries no requester_pid (cleartext).
func (nw NarrowWaist) Data(requesterSK *identity.PrivateIdentity, producerPublicID identity.PublicID) ([]byte, error) {
	if nw.Kind != KindResponse {
		return nil, ErrMalformedPacket
	}
	if hashIntoBFI(producerPublicID.Bytes()) != nw.HBFI.ResponsePID {
		return nil, identity.ErrWrongKey
	}

	aad := responseAAD(nw.HBFI, nw.Offset, nw.Total)

	if nw.HBFI.HasRequesterPID {
		if requesterSK == nil {
			return nil, identity.ErrWrongKey
		}
		key, err := requesterSK.DeriveSharedKey(producerPublicID.DH, "copernica/response/v1")
		if err != nil {
			return nil, err
		}
		aeadNonce := chunkNonce(nw.Nonce, nw.Offset)
		sealed := append(append([]byte{}, nw.Payload...), nw.Authenticator...)
		return identity.Open(key, aeadNonce[:], append(aad, nw.Nonce[:]...), sealed)
	}

	if !identity.Verify(producerPublicID, append(aad, nw.Payload...), nw.Authenticator) {
		return nil, identity.ErrAuthenticationFailed
	}
	return nw.Payload, nil
}

// EncryptFor post-hoc seals an already-built cleartext Response for a
// specific requester. Used by crypto tests; the broker never calls
// this path.
func (nw NarrowWaist) EncryptFor(producerSK *identity.PrivateIdentity, requesterPublicID identity.PublicID) (NarrowWaist, error) {
	if nw.Kind != KindResponse || nw.HBFI.HasRequesterPID {
		return NarrowWaist{}, ErrMalformedPacket
	}
	hbfi := nw.HBFI
	hbfi.HasRequesterPID = true
	hbfi.RequesterPID = hashIntoBFI(requesterPublicID.Bytes())
	return Response(producerSK, &requesterPublicID, hbfi, nw.Nonce, nw.Payload, nw.Offset, nw.Total)
}
