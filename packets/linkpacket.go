package packets

import "github.com/copernica-icn/copernica/identity"

// LinkPacket is what actually crosses a bearer: a reply_to plus one
// narrow-waist packet, optionally sealed under the two link
// identities' shared key. The link-layer AEAD is independent of any
// narrow-waist-level encryption:
// a cleartext Response can still travel inside a sealed link packet,
// and an encrypted Response can travel inside a cleartext one (e.g.
// over a link that only has one paired peer and trusts its transport).
type LinkPacket struct {
	ReplyTo     ReplyTo
	NarrowWaist NarrowWaist
}

// serialize produces the plaintext link-packet encoding (reply_to ‖
// narrow_waist), the quantity that either travels as-is or becomes the
// AEAD plaintext.
func (lp LinkPacket) serialize() ([]byte, error) {
	dst, err := lp.ReplyTo.Encode(nil)
	if err != nil {
		return nil, err
	}
	return lp.NarrowWaist.Encode(dst), nil
}

// EncodeCleartext serializes lp with no outer AEAD, for links with no
// paired remote identity yet.
func (lp LinkPacket) EncodeCleartext() ([]byte, error) {
	body, err := lp.serialize()
	if err != nil {
		return nil, err
	}
	return append([]byte{linkEnvelopeTagCleartext}, body...), nil
}

// EncodeSealed serializes lp and seals it under the shared key
// derived from (local, remote) link identities.
func (lp LinkPacket) EncodeSealed(local *identity.PrivateIdentity, remote identity.PublicID) ([]byte, error) {
	body, err := lp.serialize()
	if err != nil {
		return nil, err
	}
	key, err := local.DeriveSharedKey(remote.DH, "copernica/link/v1")
	if err != nil {
		return nil, err
	}
	nonce, sealed, err := identity.Seal(key, nil, body)
	if err != nil {
		return nil, err
	}
	dst := append([]byte{linkEnvelopeTagSealed}, nonce...)
	return append(dst, sealed...), nil
}

// DecodeLinkPacket reads a link packet off the wire. local/remote are
// required only when the envelope is sealed; pass nil local for a
// link that only ever receives cleartext envelopes.
func DecodeLinkPacket(src []byte, local *identity.PrivateIdentity, remote *identity.PublicID) (LinkPacket, error) {
	if len(src) < 1 {
		return LinkPacket{}, ErrMalformedPacket
	}
	tag := src[0]
	src = src[1:]

	var body []byte
	switch tag {
	case linkEnvelopeTagCleartext:
		body = src
	case linkEnvelopeTagSealed:
		if local == nil || remote == nil {
			return LinkPacket{}, ErrWrongKey
		}
		if len(src) < identity.NonceSize {
			return LinkPacket{}, ErrMalformedPacket
		}
		nonce := src[:identity.NonceSize]
		ciphertext := src[identity.NonceSize:]
		key, err := local.DeriveSharedKey(remote.DH, "copernica/link/v1")
		if err != nil {
			return LinkPacket{}, err
		}
		plain, err := identity.Open(key, nonce, nil, ciphertext)
		if err != nil {
			return LinkPacket{}, err
		}
		body = plain
	default:
		return LinkPacket{}, ErrMalformedPacket
	}

	replyTo, rest, err := DecodeReplyTo(body)
	if err != nil {
		return LinkPacket{}, err
	}
	nw, rest, err := Decode(rest)
	if err != nil {
		return LinkPacket{}, err
	}
	if len(rest) != 0 {
		return LinkPacket{}, ErrMalformedPacket
	}
	return LinkPacket{ReplyTo: replyTo, NarrowWaist: nw}, nil
}
