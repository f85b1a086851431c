package links

import (
	"github.com/copernica-icn/copernica/identity"
	"github.com/copernica-icn/copernica/packets"
)

// encodeOutbound turns an InterLinkPacket bound for id into an
// FEC-framed wire frame: sealed under id's shared key with its remote
// peer once paired, cleartext beforehand.
func encodeOutbound(id packets.LinkID, ilp InterLinkPacket) ([]byte, error) {
	lp := packets.LinkPacket{ReplyTo: ilp.ReplyTo, NarrowWaist: ilp.NarrowWaist}

	var body []byte
	var err error
	if id.Paired() {
		body, err = lp.EncodeSealed(id.Private, *id.Remote)
	} else {
		body, err = lp.EncodeCleartext()
	}
	if err != nil {
		return nil, err
	}
	return EncodeFrame(body)
}

// decodeInbound reverses encodeOutbound for a frame arriving on id.
func decodeInbound(id packets.LinkID, frame []byte) (InterLinkPacket, error) {
	body, err := DecodeFrame(frame)
	if err != nil {
		return InterLinkPacket{}, err
	}

	var remote *identity.PublicID
	var local *identity.PrivateIdentity
	if id.Paired() {
		remote = id.Remote
		local = id.Private
	}
	lp, err := packets.DecodeLinkPacket(body, local, remote)
	if err != nil {
		return InterLinkPacket{}, err
	}
	return InterLinkPacket{Link: id, NarrowWaist: lp.NarrowWaist, ReplyTo: lp.ReplyTo}, nil
}
